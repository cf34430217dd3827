package accounts

import (
	"testing"

	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	jwtpkg "github.com/campus-showcase/core/internal/pkg/jwt"
	sessionpkg "github.com/campus-showcase/core/internal/pkg/session"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	adminActor = lifecycle.Actor{UserID: "adm-1", Role: lifecycle.RoleAdmin}
	cseHod     = lifecycle.Actor{UserID: "hod-1", Role: lifecycle.RoleHod, Department: "CSE"}
	faculty    = lifecycle.Actor{UserID: "fac-1", Role: lifecycle.RoleFaculty, Department: "CSE"}
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.UserSession{}))
	return NewService(db, nil, "Test Portal", "https://portal.example/login", nil)
}

func enroll(t *testing.T, svc *Service, actor lifecycle.Actor, dto CreateAccountDTO) *models.UserModel {
	t.Helper()
	u, err := svc.Create(actor, &dto)
	require.NoError(t, err)
	return u
}

func TestLoginIssuesSessionBackedToken(t *testing.T) {
	svc := newTestService(t)
	enroll(t, svc, adminActor, CreateAccountDTO{
		Username: "meena", Password: "secret-1", Department: "CSE", Role: models.RoleFaculty,
	})

	token, u, err := svc.Login("meena", "secret-1", "10.0.0.1", "go-test")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "meena", u.Username)
	assert.NotNil(t, u.LastLoginTime)

	claims, err := jwtpkg.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleFaculty, claims.Role)
	assert.Equal(t, "CSE", claims.Department)

	active, err := sessionpkg.IsActive(svc.db, claims.UserID, claims.SessionID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	enroll(t, svc, adminActor, CreateAccountDTO{
		Username: "meena", Password: "secret-1", Department: "CSE",
	})

	_, _, err := svc.Login("meena", "wrong", "", "")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, _, err = svc.Login("nobody", "secret-1", "", "")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestHodEnrollmentRestrictions(t *testing.T) {
	svc := newTestService(t)

	// own department faculty is fine, department defaults to the HoD's
	u, err := svc.Create(cseHod, &CreateAccountDTO{Username: "ravi", Password: "secret-1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFaculty, u.Role)
	assert.Equal(t, "CSE", u.Department)

	_, err = svc.Create(cseHod, &CreateAccountDTO{
		Username: "mala", Password: "secret-1", Department: "ECE",
	})
	assert.ErrorIs(t, err, ErrDenied)

	_, err = svc.Create(cseHod, &CreateAccountDTO{
		Username: "mala", Password: "secret-1", Role: models.RoleHod,
	})
	assert.ErrorIs(t, err, ErrDenied)

	_, err = svc.Create(faculty, &CreateAccountDTO{Username: "x123", Password: "secret-1"})
	assert.ErrorIs(t, err, ErrDenied)
}

func TestDuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	enroll(t, svc, adminActor, CreateAccountDTO{Username: "meena", Password: "secret-1", Department: "CSE"})

	_, err := svc.Create(adminActor, &CreateAccountDTO{
		Username: "meena", Password: "other-pw", Department: "IT",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSetRoleRevokesSessions(t *testing.T) {
	svc := newTestService(t)
	u := enroll(t, svc, adminActor, CreateAccountDTO{
		Username: "meena", Password: "secret-1", Department: "CSE",
	})

	token, _, err := svc.Login("meena", "secret-1", "", "")
	require.NoError(t, err)
	claims, err := jwtpkg.Parse(token)
	require.NoError(t, err)

	updated, err := svc.SetRole(adminActor, u.ID, &SetRoleDTO{Role: models.RoleHod, Department: "CSE"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleHod, updated.Role)

	// the old token still parses but its session is dead
	active, err := sessionpkg.IsActive(svc.db, claims.UserID, claims.SessionID)
	require.NoError(t, err)
	assert.False(t, active, "stale role claims must not survive a role change")
}

func TestSetRoleRequiresAdmin(t *testing.T) {
	svc := newTestService(t)
	u := enroll(t, svc, adminActor, CreateAccountDTO{
		Username: "meena", Password: "secret-1", Department: "CSE",
	})

	_, err := svc.SetRole(cseHod, u.ID, &SetRoleDTO{Role: models.RoleHod, Department: "CSE"})
	assert.ErrorIs(t, err, ErrDenied)
}

func TestSetRoleRequiresDepartmentForScopedRoles(t *testing.T) {
	svc := newTestService(t)
	u := enroll(t, svc, adminActor, CreateAccountDTO{
		Username: "meena", Password: "secret-1", Department: "CSE",
	})

	_, err := svc.SetRole(adminActor, u.ID, &SetRoleDTO{Role: models.RoleHod})
	assert.Error(t, err)

	// admins carry no department claim
	updated, err := svc.SetRole(adminActor, u.ID, &SetRoleDTO{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Empty(t, updated.Department)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	svc := newTestService(t)
	u := enroll(t, svc, adminActor, CreateAccountDTO{
		Username: "meena", Password: "secret-1", Department: "CSE",
	})

	tokenA, _, err := svc.Login("meena", "secret-1", "", "device-a")
	require.NoError(t, err)
	tokenB, _, err := svc.Login("meena", "secret-1", "", "device-b")
	require.NoError(t, err)

	claimsA, err := jwtpkg.Parse(tokenA)
	require.NoError(t, err)
	claimsB, err := jwtpkg.Parse(tokenB)
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(u.ID, claimsA.SessionID, "secret-1", "secret-2"))

	activeA, _ := sessionpkg.IsActive(svc.db, u.ID, claimsA.SessionID)
	activeB, _ := sessionpkg.IsActive(svc.db, u.ID, claimsB.SessionID)
	assert.True(t, activeA, "the session that changed the password survives")
	assert.False(t, activeB)

	_, _, err = svc.Login("meena", "secret-1", "", "")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, _, err = svc.Login("meena", "secret-2", "", "")
	require.NoError(t, err)
}

func TestListScopedByRole(t *testing.T) {
	svc := newTestService(t)
	enroll(t, svc, adminActor, CreateAccountDTO{Username: "cse-1", Password: "secret-1", Department: "CSE"})
	enroll(t, svc, adminActor, CreateAccountDTO{Username: "ece-1", Password: "secret-1", Department: "ECE"})

	all, err := svc.List(adminActor, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cseOnly, err := svc.List(cseHod, "ECE")
	require.NoError(t, err)
	require.Len(t, cseOnly, 1)
	assert.Equal(t, "CSE", cseOnly[0].Department, "a HoD cannot list outside their department")

	_, err = svc.List(faculty, "")
	assert.ErrorIs(t, err, ErrDenied)
}
