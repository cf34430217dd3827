package project

import (
	"testing"

	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/pkg/pagination"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeHub struct {
	public []string
	admin  []string
}

func (f *fakeHub) BroadcastPublic(event string, _ interface{}) {
	f.public = append(f.public, event)
}

func (f *fakeHub) BroadcastAdmin(event string, _ interface{}) {
	f.admin = append(f.admin, event)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.ProjectModel{}))
	return db
}

func newTestService(t *testing.T) (*Service, *fakeHub) {
	t.Helper()
	hub := &fakeHub{}
	svc := NewService(openTestDB(t), hub, nil, nil, nil, "Test Portal", nil)
	return svc, hub
}

var (
	owner    = lifecycle.Actor{UserID: "fac-1", Role: lifecycle.RoleFaculty, Department: "CSE"}
	otherFac = lifecycle.Actor{UserID: "fac-2", Role: lifecycle.RoleFaculty, Department: "CSE"}
	cseHod   = lifecycle.Actor{UserID: "hod-1", Role: lifecycle.RoleHod, Department: "CSE"}
	eceHod   = lifecycle.Actor{UserID: "hod-2", Role: lifecycle.RoleHod, Department: "ECE"}
	admin    = lifecycle.Actor{UserID: "adm-1", Role: lifecycle.RoleAdmin}
	visitor  = lifecycle.Actor{}
)

func completeDTO(draft bool) *CreateProjectDTO {
	return &CreateProjectDTO{
		Title:        "Smart Attendance",
		Department:   "CSE",
		AcademicYear: "2025-2026",
		Abstract:     "Face recognition based attendance system.",
		ProjectType:  models.ProjectTypeCollege,
		Technologies: []string{"Go", "OpenCV"},
		Students: []StudentDTO{
			{Name: "Priya", RegNo: "21CS042"},
			{Name: "Arun", RegNo: "21CS007"},
		},
		ThumbnailURL: "https://cdn.example/thumb.png",
		Draft:        draft,
	}
}

func TestDraftToPublicFlow(t *testing.T) {
	svc, hub := newTestService(t)

	p, err := svc.Create(owner, completeDTO(true))
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityDraft, p.Visibility)
	assert.Empty(t, hub.admin, "drafts are private, nothing is announced")

	// invisible to everyone but the owner while drafted
	_, err = svc.Get(visitor, p.ID)
	assert.ErrorIs(t, err, lifecycle.ErrDenied)
	_, err = svc.Get(admin, p.ID)
	assert.ErrorIs(t, err, lifecycle.ErrDenied)

	p, err = svc.Submit(owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPending, p.Visibility)
	assert.Equal(t, []string{EventProjectSubmitted}, hub.admin)

	p, err = svc.Approve(cseHod, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, p.Visibility)
	assert.Equal(t, []string{EventProjectPublished}, hub.public)

	got, err := svc.Get(visitor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestDirectSubmissionRequiresCompleteness(t *testing.T) {
	svc, _ := newTestService(t)

	dto := completeDTO(false)
	dto.ThumbnailURL = ""
	_, err := svc.Create(owner, dto)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	dto = completeDTO(false)
	dto.Students = nil
	_, err = svc.Create(owner, dto)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	dto = completeDTO(false)
	dto.Students = append(dto.Students, StudentDTO{Name: "NoReg"})
	_, err = svc.Create(owner, dto)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	// a draft with the same holes is fine until submission
	dto = completeDTO(true)
	dto.ThumbnailURL = ""
	p, err := svc.Create(owner, dto)
	require.NoError(t, err)

	_, err = svc.Submit(owner, p.ID)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}

func TestRejectionLoopKeepsFeedback(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPending, p.Visibility)

	_, err = svc.Reject(cseHod, p.ID, "   ")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)

	p, err = svc.Reject(cseHod, p.ID, "abstract too thin, expand the methodology")
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityRejected, p.Visibility)
	assert.Equal(t, "abstract too thin, expand the methodology", p.HodFeedback)

	newAbstract := "Expanded abstract with methodology, dataset and results."
	p, err = svc.Update(owner, p.ID, &UpdateProjectDTO{Abstract: &newAbstract})
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityRejected, p.Visibility)

	p, err = svc.Submit(owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPending, p.Visibility)

	p, err = svc.Approve(cseHod, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, p.Visibility)
	// stale feedback is kept as an audit trail of the last rejection
	assert.Equal(t, "abstract too thin, expand the methodology", p.HodFeedback)
}

func TestDepartmentBoundary(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)

	_, err = svc.Approve(eceHod, p.ID)
	assert.ErrorIs(t, err, lifecycle.ErrDenied)
	_, err = svc.Reject(eceHod, p.ID, "not my department")
	assert.ErrorIs(t, err, lifecycle.ErrDenied)

	// pending records of other departments are invisible to a foreign HoD
	_, err = svc.Get(eceHod, p.ID)
	assert.ErrorIs(t, err, lifecycle.ErrDenied)
	got, err := svc.Get(cseHod, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestAdminCannotReview(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)

	_, err = svc.Approve(admin, p.ID)
	assert.ErrorIs(t, err, lifecycle.ErrDenied)
	_, err = svc.Reject(admin, p.ID, "looks fine")
	assert.ErrorIs(t, err, lifecycle.ErrDenied)
}

func TestDeleteOnlyOwnDrafts(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(owner, completeDTO(true))
	require.NoError(t, err)

	err = svc.Delete(otherFac, p.ID)
	assert.ErrorIs(t, err, lifecycle.ErrDenied)

	require.NoError(t, svc.Delete(owner, p.ID))
	got, err := svc.GetByID(p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// once submitted, delete is no longer defined
	p2, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)
	err = svc.Delete(owner, p2.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestNoEditOncePublic(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)
	_, err = svc.Approve(cseHod, p.ID)
	require.NoError(t, err)

	title := "Renamed After Publish"
	_, err = svc.Update(owner, p.ID, &UpdateProjectDTO{Title: &title})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestHallOfFame(t *testing.T) {
	svc, hub := newTestService(t)

	p, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)

	// only public records can enter the hall of fame
	_, err = svc.SetHallOfFame(cseHod, p.ID, true)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = svc.Approve(cseHod, p.ID)
	require.NoError(t, err)

	p, err = svc.SetHallOfFame(cseHod, p.ID, true)
	require.NoError(t, err)
	assert.True(t, p.HallOfFame)
	assert.Equal(t, models.VisibilityPublic, p.Visibility)
	assert.Contains(t, hub.public, EventHallOfFameChanged)

	_, err = svc.SetHallOfFame(eceHod, p.ID, false)
	assert.ErrorIs(t, err, lifecycle.ErrDenied)

	p, err = svc.SetHallOfFame(cseHod, p.ID, false)
	require.NoError(t, err)
	assert.False(t, p.HallOfFame)
}

func TestListScopes(t *testing.T) {
	svc, _ := newTestService(t)

	draft, err := svc.Create(owner, completeDTO(true))
	require.NoError(t, err)
	pending, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)
	public, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)
	_, err = svc.Approve(cseHod, public.ID)
	require.NoError(t, err)

	eceDTO := completeDTO(false)
	eceDTO.Department = "ECE"
	eceOwner := lifecycle.Actor{UserID: "fac-9", Role: lifecycle.RoleFaculty, Department: "ECE"}
	_, err = svc.Create(eceOwner, eceDTO)
	require.NoError(t, err)

	q := pagination.Query{Page: 1, Size: 50}

	ids := func(items []models.ProjectModel) []string {
		out := make([]string, len(items))
		for i, p := range items {
			out[i] = p.ID
		}
		return out
	}

	items, _, err := svc.List(visitor, q, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{public.ID}, ids(items))

	items, _, err = svc.List(owner, q, ListQuery{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{draft.ID, pending.ID, public.ID}, ids(items))

	items, _, err = svc.List(cseHod, q, ListQuery{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{draft.ID, pending.ID, public.ID}, ids(items))

	// admin oversight stops at the public boundary
	items, _, err = svc.List(admin, q, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{public.ID}, ids(items))

	// dashboard tab filter
	items, _, err = svc.List(owner, q, ListQuery{Visibility: models.VisibilityPending})
	require.NoError(t, err)
	assert.Equal(t, []string{pending.ID}, ids(items))
}

func TestUpdateCannotSmuggleLifecycleFields(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(owner, completeDTO(false))
	require.NoError(t, err)

	title := "Still Pending"
	p, err = svc.Update(owner, p.ID, &UpdateProjectDTO{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPending, p.Visibility)
	assert.False(t, p.HallOfFame)
	assert.Empty(t, p.HodFeedback)
}
