package dashboard

import (
	"testing"

	"github.com/campus-showcase/core/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ProjectModel{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, facultyID, dept, visibility, projectType string, hof bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.ProjectModel{
		FacultyID:   facultyID,
		Department:  dept,
		Title:       "p",
		ProjectType: projectType,
		Visibility:  visibility,
		HallOfFame:  hof,
	}).Error)
}

func TestFacultyStats(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	seed(t, db, "fac-1", "CSE", models.VisibilityDraft, "", false)
	seed(t, db, "fac-1", "CSE", models.VisibilityDraft, "", false)
	seed(t, db, "fac-1", "CSE", models.VisibilityPending, "", false)
	seed(t, db, "fac-1", "CSE", models.VisibilityPublic, "", false)
	seed(t, db, "fac-1", "CSE", models.VisibilityRejected, "", false)
	// another faculty's work never counts
	seed(t, db, "fac-2", "CSE", models.VisibilityPublic, "", false)

	stats, err := svc.Faculty("fac-1")
	require.NoError(t, err)
	assert.Equal(t, &FacultyStats{Draft: 2, Pending: 1, Public: 1, Rejected: 1, Total: 5}, stats)
}

func TestHodStatsExcludeDraftsAndOtherDepartments(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	seed(t, db, "fac-1", "CSE", models.VisibilityDraft, "", false)
	seed(t, db, "fac-1", "CSE", models.VisibilityPending, "", false)
	seed(t, db, "fac-1", "CSE", models.VisibilityPending, "", false)
	seed(t, db, "fac-1", "CSE", models.VisibilityPublic, "", false)
	seed(t, db, "fac-1", "CSE", models.VisibilityPublic, "", true)
	seed(t, db, "fac-1", "CSE", models.VisibilityRejected, "", false)
	seed(t, db, "fac-3", "ECE", models.VisibilityPending, "", false)

	stats, err := svc.Hod("CSE")
	require.NoError(t, err)
	assert.Equal(t, &HodStats{
		Department: "CSE",
		Pending:    2,
		Approved:   1,
		Rejected:   1,
		HallOfFame: 1,
	}, stats)
}

func TestAdminStatsCoverPublicOnly(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	seed(t, db, "fac-1", "CSE", models.VisibilityPublic, models.ProjectTypeCollege, false)
	seed(t, db, "fac-1", "CSE", models.VisibilityPublic, models.ProjectTypeProduct, true)
	seed(t, db, "fac-2", "ECE", models.VisibilityPublic, models.ProjectTypeCollege, false)
	// non-public records stay out of the admin overview
	seed(t, db, "fac-2", "ECE", models.VisibilityPending, models.ProjectTypeCollege, false)
	seed(t, db, "fac-2", "ECE", models.VisibilityDraft, models.ProjectTypeCollege, false)

	stats, err := svc.Admin()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalPublic)
	assert.Equal(t, int64(1), stats.HallOfFame)
	assert.Equal(t, map[string]int64{"CSE": 2, "ECE": 1}, stats.ByDepartment)
	assert.Equal(t, map[string]int64{
		models.ProjectTypeCollege: 2,
		models.ProjectTypeProduct: 1,
	}, stats.ByProjectType)
}
