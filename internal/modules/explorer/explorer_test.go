package explorer

import (
	"testing"
	"time"

	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/pkg/pagination"
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

func seed(t *testing.T, db *gorm.DB, p models.ProjectModel) models.ProjectModel {
	t.Helper()
	if p.FacultyID == "" {
		p.FacultyID = "fac-1"
	}
	if p.Department == "" {
		p.Department = "CSE"
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestListOnlyPublic(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	pub := seed(t, db, models.ProjectModel{Title: "Public", Visibility: models.VisibilityPublic})
	seed(t, db, models.ProjectModel{Title: "Draft", Visibility: models.VisibilityDraft})
	seed(t, db, models.ProjectModel{Title: "Pending", Visibility: models.VisibilityPending})
	seed(t, db, models.ProjectModel{Title: "Rejected", Visibility: models.VisibilityRejected})

	items, pag, err := svc.List(pagination.Query{Page: 1, Size: 12}, Filter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, pub.ID, items[0].ID)
	assert.Equal(t, int64(1), pag.Total)
}

func TestTechnologyFilter(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	goProj := seed(t, db, models.ProjectModel{
		Title:        "Go Service",
		Visibility:   models.VisibilityPublic,
		Technologies: models.StringArray{"Go", "Redis"},
	})
	seed(t, db, models.ProjectModel{
		Title:        "React App",
		Visibility:   models.VisibilityPublic,
		Technologies: models.StringArray{"React", "Node"},
	})

	items, _, err := svc.List(pagination.Query{Page: 1, Size: 12}, Filter{Technology: "Go"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, goProj.ID, items[0].ID)
}

func TestSearchAndDepartmentFilter(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	seed(t, db, models.ProjectModel{Title: "Smart Irrigation", Department: "ECE", Visibility: models.VisibilityPublic})
	seed(t, db, models.ProjectModel{Title: "Smart Attendance", Department: "CSE", Visibility: models.VisibilityPublic})

	items, _, err := svc.List(pagination.Query{Page: 1, Size: 12}, Filter{Search: "Smart", Department: "ECE"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Smart Irrigation", items[0].Title)
}

func TestHallOfFameCapped(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	for i := 0; i < 12; i++ {
		seed(t, db, models.ProjectModel{
			Title:      "HoF",
			Visibility: models.VisibilityPublic,
			HallOfFame: true,
		})
		time.Sleep(time.Millisecond)
	}
	seed(t, db, models.ProjectModel{Title: "Plain", Visibility: models.VisibilityPublic})

	items, err := svc.HallOfFame()
	require.NoError(t, err)
	assert.Len(t, items, hallOfFameLimit)
	for _, p := range items {
		assert.True(t, p.HallOfFame)
	}
}

func TestGetPublicHidesNonPublic(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	pending := seed(t, db, models.ProjectModel{Title: "Pending", Visibility: models.VisibilityPending})

	got, err := svc.GetPublic(pending.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "non-public records look like missing ones")

	got, err = svc.GetPublic("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDetailRendersAbstract(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	p := seed(t, db, models.ProjectModel{
		Title:      "Markdown",
		Visibility: models.VisibilityPublic,
		Abstract:   "A system with **bold** claims.",
	})

	got, err := svc.GetPublic(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	detail := toDetail(got)
	assert.Contains(t, detail.AbstractHTML, "<strong>bold</strong>")
}

func TestAppreciateOnlyPublic(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	pub := seed(t, db, models.ProjectModel{Title: "Public", Visibility: models.VisibilityPublic})
	draft := seed(t, db, models.ProjectModel{Title: "Draft", Visibility: models.VisibilityDraft})

	count, found, err := svc.Appreciate(pub.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, count)

	count, found, err = svc.Appreciate(pub.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, count)

	_, found, err = svc.Appreciate(draft.ID)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = svc.Appreciate("no-such-id")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTechnologyAggregation(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	seed(t, db, models.ProjectModel{Visibility: models.VisibilityPublic, Technologies: models.StringArray{"Go", "Redis"}})
	seed(t, db, models.ProjectModel{Visibility: models.VisibilityPublic, Technologies: models.StringArray{"Go", "React"}})
	// drafts do not leak into the tag index
	seed(t, db, models.ProjectModel{Visibility: models.VisibilityDraft, Technologies: models.StringArray{"Rust"}})

	tags, err := svc.Technologies()
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, technologyTag{Name: "Go", Count: 2}, tags[0])
	assert.Equal(t, technologyTag{Name: "React", Count: 1}, tags[1])
	assert.Equal(t, technologyTag{Name: "Redis", Count: 1}, tags[2])
}
