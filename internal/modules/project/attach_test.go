package project

import (
	"context"
	"testing"
	"time"

	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttacher struct {
	projectID string
	urls      []string
}

func (f *fakeAttacher) Attach(projectID string, urls []string) error {
	f.projectID = projectID
	f.urls = urls
	return nil
}

func TestCreateAttachesUploadedFiles(t *testing.T) {
	files := &fakeAttacher{}
	svc := NewService(openTestDB(t), nil, nil, files, nil, "Test Portal", nil)

	dto := completeDTO(true)
	dto.Screenshots = []string{"https://cdn.example/shot1.png"}
	dto.ReportURL = "https://cdn.example/report.pdf"

	p, err := svc.Create(owner, dto)
	require.NoError(t, err)

	assert.Equal(t, p.ID, files.projectID)
	assert.Equal(t, []string{
		"https://cdn.example/thumb.png",
		"https://cdn.example/shot1.png",
		"https://cdn.example/report.pdf",
	}, files.urls)
}

func TestUpdateAttachesNewMedia(t *testing.T) {
	files := &fakeAttacher{}
	svc := NewService(openTestDB(t), nil, nil, files, nil, "Test Portal", nil)

	p, err := svc.Create(owner, completeDTO(true))
	require.NoError(t, err)

	files.projectID = ""
	files.urls = nil

	_, err = svc.Update(owner, p.ID, &UpdateProjectDTO{
		Screenshots: []string{"https://cdn.example/shot2.png"},
	})
	require.NoError(t, err)

	assert.Equal(t, p.ID, files.projectID)
	assert.Contains(t, files.urls, "https://cdn.example/shot2.png")

	// content-only edits leave the file bookkeeping alone
	files.projectID = ""
	title := "Renamed"
	_, err = svc.Update(owner, p.ID, &UpdateProjectDTO{Title: &title})
	require.NoError(t, err)
	assert.Empty(t, files.projectID)
}

// A reference uploaded before the project existed must flip to active
// when the project is saved with its URL, or the cleanup job would
// delete a file the record still uses.
func TestSavedProjectFilesSurviveSweep(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.FileReferenceModel{}))

	mediaSvc := media.NewService(db, media.DisabledUploader(), nil)
	svc := NewService(db, nil, nil, mediaSvc, nil, "Test Portal", nil)

	ref := models.FileReferenceModel{
		FileURL: "https://cdn.test/projects/fac-1/thumb.png",
		Kind:    media.KindThumbnail,
		Status:  models.FileStatusPending,
	}
	require.NoError(t, db.Create(&ref).Error)
	require.NoError(t, db.Model(&ref).UpdateColumn("created_at", time.Now().Add(-25*time.Hour)).Error)

	dto := completeDTO(true)
	dto.ThumbnailURL = ref.FileURL
	p, err := svc.Create(owner, dto)
	require.NoError(t, err)

	orphans, err := mediaSvc.ListOrphans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orphans)

	n, err := mediaSvc.SweepOrphans(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	var got models.FileReferenceModel
	require.NoError(t, db.First(&got, "id = ?", ref.ID).Error)
	assert.Equal(t, models.FileStatusActive, got.Status)
	assert.Equal(t, p.ID, got.ProjectID)
}
