package project

import (
	"time"

	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
)

type StudentDTO struct {
	Name  string `json:"name"`
	RegNo string `json:"regNo"`
	Dept  string `json:"dept"`
	Year  string `json:"year"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateProjectDTO is the submission form. Draft selects whether the
// record starts as a private draft or goes straight into review.
type CreateProjectDTO struct {
	Title        string       `json:"title" binding:"required"`
	Department   string       `json:"department"`
	AcademicYear string       `json:"academic_year"`
	Abstract     string       `json:"abstract"`
	ProjectType  string       `json:"project_type"`
	Technologies []string     `json:"technologies"`
	Students     []StudentDTO `json:"students"`
	DemoLink     string       `json:"demo_link"`
	GithubLink   string       `json:"github_link"`

	PublicationTitle string `json:"publication_title"`
	PublicationType  string `json:"publication_type"`
	JournalName      string `json:"journal_name"`
	PaperLink        string `json:"paper_link"`

	ThumbnailURL string   `json:"thumbnail_url"`
	Screenshots  []string `json:"screenshots"`
	ReportURL    string   `json:"report_url"`

	Draft bool `json:"draft"`
}

// UpdateProjectDTO carries content edits. Lifecycle fields (visibility,
// hall of fame, feedback) are deliberately absent; they only move
// through their dedicated endpoints.
type UpdateProjectDTO struct {
	Title        *string      `json:"title"`
	AcademicYear *string      `json:"academic_year"`
	Abstract     *string      `json:"abstract"`
	ProjectType  *string      `json:"project_type"`
	Technologies []string     `json:"technologies"`
	Students     []StudentDTO `json:"students"`
	DemoLink     *string      `json:"demo_link"`
	GithubLink   *string      `json:"github_link"`

	PublicationTitle *string `json:"publication_title"`
	PublicationType  *string `json:"publication_type"`
	JournalName      *string `json:"journal_name"`
	PaperLink        *string `json:"paper_link"`

	ThumbnailURL *string  `json:"thumbnail_url"`
	Screenshots  []string `json:"screenshots"`
	ReportURL    *string  `json:"report_url"`
}

type RejectDTO struct {
	Feedback string `json:"feedback" binding:"required"`
}

type HallOfFameDTO struct {
	Enabled bool `json:"enabled"`
}

// ListQuery narrows role-scoped listings, mainly for dashboard tabs.
type ListQuery struct {
	Visibility  string
	Department  string
	ProjectType string
	HallOfFame  *bool
}

type projectResponse struct {
	ID           string           `json:"id"`
	FacultyID    string           `json:"faculty_id"`
	Department   string           `json:"department"`
	Title        string           `json:"title"`
	Abstract     string           `json:"abstract"`
	ProjectType  string           `json:"project_type"`
	AcademicYear string           `json:"academic_year"`
	Technologies []string         `json:"technologies"`
	Students     []models.Student `json:"students"`
	DemoLink     string           `json:"demo_link"`
	GithubLink   string           `json:"github_link"`

	PublicationTitle string `json:"publication_title,omitempty"`
	PublicationType  string `json:"publication_type,omitempty"`
	JournalName      string `json:"journal_name,omitempty"`
	PaperLink        string `json:"paper_link,omitempty"`

	ThumbnailURL string   `json:"thumbnail_url"`
	Screenshots  []string `json:"screenshots"`
	ReportURL    string   `json:"report_url"`

	Visibility  string `json:"visibility"`
	HallOfFame  bool   `json:"hall_of_fame"`
	HodFeedback string `json:"hod_feedback,omitempty"`

	Actions []lifecycle.Action `json:"actions,omitempty"`

	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func toResponse(p *models.ProjectModel, actor lifecycle.Actor) projectResponse {
	techs := []string(p.Technologies)
	if techs == nil {
		techs = []string{}
	}
	shots := []string(p.Screenshots)
	if shots == nil {
		shots = []string{}
	}
	students := p.Students
	if students == nil {
		students = []models.Student{}
	}
	return projectResponse{
		ID:           p.ID,
		FacultyID:    p.FacultyID,
		Department:   p.Department,
		Title:        p.Title,
		Abstract:     p.Abstract,
		ProjectType:  p.ProjectType,
		AcademicYear: p.AcademicYear,
		Technologies: techs,
		Students:     students,
		DemoLink:     p.DemoLink,
		GithubLink:   p.GithubLink,

		PublicationTitle: p.PublicationTitle,
		PublicationType:  p.PublicationType,
		JournalName:      p.JournalName,
		PaperLink:        p.PaperLink,

		ThumbnailURL: p.ThumbnailURL,
		Screenshots:  shots,
		ReportURL:    p.ReportURL,

		Visibility:  p.Visibility,
		HallOfFame:  p.HallOfFame,
		HodFeedback: p.HodFeedback,

		Actions: lifecycle.Actions(actor, recordOf(p)),

		Created:  p.CreatedAt,
		Modified: p.UpdatedAt,
	}
}

func studentsFromDTO(in []StudentDTO) []models.Student {
	out := make([]models.Student, len(in))
	for i, s := range in {
		out[i] = models.Student{
			Name:  s.Name,
			RegNo: s.RegNo,
			Dept:  s.Dept,
			Year:  s.Year,
			Email: s.Email,
			Phone: s.Phone,
		}
	}
	return out
}
