package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/pkg/mail"
	"github.com/campus-showcase/core/internal/pkg/pagination"
	"github.com/campus-showcase/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway events emitted on lifecycle transitions.
const (
	EventProjectSubmitted  = "PROJECT_SUBMITTED"
	EventProjectPublished  = "PROJECT_PUBLISHED"
	EventProjectUpdated    = "PROJECT_UPDATED"
	EventHallOfFameChanged = "HALL_OF_FAME_CHANGED"
)

const (
	maxStudents    = 5
	maxScreenshots = 5
)

// Broadcaster pushes realtime events to connected clients. Satisfied
// by the gateway hub; nil disables broadcasting.
type Broadcaster interface {
	BroadcastPublic(event string, payload interface{})
	BroadcastAdmin(event string, payload interface{})
}

// DecisionMailer notifies the owning faculty about review outcomes.
// Satisfied by *mail.Sender; nil disables email.
type DecisionMailer interface {
	SendApproved(to string, data mail.DecisionData) error
	SendRejected(to string, data mail.DecisionData) error
}

// LinkBuilder turns a project ID into a public URL for emails.
type LinkBuilder func(id string) string

// FileAttacher binds uploaded file references to the project that uses
// them, so the orphan sweep leaves them alone. Satisfied by
// *media.Service; nil disables bookkeeping.
type FileAttacher interface {
	Attach(projectID string, urls []string) error
}

type Service struct {
	db       *gorm.DB
	hub      Broadcaster
	mailer   DecisionMailer
	files    FileAttacher
	link     LinkBuilder
	siteName string
	logger   *zap.Logger
}

func NewService(db *gorm.DB, hub Broadcaster, mailer DecisionMailer, files FileAttacher, link LinkBuilder, siteName string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, hub: hub, mailer: mailer, files: files, link: link, siteName: siteName, logger: logger}
}

func recordOf(p *models.ProjectModel) lifecycle.Record {
	return lifecycle.Record{
		FacultyID:   p.FacultyID,
		Department:  p.Department,
		Visibility:  lifecycle.Visibility(p.Visibility),
		HallOfFame:  p.HallOfFame,
		HodFeedback: p.HodFeedback,
	}
}

func (s *Service) GetByID(id string) (*models.ProjectModel, error) {
	var p models.ProjectModel
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Get returns the project if the actor may view it in its current state.
func (s *Service) Get(actor lifecycle.Actor, id string) (*models.ProjectModel, error) {
	p, err := s.GetByID(id)
	if err != nil || p == nil {
		return p, err
	}
	if !lifecycle.CanView(actor, recordOf(p)) {
		return nil, lifecycle.ErrDenied
	}
	return p, nil
}

// List returns projects within the actor's visibility scope, narrowed
// by the optional query filters.
func (s *Service) List(actor lifecycle.Actor, q pagination.Query, filter ListQuery) ([]models.ProjectModel, response.Pagination, error) {
	tx := s.db.Model(&models.ProjectModel{}).Order("created_at DESC")

	scope := lifecycle.ScopeFor(actor)
	switch {
	case scope.PublicOnly:
		tx = tx.Where("visibility = ?", models.VisibilityPublic)
	case scope.OwnerID != "":
		tx = tx.Where("faculty_id = ?", scope.OwnerID)
	case scope.Department != "":
		tx = tx.Where("department = ?", scope.Department)
	case scope.PublicOrHallOfFame:
		tx = tx.Where("visibility = ? OR hall_of_fame = ?", models.VisibilityPublic, true)
	}

	if filter.Visibility != "" {
		tx = tx.Where("visibility = ?", filter.Visibility)
	}
	if filter.Department != "" {
		tx = tx.Where("department = ?", filter.Department)
	}
	if filter.ProjectType != "" {
		tx = tx.Where("project_type = ?", filter.ProjectType)
	}
	if filter.HallOfFame != nil {
		tx = tx.Where("hall_of_fame = ?", *filter.HallOfFame)
	}

	var items []models.ProjectModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// Create inserts a new record as a draft or directly into review.
func (s *Service) Create(actor lifecycle.Actor, dto *CreateProjectDTO) (*models.ProjectModel, error) {
	action := lifecycle.ActionCreateSubmission
	if dto.Draft {
		action = lifecycle.ActionCreateDraft
	}

	dept := strings.TrimSpace(dto.Department)
	if dept == "" {
		dept = actor.Department
	}
	if !models.ValidDepartment(dept) {
		return nil, fmt.Errorf("%w: unknown department %q", lifecycle.ErrValidation, dept)
	}
	if dto.ProjectType != "" && !models.ValidProjectType(dto.ProjectType) {
		return nil, fmt.Errorf("%w: unknown project type %q", lifecycle.ErrValidation, dto.ProjectType)
	}

	p := &models.ProjectModel{
		FacultyID:    actor.UserID,
		Department:   dept,
		Title:        strings.TrimSpace(dto.Title),
		Abstract:     dto.Abstract,
		ProjectType:  dto.ProjectType,
		AcademicYear: dto.AcademicYear,
		Technologies: dto.Technologies,
		Students:     studentsFromDTO(dto.Students),
		DemoLink:     dto.DemoLink,
		GithubLink:   dto.GithubLink,

		PublicationTitle: dto.PublicationTitle,
		PublicationType:  dto.PublicationType,
		JournalName:      dto.JournalName,
		PaperLink:        dto.PaperLink,

		ThumbnailURL: dto.ThumbnailURL,
		Screenshots:  dto.Screenshots,
		ReportURL:    dto.ReportURL,
	}

	change, err := lifecycle.Decide(actor, lifecycle.Record{}, action, lifecycle.Input{})
	if err != nil {
		return nil, err
	}
	p.Visibility = string(change.Visibility)

	if action == lifecycle.ActionCreateSubmission {
		if err := validateForSubmission(p); err != nil {
			return nil, err
		}
	}
	if err := validateMedia(p); err != nil {
		return nil, err
	}

	if err := s.db.Create(p).Error; err != nil {
		return nil, err
	}
	s.attachFiles(p)

	if p.Visibility == models.VisibilityPending && s.hub != nil {
		s.hub.BroadcastAdmin(EventProjectSubmitted, broadcastPayload(p))
	}
	return p, nil
}

// Update applies content edits. The record keeps its current visibility;
// lifecycle fields cannot be smuggled through here.
func (s *Service) Update(actor lifecycle.Actor, id string, dto *UpdateProjectDTO) (*models.ProjectModel, error) {
	p, err := s.GetByID(id)
	if err != nil || p == nil {
		return p, err
	}

	change, err := lifecycle.Decide(actor, recordOf(p), lifecycle.ActionEdit, lifecycle.Input{})
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = strings.TrimSpace(*dto.Title)
	}
	if dto.AcademicYear != nil {
		updates["academic_year"] = *dto.AcademicYear
	}
	if dto.Abstract != nil {
		updates["abstract"] = *dto.Abstract
	}
	if dto.ProjectType != nil {
		if !models.ValidProjectType(*dto.ProjectType) {
			return nil, fmt.Errorf("%w: unknown project type %q", lifecycle.ErrValidation, *dto.ProjectType)
		}
		updates["project_type"] = *dto.ProjectType
	}
	if dto.Technologies != nil {
		updates["technologies"] = models.StringArray(dto.Technologies)
	}
	if dto.Students != nil {
		if len(dto.Students) > maxStudents {
			return nil, fmt.Errorf("%w: at most %d students per project", lifecycle.ErrValidation, maxStudents)
		}
		p.Students = studentsFromDTO(dto.Students)
		updates["students"] = p.Students
	}
	if dto.DemoLink != nil {
		updates["demo_link"] = *dto.DemoLink
	}
	if dto.GithubLink != nil {
		updates["github_link"] = *dto.GithubLink
	}
	if dto.PublicationTitle != nil {
		updates["publication_title"] = *dto.PublicationTitle
	}
	if dto.PublicationType != nil {
		updates["publication_type"] = *dto.PublicationType
	}
	if dto.JournalName != nil {
		updates["journal_name"] = *dto.JournalName
	}
	if dto.PaperLink != nil {
		updates["paper_link"] = *dto.PaperLink
	}
	mediaChanged := false
	if dto.ThumbnailURL != nil {
		p.ThumbnailURL = *dto.ThumbnailURL
		updates["thumbnail_url"] = p.ThumbnailURL
		mediaChanged = true
	}
	if dto.Screenshots != nil {
		if len(dto.Screenshots) > maxScreenshots {
			return nil, fmt.Errorf("%w: at most %d screenshots per project", lifecycle.ErrValidation, maxScreenshots)
		}
		p.Screenshots = models.StringArray(dto.Screenshots)
		updates["screenshots"] = p.Screenshots
		mediaChanged = true
	}
	if dto.ReportURL != nil {
		p.ReportURL = *dto.ReportURL
		updates["report_url"] = p.ReportURL
		mediaChanged = true
	}

	if len(updates) > 0 {
		if err := s.db.Model(p).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if mediaChanged {
		s.attachFiles(p)
	}

	// reviewers watch pending submissions, let them see fresh content
	if change.Visibility == lifecycle.VisibilityPending && s.hub != nil {
		s.hub.BroadcastAdmin(EventProjectUpdated, broadcastPayload(p))
	}
	return p, nil
}

// Submit moves a draft or rejected record into review.
func (s *Service) Submit(actor lifecycle.Actor, id string) (*models.ProjectModel, error) {
	p, err := s.GetByID(id)
	if err != nil || p == nil {
		return p, err
	}

	change, err := lifecycle.Decide(actor, recordOf(p), lifecycle.ActionSubmit, lifecycle.Input{})
	if err != nil {
		return nil, err
	}
	if err := validateForSubmission(p); err != nil {
		return nil, err
	}

	if err := s.applyChange(p, change); err != nil {
		return nil, err
	}
	if s.hub != nil {
		s.hub.BroadcastAdmin(EventProjectSubmitted, broadcastPayload(p))
	}
	return p, nil
}

// Approve publishes a pending record. The owning faculty is notified
// by email; the mail must not block or fail the approval.
func (s *Service) Approve(actor lifecycle.Actor, id string) (*models.ProjectModel, error) {
	p, err := s.GetByID(id)
	if err != nil || p == nil {
		return p, err
	}

	change, err := lifecycle.Decide(actor, recordOf(p), lifecycle.ActionApprove, lifecycle.Input{})
	if err != nil {
		return nil, err
	}
	if err := s.applyChange(p, change); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastPublic(EventProjectPublished, broadcastPayload(p))
	}
	s.notifyDecision(p, true)
	return p, nil
}

// Reject returns a pending record to its owner with feedback.
func (s *Service) Reject(actor lifecycle.Actor, id, feedback string) (*models.ProjectModel, error) {
	p, err := s.GetByID(id)
	if err != nil || p == nil {
		return p, err
	}

	change, err := lifecycle.Decide(actor, recordOf(p), lifecycle.ActionReject, lifecycle.Input{Feedback: feedback})
	if err != nil {
		return nil, err
	}
	if err := s.applyChange(p, change); err != nil {
		return nil, err
	}

	s.notifyDecision(p, false)
	return p, nil
}

// SetHallOfFame flips the hall-of-fame flag on a public record.
func (s *Service) SetHallOfFame(actor lifecycle.Actor, id string, enabled bool) (*models.ProjectModel, error) {
	p, err := s.GetByID(id)
	if err != nil || p == nil {
		return p, err
	}

	action := lifecycle.ActionSetHallOfFame
	if !enabled {
		action = lifecycle.ActionUnsetHallOfFame
	}
	change, err := lifecycle.Decide(actor, recordOf(p), action, lifecycle.Input{})
	if err != nil {
		return nil, err
	}
	if err := s.applyChange(p, change); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastPublic(EventHallOfFameChanged, broadcastPayload(p))
	}
	return p, nil
}

// Delete removes a record. Only the owning faculty may delete, and only
// while the record is still a draft; the rule is enforced here, not in
// the client.
func (s *Service) Delete(actor lifecycle.Actor, id string) error {
	p, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if p == nil {
		return gorm.ErrRecordNotFound
	}

	change, err := lifecycle.Decide(actor, recordOf(p), lifecycle.ActionDelete, lifecycle.Input{})
	if err != nil {
		return err
	}
	if !change.Delete {
		return lifecycle.ErrInvalidTransition
	}
	return s.db.Delete(p).Error
}

// attachFiles marks the record's uploaded files as in use. Failures are
// logged, not returned; the save itself already succeeded.
func (s *Service) attachFiles(p *models.ProjectModel) {
	if s.files == nil {
		return
	}

	urls := make([]string, 0, len(p.Screenshots)+2)
	if p.ThumbnailURL != "" {
		urls = append(urls, p.ThumbnailURL)
	}
	urls = append(urls, p.Screenshots...)
	if p.ReportURL != "" {
		urls = append(urls, p.ReportURL)
	}
	if len(urls) == 0 {
		return
	}

	if err := s.files.Attach(p.ID, urls); err != nil {
		s.logger.Warn("file attach failed",
			zap.String("project", p.ID),
			zap.Error(err))
	}
}

// applyChange persists a computed transition as a single update.
func (s *Service) applyChange(p *models.ProjectModel, change lifecycle.Change) error {
	updates := map[string]interface{}{
		"visibility":   string(change.Visibility),
		"hall_of_fame": change.HallOfFame,
	}
	if change.SetFeedback {
		updates["hod_feedback"] = change.HodFeedback
	}
	if err := s.db.Model(p).Updates(updates).Error; err != nil {
		return err
	}
	p.Visibility = string(change.Visibility)
	p.HallOfFame = change.HallOfFame
	if change.SetFeedback {
		p.HodFeedback = change.HodFeedback
	}
	return nil
}

func (s *Service) notifyDecision(p *models.ProjectModel, approved bool) {
	if s.mailer == nil {
		return
	}

	var owner models.UserModel
	if err := s.db.First(&owner, "id = ?", p.FacultyID).Error; err != nil || owner.Mail == "" {
		return
	}

	url := ""
	if s.link != nil {
		url = s.link(p.ID)
	}
	data := mail.DecisionData{
		ProjectTitle: p.Title,
		FacultyName:  owner.Name,
		Feedback:     p.HodFeedback,
		ProjectURL:   url,
		SiteName:     s.siteName,
	}

	go func() {
		var err error
		if approved {
			err = s.mailer.SendApproved(owner.Mail, data)
		} else {
			err = s.mailer.SendRejected(owner.Mail, data)
		}
		if err != nil {
			s.logger.Warn("decision mail failed",
				zap.String("project", p.ID),
				zap.Error(err))
		}
	}()
}

// validateForSubmission checks completeness before a record may enter
// review. Drafts are exempt until they are submitted.
func validateForSubmission(p *models.ProjectModel) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", lifecycle.ErrValidation)
	}
	if strings.TrimSpace(p.Abstract) == "" {
		return fmt.Errorf("%w: abstract is required", lifecycle.ErrValidation)
	}
	if !models.ValidProjectType(p.ProjectType) {
		return fmt.Errorf("%w: project type is required", lifecycle.ErrValidation)
	}
	if strings.TrimSpace(p.AcademicYear) == "" {
		return fmt.Errorf("%w: academic year is required", lifecycle.ErrValidation)
	}
	if strings.TrimSpace(p.ThumbnailURL) == "" {
		return fmt.Errorf("%w: thumbnail is required", lifecycle.ErrValidation)
	}

	if len(p.Students) == 0 {
		return fmt.Errorf("%w: at least one student is required", lifecycle.ErrValidation)
	}
	if len(p.Students) > maxStudents {
		return fmt.Errorf("%w: at most %d students per project", lifecycle.ErrValidation, maxStudents)
	}
	for i, st := range p.Students {
		if strings.TrimSpace(st.Name) == "" || strings.TrimSpace(st.RegNo) == "" {
			return fmt.Errorf("%w: student %d needs a name and register number", lifecycle.ErrValidation, i+1)
		}
	}

	if p.ProjectType == models.ProjectTypePublication {
		if strings.TrimSpace(p.PublicationTitle) == "" || strings.TrimSpace(p.PublicationType) == "" {
			return fmt.Errorf("%w: publication title and type are required", lifecycle.ErrValidation)
		}
	}
	return nil
}

func validateMedia(p *models.ProjectModel) error {
	if len(p.Screenshots) > maxScreenshots {
		return fmt.Errorf("%w: at most %d screenshots per project", lifecycle.ErrValidation, maxScreenshots)
	}
	if len(p.Students) > maxStudents {
		return fmt.Errorf("%w: at most %d students per project", lifecycle.ErrValidation, maxStudents)
	}
	return nil
}

// broadcastPayload is the broadcast payload for a record. Clients only need
// enough to refresh their lists.
func broadcastPayload(p *models.ProjectModel) map[string]interface{} {
	return map[string]interface{}{
		"id":           p.ID,
		"title":        p.Title,
		"department":   p.Department,
		"visibility":   p.Visibility,
		"hall_of_fame": p.HallOfFame,
	}
}
