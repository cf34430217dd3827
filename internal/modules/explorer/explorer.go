// Package explorer is the anonymous read surface of the portal: the
// public project gallery, the hall of fame, and the technology tag
// index. Everything here serves only public records.
package explorer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/pkg/markdown"
	"github.com/campus-showcase/core/internal/pkg/pagination"
	pkgredis "github.com/campus-showcase/core/internal/pkg/redis"
	"github.com/campus-showcase/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const hallOfFameLimit = 10

// cardResponse is the gallery card, a trimmed view without the roster
// details or review feedback.
type cardResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Department    string    `json:"department"`
	ProjectType   string    `json:"project_type"`
	AcademicYear  string    `json:"academic_year"`
	Technologies  []string  `json:"technologies"`
	ThumbnailURL  string    `json:"thumbnail_url"`
	HallOfFame    bool      `json:"hall_of_fame"`
	Appreciations int       `json:"appreciations"`
	Created       time.Time `json:"created"`
}

type detailResponse struct {
	cardResponse

	Abstract     string           `json:"abstract"`
	AbstractHTML string           `json:"abstract_html"`
	Students     []models.Student `json:"students"`
	DemoLink     string           `json:"demo_link"`
	GithubLink   string           `json:"github_link"`

	PublicationTitle string `json:"publication_title,omitempty"`
	PublicationType  string `json:"publication_type,omitempty"`
	JournalName      string `json:"journal_name,omitempty"`
	PaperLink        string `json:"paper_link,omitempty"`

	Screenshots []string `json:"screenshots"`
	ReportURL   string   `json:"report_url"`
}

type technologyTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func toCard(p *models.ProjectModel) cardResponse {
	techs := []string(p.Technologies)
	if techs == nil {
		techs = []string{}
	}
	return cardResponse{
		ID:            p.ID,
		Title:         p.Title,
		Department:    p.Department,
		ProjectType:   p.ProjectType,
		AcademicYear:  p.AcademicYear,
		Technologies:  techs,
		ThumbnailURL:  p.ThumbnailURL,
		HallOfFame:    p.HallOfFame,
		Appreciations: p.Appreciations,
		Created:       p.CreatedAt,
	}
}

func toDetail(p *models.ProjectModel) detailResponse {
	shots := []string(p.Screenshots)
	if shots == nil {
		shots = []string{}
	}
	students := p.Students
	if students == nil {
		students = []models.Student{}
	}
	return detailResponse{
		cardResponse: toCard(p),

		Abstract:     p.Abstract,
		AbstractHTML: markdown.Render(p.Abstract),
		Students:     students,
		DemoLink:     p.DemoLink,
		GithubLink:   p.GithubLink,

		PublicationTitle: p.PublicationTitle,
		PublicationType:  p.PublicationType,
		JournalName:      p.JournalName,
		PaperLink:        p.PaperLink,

		Screenshots: shots,
		ReportURL:   p.ReportURL,
	}
}

// Filter narrows the gallery listing.
type Filter struct {
	Department   string
	ProjectType  string
	AcademicYear string
	Technology   string
	Search       string
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) publicScope() *gorm.DB {
	return s.db.Model(&models.ProjectModel{}).
		Where("visibility = ?", models.VisibilityPublic)
}

func (s *Service) List(q pagination.Query, f Filter) ([]models.ProjectModel, response.Pagination, error) {
	tx := s.publicScope().Order("created_at DESC")

	if f.Department != "" {
		tx = tx.Where("department = ?", f.Department)
	}
	if f.ProjectType != "" {
		tx = tx.Where("project_type = ?", f.ProjectType)
	}
	if f.AcademicYear != "" {
		tx = tx.Where("academic_year = ?", f.AcademicYear)
	}
	if f.Technology != "" {
		// technologies is a JSON array column; membership via the quoted
		// element keeps the query portable across MySQL and SQLite
		tx = tx.Where("technologies LIKE ?", `%"`+f.Technology+`"%`)
	}
	if f.Search != "" {
		tx = tx.Where("title LIKE ?", "%"+f.Search+"%")
	}

	var items []models.ProjectModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// HallOfFame returns the most recent flagged projects, capped at ten.
func (s *Service) HallOfFame() ([]models.ProjectModel, error) {
	var items []models.ProjectModel
	err := s.publicScope().
		Where("hall_of_fame = ?", true).
		Order("updated_at DESC").
		Limit(hallOfFameLimit).
		Find(&items).Error
	return items, err
}

// GetPublic returns a public record by ID, or nil when the record does
// not exist or is not public. Non-public records are indistinguishable
// from missing ones on this surface.
func (s *Service) GetPublic(id string) (*models.ProjectModel, error) {
	var p models.ProjectModel
	err := s.publicScope().Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Appreciate bumps the appreciation counter of a public project and
// returns the new count. The second return is false when no public
// record matches the ID.
func (s *Service) Appreciate(id string) (int, bool, error) {
	res := s.publicScope().
		Where("id = ?", id).
		UpdateColumn("appreciations", gorm.Expr("appreciations + 1"))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	var p models.ProjectModel
	if err := s.publicScope().Select("appreciations").Where("id = ?", id).First(&p).Error; err != nil {
		return 0, false, err
	}
	return p.Appreciations, true, nil
}

// Technologies aggregates the tag counts across public projects,
// sorted by frequency then name.
func (s *Service) Technologies() ([]technologyTag, error) {
	var rows []models.ProjectModel
	if err := s.publicScope().Select("technologies").Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, p := range rows {
		for _, tech := range p.Technologies {
			if tech != "" {
				counts[tech]++
			}
		}
	}

	tags := make([]technologyTag, 0, len(counts))
	for name, count := range counts {
		tags = append(tags, technologyTag{Name: name, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}

type Handler struct {
	svc *Service
	rc  *pkgredis.Client
}

func NewHandler(svc *Service, rc *pkgredis.Client) *Handler {
	return &Handler{svc: svc, rc: rc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/explore")
	g.GET("", h.list)
	g.GET("/hall-of-fame", h.hallOfFame)
	g.GET("/technologies", h.technologies)
	g.GET("/:id", h.get)
	g.POST("/:id/appreciate", h.appreciate)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	f := Filter{
		Department:   c.Query("department"),
		ProjectType:  c.Query("type"),
		AcademicYear: c.Query("year"),
		Technology:   c.Query("technology"),
		Search:       c.Query("q"),
	}

	items, pag, err := h.svc.List(q, f)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]cardResponse, len(items))
	for i := range items {
		out[i] = toCard(&items[i])
	}
	response.Paged(c, out, pag)
}

func (h *Handler) hallOfFame(c *gin.Context) {
	items, err := h.svc.HallOfFame()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]cardResponse, len(items))
	for i := range items {
		out[i] = toCard(&items[i])
	}
	response.OK(c, out)
}

func (h *Handler) technologies(c *gin.Context) {
	tags, err := h.svc.Technologies()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, tags)
}

// appreciate is the anonymous thumbs-up. One per visitor IP per project
// per day, guarded by a redis key with a 24h expiry.
func (h *Handler) appreciate(c *gin.Context) {
	id := c.Param("id")

	if h.rc != nil {
		key := fmt.Sprintf("showcase:appreciate:%s:%s:%s",
			time.Now().Format("2006-01-02"), c.ClientIP(), id)
		set, err := h.rc.Raw().SetNX(c.Request.Context(), key, 1, 24*time.Hour).Result()
		if err == nil && !set {
			response.BadRequest(c, "already appreciated today")
			return
		}
	}

	count, found, err := h.svc.Appreciate(id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !found {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"appreciations": count})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.GetPublic(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toDetail(p))
}
