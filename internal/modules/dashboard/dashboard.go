// Package dashboard serves the signed-in landing pages: per-role
// counters that drive the faculty tabs, the HoD review queue summary,
// and the admin overview.
package dashboard

import (
	"github.com/campus-showcase/core/internal/middleware"
	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FacultyStats are the tab badges on the faculty dashboard.
type FacultyStats struct {
	Draft    int64 `json:"draft"`
	Pending  int64 `json:"pending"`
	Public   int64 `json:"public"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// HodStats summarise the review queue of one department. Drafts are
// excluded; they are not the HoD's business until submitted.
type HodStats struct {
	Department string `json:"department"`
	Pending    int64  `json:"pending"`
	Approved   int64  `json:"approved"`
	Rejected   int64  `json:"rejected"`
	HallOfFame int64  `json:"hall_of_fame"`
}

// AdminStats cover the published portal only, matching the admin's
// read scope.
type AdminStats struct {
	TotalPublic   int64            `json:"total_public"`
	HallOfFame    int64            `json:"hall_of_fame"`
	ByDepartment  map[string]int64 `json:"by_department"`
	ByProjectType map[string]int64 `json:"by_project_type"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) projects() *gorm.DB {
	return s.db.Model(&models.ProjectModel{})
}

func (s *Service) Faculty(facultyID string) (*FacultyStats, error) {
	var rows []struct {
		Visibility string
		N          int64
	}
	err := s.projects().
		Select("visibility, COUNT(*) AS n").
		Where("faculty_id = ?", facultyID).
		Group("visibility").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &FacultyStats{}
	for _, r := range rows {
		switch r.Visibility {
		case models.VisibilityDraft:
			stats.Draft = r.N
		case models.VisibilityPending:
			stats.Pending = r.N
		case models.VisibilityPublic:
			stats.Public = r.N
		case models.VisibilityRejected:
			stats.Rejected = r.N
		}
		stats.Total += r.N
	}
	return stats, nil
}

func (s *Service) Hod(department string) (*HodStats, error) {
	stats := &HodStats{Department: department}

	count := func(dest *int64, conds func(*gorm.DB) *gorm.DB) error {
		return conds(s.projects().Where("department = ?", department)).
			Count(dest).Error
	}

	if err := count(&stats.Pending, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("visibility = ?", models.VisibilityPending)
	}); err != nil {
		return nil, err
	}
	if err := count(&stats.Approved, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("visibility = ? AND hall_of_fame = ?", models.VisibilityPublic, false)
	}); err != nil {
		return nil, err
	}
	if err := count(&stats.Rejected, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("visibility = ?", models.VisibilityRejected)
	}); err != nil {
		return nil, err
	}
	if err := count(&stats.HallOfFame, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("visibility = ? AND hall_of_fame = ?", models.VisibilityPublic, true)
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) Admin() (*AdminStats, error) {
	stats := &AdminStats{
		ByDepartment:  map[string]int64{},
		ByProjectType: map[string]int64{},
	}

	public := func() *gorm.DB {
		return s.projects().Where("visibility = ?", models.VisibilityPublic)
	}

	if err := public().Count(&stats.TotalPublic).Error; err != nil {
		return nil, err
	}
	if err := public().Where("hall_of_fame = ?", true).Count(&stats.HallOfFame).Error; err != nil {
		return nil, err
	}

	var deptRows []struct {
		Department string
		N          int64
	}
	if err := public().
		Select("department, COUNT(*) AS n").
		Group("department").
		Scan(&deptRows).Error; err != nil {
		return nil, err
	}
	for _, r := range deptRows {
		stats.ByDepartment[r.Department] = r.N
	}

	var typeRows []struct {
		ProjectType string
		N           int64
	}
	if err := public().
		Select("project_type, COUNT(*) AS n").
		Group("project_type").
		Scan(&typeRows).Error; err != nil {
		return nil, err
	}
	for _, r := range typeRows {
		if r.ProjectType != "" {
			stats.ByProjectType[r.ProjectType] = r.N
		}
	}
	return stats, nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/dashboard", authMW)
	g.GET("/stats", h.stats)
}

// stats dispatches on the caller's role so the client needs only one
// endpoint.
func (h *Handler) stats(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	switch actor.Role {
	case lifecycle.RoleFaculty:
		stats, err := h.svc.Faculty(actor.UserID)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, stats)
	case lifecycle.RoleHod:
		stats, err := h.svc.Hod(actor.Department)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, stats)
	case lifecycle.RoleAdmin:
		stats, err := h.svc.Admin()
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, stats)
	default:
		response.Forbidden(c)
	}
}
