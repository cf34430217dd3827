package project

import (
	"errors"

	"github.com/campus-showcase/core/internal/middleware"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/pkg/pagination"
	"github.com/campus-showcase/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/projects", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/submit", h.submit)
	g.POST("/:id/approve", h.approve)
	g.POST("/:id/reject", h.reject)
	g.POST("/:id/hall-of-fame", h.hallOfFame)
}

// writeLifecycleError maps engine errors onto the response envelope.
func writeLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrDenied):
		response.ForbiddenMsg(c, err.Error())
	case errors.Is(err, lifecycle.ErrValidation):
		response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) list(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	q := pagination.FromContext(c)
	filter := ListQuery{
		Visibility:  c.Query("visibility"),
		Department:  c.Query("department"),
		ProjectType: c.Query("type"),
	}
	if v := c.Query("hall_of_fame"); v != "" {
		hof := v == "true" || v == "1"
		filter.HallOfFame = &hof
	}

	items, pag, err := h.svc.List(actor, q, filter)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]projectResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i], actor)
	}
	response.Paged(c, out, pag)
}

func (h *Handler) get(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	p, err := h.svc.Get(actor, c.Param("id"))
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(p, actor))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateProjectDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	actor := middleware.ActorFromContext(c)
	p, err := h.svc.Create(actor, &dto)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.Created(c, toResponse(p, actor))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateProjectDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	actor := middleware.ActorFromContext(c)
	p, err := h.svc.Update(actor, c.Param("id"), &dto)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(p, actor))
}

func (h *Handler) delete(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := h.svc.Delete(actor, c.Param("id")); err != nil {
		writeLifecycleError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) submit(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	p, err := h.svc.Submit(actor, c.Param("id"))
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(p, actor))
}

func (h *Handler) approve(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	p, err := h.svc.Approve(actor, c.Param("id"))
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(p, actor))
}

func (h *Handler) reject(c *gin.Context) {
	var dto RejectDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "feedback is required to reject a project")
		return
	}
	actor := middleware.ActorFromContext(c)
	p, err := h.svc.Reject(actor, c.Param("id"), dto.Feedback)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(p, actor))
}

func (h *Handler) hallOfFame(c *gin.Context) {
	var dto HallOfFameDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	actor := middleware.ActorFromContext(c)
	p, err := h.svc.SetHallOfFame(actor, c.Param("id"), dto.Enabled)
	if err != nil {
		writeLifecycleError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(p, actor))
}
