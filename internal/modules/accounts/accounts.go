// Package accounts handles sign-in, session management, and account
// administration. Accounts are never self-registered: faculty are
// enrolled by their HoD or an admin, and role changes are admin-only.
package accounts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campus-showcase/core/internal/middleware"
	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/pkg/mail"
	"github.com/campus-showcase/core/internal/pkg/response"
	sessionpkg "github.com/campus-showcase/core/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// failedLoginDelay damps credential stuffing without a lockout table.
const failedLoginDelay = time.Second

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrDenied         = errors.New("not allowed")
	ErrUsernameTaken  = errors.New("username already taken")
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateAccountDTO struct {
	Username   string `json:"username" binding:"required,min=3"`
	Password   string `json:"password" binding:"required,min=6"`
	Name       string `json:"name"`
	Mail       string `json:"mail"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

type SetRoleDTO struct {
	Role       string `json:"role" binding:"required"`
	Department string `json:"department"`
}

type UpdateProfileDTO struct {
	Name   *string `json:"name"`
	Mail   *string `json:"mail"`
	Avatar *string `json:"avatar"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type accountResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	Mail          string     `json:"mail"`
	Avatar        string     `json:"avatar"`
	Role          string     `json:"role"`
	Department    string     `json:"department"`
	LastLoginTime *time.Time `json:"last_login_time,omitempty"`
	LastLoginIP   string     `json:"last_login_ip,omitempty"`
}

type loginResponse struct {
	Token string           `json:"token"`
	User  *accountResponse `json:"user"`
}

func toResponse(u *models.UserModel) *accountResponse {
	return &accountResponse{
		ID:            u.ID,
		Username:      u.Username,
		Name:          u.Name,
		Mail:          u.Mail,
		Avatar:        u.Avatar,
		Role:          u.Role,
		Department:    u.Department,
		LastLoginTime: u.LastLoginTime,
		LastLoginIP:   u.LastLoginIP,
	}
}

// WelcomeMailer sends the initial account email. Satisfied by
// *mail.Sender; nil disables it.
type WelcomeMailer interface {
	SendWelcome(to string, data mail.WelcomeData) error
}

type Service struct {
	db       *gorm.DB
	mailer   WelcomeMailer
	siteName string
	loginURL string
	logger   *zap.Logger
}

func NewService(db *gorm.DB, mailer WelcomeMailer, siteName, loginURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, mailer: mailer, siteName: siteName, loginURL: loginURL, logger: logger}
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Login verifies credentials and issues a session-backed token.
// Failures pause before returning so the endpoint is useless for
// guessing.
func (s *Service) Login(username, password, ip, ua string) (string, *models.UserModel, error) {
	var u models.UserModel
	err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(failedLoginDelay)
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		time.Sleep(failedLoginDelay)
		return "", nil, ErrBadCredentials
	}

	now := time.Now()
	s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	token, _, err := sessionpkg.Issue(s.db, &u, ip, ua, sessionpkg.DefaultTTL)
	return token, &u, err
}

// Create enrolls a new account. HoDs may only enroll faculty in their
// own department; admins may enroll anyone.
func (s *Service) Create(actor lifecycle.Actor, dto *CreateAccountDTO) (*models.UserModel, error) {
	role := dto.Role
	if role == "" {
		role = models.RoleFaculty
	}
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	dept := strings.TrimSpace(dto.Department)
	switch actor.Role {
	case lifecycle.RoleAdmin:
		// unrestricted
	case lifecycle.RoleHod:
		if role != models.RoleFaculty {
			return nil, fmt.Errorf("%w: a HoD may only enroll faculty", ErrDenied)
		}
		if dept == "" {
			dept = actor.Department
		}
		if dept != actor.Department {
			return nil, fmt.Errorf("%w: a HoD may only enroll faculty of their own department", ErrDenied)
		}
	default:
		return nil, ErrDenied
	}

	if dept != "" && !models.ValidDepartment(dept) {
		return nil, fmt.Errorf("unknown department %q", dept)
	}
	if (role == models.RoleFaculty || role == models.RoleHod) && dept == "" {
		return nil, fmt.Errorf("department is required for the %s role", role)
	}

	var count int64
	s.db.Model(&models.UserModel{}).Where("username = ?", dto.Username).Count(&count)
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	name := dto.Name
	if name == "" {
		name = dto.Username
	}
	u := &models.UserModel{
		Username:   strings.TrimSpace(dto.Username),
		Password:   string(hash),
		Name:       name,
		Mail:       strings.TrimSpace(dto.Mail),
		Role:       role,
		Department: dept,
	}
	if err := s.db.Create(u).Error; err != nil {
		return nil, err
	}

	if s.mailer != nil && u.Mail != "" {
		data := mail.WelcomeData{
			Name:     u.Name,
			Username: u.Username,
			LoginURL: s.loginURL,
			SiteName: s.siteName,
		}
		to := u.Mail
		go func() {
			if err := s.mailer.SendWelcome(to, data); err != nil {
				s.logger.Warn("welcome mail failed", zap.String("user", to), zap.Error(err))
			}
		}()
	}
	return u, nil
}

// SetRole reassigns an account's role and department claims. Existing
// sessions are revoked so stale claims cannot linger in tokens.
func (s *Service) SetRole(actor lifecycle.Actor, userID string, dto *SetRoleDTO) (*models.UserModel, error) {
	if actor.Role != lifecycle.RoleAdmin {
		return nil, ErrDenied
	}
	if !models.ValidRole(dto.Role) {
		return nil, fmt.Errorf("unknown role %q", dto.Role)
	}
	dept := strings.TrimSpace(dto.Department)
	if dept != "" && !models.ValidDepartment(dept) {
		return nil, fmt.Errorf("unknown department %q", dept)
	}
	if (dto.Role == models.RoleFaculty || dto.Role == models.RoleHod) && dept == "" {
		return nil, fmt.Errorf("department is required for the %s role", dto.Role)
	}

	u, err := s.GetByID(userID)
	if err != nil || u == nil {
		return u, err
	}

	if err := s.db.Model(u).Updates(map[string]interface{}{
		"role":       dto.Role,
		"department": dept,
	}).Error; err != nil {
		return nil, err
	}
	u.Role = dto.Role
	u.Department = dept

	if err := sessionpkg.RevokeAll(s.db, u.ID, ""); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns accounts, optionally narrowed to one department.
// HoDs only ever see their own department.
func (s *Service) List(actor lifecycle.Actor, department string) ([]models.UserModel, error) {
	tx := s.db.Model(&models.UserModel{}).Order("created_at ASC")
	switch actor.Role {
	case lifecycle.RoleAdmin:
		if department != "" {
			tx = tx.Where("department = ?", department)
		}
	case lifecycle.RoleHod:
		tx = tx.Where("department = ?", actor.Department)
	default:
		return nil, ErrDenied
	}

	var users []models.UserModel
	err := tx.Find(&users).Error
	return users, err
}

func (s *Service) UpdateProfile(id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
		u.Name = *dto.Name
	}
	if dto.Mail != nil {
		updates["mail"] = *dto.Mail
		u.Mail = *dto.Mail
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
		u.Avatar = *dto.Avatar
	}
	if len(updates) == 0 {
		return u, nil
	}
	return u, s.db.Model(u).Updates(updates).Error
}

// ChangePassword verifies the old password, replaces it, and revokes
// every other session of the account.
func (s *Service) ChangePassword(id, sessionID, oldPwd, newPwd string) error {
	var u models.UserModel
	if err := s.db.Select("id, password").First(&u, "id = ?", id).Error; err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPwd)); err != nil {
		return ErrBadCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.db.Model(&u).Update("password", string(hash)).Error; err != nil {
		return err
	}
	return sessionpkg.RevokeAll(s.db, id, sessionID)
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/login", h.login)

	a := g.Group("", authMW)
	a.GET("/session", h.session)
	a.POST("/logout", h.logout)
	a.PATCH("/profile", h.updateProfile)
	a.PATCH("/password", h.changePassword)
	a.GET("/sessions", h.listSessions)
	a.DELETE("/sessions", h.revokeOtherSessions)
	a.DELETE("/sessions/:sessionId", h.revokeSession)

	users := rg.Group("/users", authMW)
	users.GET("", h.listAccounts)
	users.POST("", h.createAccount)
	users.PATCH("/:id/role", h.setRole)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}

	maxAge := int(sessionpkg.DefaultTTL / time.Second)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", false, true)
	response.OK(c, loginResponse{Token: token, User: toResponse(u)})
}

func (h *Handler) session(c *gin.Context) {
	u, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) logout(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if sid := middleware.CurrentSessionID(c); sid != "" {
		_ = sessionpkg.Revoke(h.svc.db, userID, sid)
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	response.NoContent(c)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.svc.ChangePassword(
		middleware.CurrentUserID(c),
		middleware.CurrentSessionID(c),
		dto.OldPassword, dto.NewPassword,
	)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			response.BadRequest(c, "wrong password")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := sessionpkg.ListActive(h.svc.db, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	current := middleware.CurrentSessionID(c)
	out := make([]gin.H, len(sessions))
	for i, s := range sessions {
		out[i] = gin.H{
			"id":         s.ID,
			"ip":         s.IP,
			"ua":         s.UA,
			"created":    s.CreatedAt,
			"expires_at": s.ExpiresAt,
			"current":    s.ID == current,
		}
	}
	response.OK(c, out)
}

func (h *Handler) revokeSession(c *gin.Context) {
	err := sessionpkg.Revoke(h.svc.db, middleware.CurrentUserID(c), c.Param("sessionId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) revokeOtherSessions(c *gin.Context) {
	err := sessionpkg.RevokeAll(h.svc.db, middleware.CurrentUserID(c), middleware.CurrentSessionID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listAccounts(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	users, err := h.svc.List(actor, c.Query("department"))
	if err != nil {
		if errors.Is(err, ErrDenied) {
			response.Forbidden(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	out := make([]*accountResponse, len(users))
	for i := range users {
		out[i] = toResponse(&users[i])
	}
	response.OK(c, out)
}

func (h *Handler) createAccount(c *gin.Context) {
	var dto CreateAccountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	actor := middleware.ActorFromContext(c)
	u, err := h.svc.Create(actor, &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrDenied):
			response.ForbiddenMsg(c, err.Error())
		case errors.Is(err, ErrUsernameTaken):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) setRole(c *gin.Context) {
	var dto SetRoleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	actor := middleware.ActorFromContext(c)
	u, err := h.svc.SetRole(actor, c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, ErrDenied) {
			response.Forbidden(c)
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}
