package middleware

import (
	"errors"
	"strings"

	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/pkg/jwt"
	"github.com/campus-showcase/core/internal/pkg/response"
	sessionpkg "github.com/campus-showcase/core/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ContextKeyUserID     = "user_id"
	ContextKeySID        = "session_id"
	ContextKeyRole       = "role"
	ContextKeyDepartment = "department"

	// SessionCookie carries the auth token for browser clients.
	SessionCookie = "__session"
)

// Auth returns a middleware that enforces JWT authentication.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateTokenClaims(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		setClaims(c, db, claims)
		c.Next()
	}
}

// OptionalAuth sets the caller identity if a valid token is present,
// but does not block the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := ValidateTokenClaims(db, extractToken(c)); err == nil && claims.UserID != "" {
			setClaims(c, db, claims)
		}
		c.Next()
	}
}

// RequireRole blocks requests whose authenticated role is not in the allowed set.
// Must run after Auth.
func RequireRole(roles ...lifecycle.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c)
	}
}

func setClaims(c *gin.Context, db *gorm.DB, claims *jwt.Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyRole, claims.Role)
	c.Set(ContextKeyDepartment, claims.Department)
	if claims.SessionID != "" {
		c.Set(ContextKeySID, claims.SessionID)
		sessionpkg.Touch(db, claims.UserID, claims.SessionID)
	}
}

// ValidateTokenClaims validates a JWT and checks its backing session.
func ValidateTokenClaims(db *gorm.DB, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}

	claims, err := jwt.Parse(token)
	if err != nil {
		return nil, err
	}
	active, err := sessionpkg.IsActive(db, claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, errors.New("session expired or revoked")
	}
	return claims, nil
}

// ActorFromContext builds the caller identity used by access decisions.
// Unauthenticated requests yield an anonymous actor.
func ActorFromContext(c *gin.Context) lifecycle.Actor {
	return lifecycle.Actor{
		UserID:     CurrentUserID(c),
		Role:       lifecycle.Role(c.GetString(ContextKeyRole)),
		Department: c.GetString(ContextKeyDepartment),
	}
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// CurrentSessionID extracts the authenticated session ID from context.
func CurrentSessionID(c *gin.Context) string {
	v, _ := c.Get(ContextKeySID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return NormalizeToken(cookie)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
