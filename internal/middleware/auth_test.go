package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func roleRouter(allowed ...lifecycle.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/op", func(c *gin.Context) {
		// stand-in for Auth: identity comes from headers set by the test
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(ContextKeyUserID, id)
			c.Set(ContextKeyRole, c.GetHeader("X-Test-Role"))
		}
	}, RequireRole(allowed...), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestRequireRole(t *testing.T) {
	r := roleRouter(lifecycle.RoleAdmin)

	do := func(user, role string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/op", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
			req.Header.Set("X-Test-Role", role)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("adm-1", string(lifecycle.RoleAdmin)))

	// an ordinary signed-in faculty must not reach admin-only operations
	assert.Equal(t, http.StatusForbidden, do("fac-1", string(lifecycle.RoleFaculty)))
	assert.Equal(t, http.StatusForbidden, do("hod-1", string(lifecycle.RoleHod)))
	assert.Equal(t, http.StatusForbidden, do("", ""))
}

func TestNormalizeTokenStripsBearer(t *testing.T) {
	assert.Equal(t, "tok", NormalizeToken(" Bearer tok "))
	assert.Equal(t, "tok", NormalizeToken("tok"))
	assert.Equal(t, "", NormalizeToken("  "))
}
