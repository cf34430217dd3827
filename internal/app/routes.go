package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-showcase/core/internal/middleware"
	"github.com/campus-showcase/core/internal/modules/accounts"
	"github.com/campus-showcase/core/internal/modules/dashboard"
	"github.com/campus-showcase/core/internal/modules/explorer"
	"github.com/campus-showcase/core/internal/modules/gateway"
	"github.com/campus-showcase/core/internal/modules/health"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/modules/media"
	"github.com/campus-showcase/core/internal/modules/project"
	pkgredis "github.com/campus-showcase/core/internal/pkg/redis"
	"github.com/campus-showcase/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "campus-showcase-core",
		"version": "1.0.0",
	}

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc))
	r.Use(middleware.Idempotence(rc))

	root := r.Group("")

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.HTTPCache(rc, middleware.HTTPCacheOptions{
		TTL:       15 * time.Second,
		Disable:   a.cfg.IsDev(),
		SkipPaths: httpCacheSkipPaths(),
	}))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptime := time.Since(processStart)
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptime.Milliseconds(),
			"humanize":  humanizeDuration(uptime),
		})
	})
	api.GET("/server-time", func(c *gin.Context) {
		t2 := time.Now().UnixMilli()
		c.JSON(http.StatusOK, gin.H{
			"t2": t2,
			"t3": time.Now().UnixMilli(),
		})
	})

	api.GET("/clean_cache", authMW, middleware.RequireRole(lifecycle.RoleAdmin), func(c *gin.Context) {
		deleted, err := middleware.PurgeHTTPCache(c.Request.Context(), rc)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
	})

	// Infrastructure
	health.RegisterRoutes(api, db, rc, a.sched, a.mailer, a.logger, authMW)

	// Accounts & sessions
	var welcomeMailer accounts.WelcomeMailer
	if a.mailer != nil {
		welcomeMailer = a.mailer
	}
	accountsSvc := accounts.NewService(db, welcomeMailer, a.cfg.Site.Name, a.cfg.Site.WebURL+"/login", a.logger)
	accounts.NewHandler(accountsSvc).RegisterRoutes(api, authMW)

	// Media uploads
	uploader, err := media.NewS3Uploader(a.cfg.S3)
	var mediaSvc *media.Service
	if err != nil {
		a.logger.Warn("object storage disabled", zap.Error(err))
		mediaSvc = media.NewService(db, media.DisabledUploader(), a.logger)
	} else {
		mediaSvc = media.NewService(db, uploader, a.logger)
	}
	media.NewHandler(mediaSvc).RegisterRoutes(api, authMW)
	a.mediaSvc = mediaSvc

	// Project lifecycle (faculty / HoD / admin surface)
	var decisionMailer project.DecisionMailer
	if a.mailer != nil {
		decisionMailer = a.mailer
	}
	projectSvc := project.NewService(db, a.hub, decisionMailer, mediaSvc, a.cfg.ProjectURL, a.cfg.Site.Name, a.logger)
	project.NewHandler(projectSvc).RegisterRoutes(api, authMW)

	// Public gallery
	explorer.NewHandler(explorer.NewService(db), rc).RegisterRoutes(api)

	// Role dashboards
	dashboard.NewHandler(dashboard.NewService(db)).RegisterRoutes(api, authMW)

	// WebSocket gateway
	gateway.RegisterRoutes(root, a.hub)
}

func httpCacheSkipPaths() []string {
	return []string{
		apiPrefix + "/uptime",
		apiPrefix + "/server-time",
		apiPrefix + "/clean_cache",
		apiPrefix + "/health",
		apiPrefix + "/health/*",
		apiPrefix + "/auth/*",
		apiPrefix + "/dashboard/*",
	}
}
