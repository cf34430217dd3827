package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campus-showcase/core/internal/config"
	"github.com/campus-showcase/core/internal/database"
	"github.com/campus-showcase/core/internal/middleware"
	"github.com/campus-showcase/core/internal/modules/gateway"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/modules/media"
	pkgcron "github.com/campus-showcase/core/internal/pkg/cron"
	jwtpkg "github.com/campus-showcase/core/internal/pkg/jwt"
	pkgmail "github.com/campus-showcase/core/internal/pkg/mail"
	pkgredis "github.com/campus-showcase/core/internal/pkg/redis"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	hub    *gateway.Hub
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
	mailer *pkgmail.Sender

	mediaSvc *media.Service
}

// New initializes the application: config, database, Redis, routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.Redis.URLValue())
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "x-cache"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	var mailer *pkgmail.Sender
	if cfg.Mail.Enable {
		mailer = pkgmail.New(pkgmail.Config{
			Enable:    cfg.Mail.Enable,
			Host:      cfg.Mail.Host,
			Port:      cfg.Mail.Port,
			User:      cfg.Mail.User,
			Pass:      cfg.Mail.Pass,
			From:      cfg.Mail.From,
			ReplyTo:   cfg.Mail.ReplyTo,
			UseResend: cfg.Mail.UseResend,
			ResendKey: cfg.Mail.ResendKey,
		})
	}

	// Only reviewer accounts may attach to the /review namespace.
	hub := gateway.NewHub(rc, logger, func(token string) bool {
		claims, err := middleware.ValidateTokenClaims(db, token)
		if err != nil {
			return false
		}
		role := lifecycle.Role(claims.Role)
		return role == lifecycle.RoleHod || role == lifecycle.RoleAdmin
	})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		hub:    hub,
		logger: logger,
		cancel: cancel,
		mailer: mailer,
	}

	app.sched = pkgcron.New()
	app.registerRoutes(rc)
	app.registerCronJobs(rc)
	go app.sched.Start(ctx)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }

var processStart = time.Now()
