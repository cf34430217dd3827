// Package health exposes liveness and operations endpoints: a public
// status probe plus admin-only cron inspection and a mail round-trip
// test.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campus-showcase/core/internal/middleware"
	"github.com/campus-showcase/core/internal/models"
	"github.com/campus-showcase/core/internal/modules/lifecycle"
	"github.com/campus-showcase/core/internal/pkg/cron"
	pkgmail "github.com/campus-showcase/core/internal/pkg/mail"
	pkgredis "github.com/campus-showcase/core/internal/pkg/redis"
	"github.com/campus-showcase/core/internal/pkg/response"
)

var startedAt = time.Now()

func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, rdb *pkgredis.Client, sched *cron.Scheduler, mailer *pkgmail.Sender, logger *zap.Logger, authMW gin.HandlerFunc) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbOK := false
		if sqlDB, err := db.DB(); err == nil {
			dbOK = sqlDB.PingContext(ctx) == nil
		}

		redisOK := rdb != nil && rdb.Ping(ctx) == nil

		status := "ok"
		code := http.StatusOK
		if !dbOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":   status,
			"database": dbOK,
			"redis":    redisOK,
			"uptime":   time.Since(startedAt).Round(time.Second).String(),
		})
	})

	rg.GET("/health/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	admin := rg.Group("/health", authMW, middleware.RequireRole(lifecycle.RoleAdmin))
	{
		admin.GET("/cron", func(c *gin.Context) {
			items := sched.List()
			byName := make(map[string]cron.ListItem, len(items))
			for _, item := range items {
				byName[item.Name] = item
			}
			response.OK(c, byName)
		})

		admin.POST("/cron/run/:name", func(c *gin.Context) {
			if err := sched.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, gin.H{"message": "job triggered"})
		})

		admin.GET("/email/test", func(c *gin.Context) {
			if mailer == nil {
				response.UnprocessableEntity(c, "mail is not enabled")
				return
			}

			var me models.UserModel
			if err := db.First(&me, "id = ?", middleware.CurrentUserID(c)).Error; err != nil {
				response.InternalError(c, err)
				return
			}
			if me.Mail == "" {
				response.UnprocessableEntity(c, "your account has no email address")
				return
			}

			if err := mailer.Send(pkgmail.Message{
				To:      []string{me.Mail},
				Subject: "Campus Showcase mail test",
				HTML:    "<h1>Mail delivery works.</h1><p>If you received this, the portal's mail settings are correct.</p>",
			}); err != nil {
				logger.Warn("mail test failed", zap.Error(err))
				response.UnprocessableEntity(c, err.Error())
				return
			}
			response.OK(c, gin.H{"ok": true})
		})
	}
}
