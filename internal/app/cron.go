package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-showcase/core/internal/middleware"
	pkgcron "github.com/campus-showcase/core/internal/pkg/cron"
	pkgredis "github.com/campus-showcase/core/internal/pkg/redis"
	sessionpkg "github.com/campus-showcase/core/internal/pkg/session"
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs(rc *pkgredis.Client) {
	cronLogger := a.logger.Named("cron")
	db := a.db

	a.sched.Register(pkgcron.Job{
		Name:        "purge_expired_sessions",
		Description: "Delete login sessions past their expiry",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			deleted, err := sessionpkg.PurgeExpired(db, 24*time.Hour)
			if err != nil {
				cronLogger.Warn("session purge failed", zap.Error(err))
				return err
			}
			if deleted > 0 {
				cronLogger.Info(fmt.Sprintf("purged %d expired sessions", deleted))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "sweep_orphan_uploads",
		Description: "Remove uploads that were never attached to a project",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			if a.mediaSvc == nil {
				return nil
			}
			_, err := a.mediaSvc.SweepOrphans(ctx)
			return err
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "purge_http_cache",
		Description: "Drop cached anonymous GET responses so the gallery stays fresh",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			deleted, err := middleware.PurgeHTTPCache(ctx, rc)
			if err != nil {
				cronLogger.Warn("http cache purge failed", zap.Error(err))
				return err
			}
			if deleted > 0 {
				cronLogger.Info(fmt.Sprintf("purged %d cached responses", deleted))
			}
			return nil
		},
	})
}
