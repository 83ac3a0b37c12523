package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openkb/review-core/internal/middleware"
	"github.com/openkb/review-core/internal/modules/aireview"
	"github.com/openkb/review-core/internal/modules/auditlog"
	"github.com/openkb/review-core/internal/modules/modelpool"
	"github.com/openkb/review-core/internal/modules/notify"
	"github.com/openkb/review-core/internal/modules/review"
	"github.com/openkb/review-core/internal/modules/tasks"
	pkgredis "github.com/openkb/review-core/internal/pkg/redis"
	"github.com/openkb/review-core/internal/pkg/response"
	"github.com/openkb/review-core/internal/pkg/taskqueue"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "review-core",
		"version": "1.0.0",
	}

	// Services
	notifySvc := notify.New(db, rc, a.logger)
	reviewSvc := review.NewService(db, notifySvc, a.logger)

	poolSvc := modelpool.NewService(db)
	counters := modelpool.NewRedisCounterStore(rc)
	selector := modelpool.NewSelector(poolSvc, counters, a.logger)

	aiSvc := aireview.NewService(db, selector, reviewSvc, a.cfg.Review, a.logger)

	taskSvc := taskqueue.NewService(rc)
	runner := aireview.NewTaskRunner(aiSvc, taskSvc, a.cfg.Review, a.logger)
	reviewSvc.SetAutoReviewEnqueuer(runner.EnqueueAutoReview)

	a.worker = taskqueue.NewWorker(taskSvc, a.logger, a.cfg.Workers, a.cfg.Review.RetryBackoff)
	runner.RegisterExecutors(a.worker)

	auditSvc := auditlog.NewService(db)

	// Versioned API
	api := r.Group("/api/v2")
	api.Use(middleware.OptionalAuth())

	api.GET("", func(c *gin.Context) {
		response.OK(c, appInfo)
	})
	api.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"pong": time.Now().Unix()})
	})

	review.NewHandler(reviewSvc).RegisterRoutes(api, authMW)
	aireview.NewHandler(runner, aiSvc).RegisterRoutes(api, authMW)
	modelpool.NewHandler(poolSvc).RegisterRoutes(api, authMW)
	auditlog.NewHandler(auditSvc).RegisterRoutes(api, authMW)
	tasks.NewHandler(taskSvc).RegisterRoutes(api, authMW)
	notify.NewHandler(notifySvc).RegisterRoutes(api, authMW)
}
