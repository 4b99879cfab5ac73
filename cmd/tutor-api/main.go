package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/longtq2501/Tutor-Pro-sub000/api/swagger"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/handler"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/middleware"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/repository"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/service"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/cache"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/config"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/database"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/logger"
	corsmiddleware "github.com/longtq2501/Tutor-Pro-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/longtq2501/Tutor-Pro-sub000/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title Tutor Pro Billing API
// @version 1.0.0
// @description Session lifecycle and invoice aggregation
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, stats cache and notifications disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	sessionRepo := repository.NewSessionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && redisClient != nil)

	sessionOpts := []service.SessionServiceOption{
		service.WithStatsInvalidator(cacheSvc),
		service.WithSessionMetrics(metrics),
	}
	if cfg.Notifications.Enabled && redisClient != nil {
		sink := repository.NewNotificationRepository(redisClient, cfg.Notifications.Channel)
		publisher := service.NewQueueEventPublisher(sink, cfg.Notifications, metrics, logr)
		publisher.Start(ctx)
		defer publisher.Stop()
		sessionOpts = append(sessionOpts, service.WithSessionEvents(publisher))
	}

	sessionSvc := service.NewSessionService(sessionRepo, studentRepo, validate, logr, sessionOpts...)
	invoiceSvc := service.NewInvoiceService(sessionRepo, studentRepo, sequenceRepo, cfg.Billing, validate, logr, service.WithInvoiceMetrics(metrics))
	statsSvc := service.NewStatsService(sessionRepo, cacheSvc, cfg.Stats.CacheTTL, logr, service.WithStatsMetrics(metrics))
	reportSvc := service.NewReportService(sessionRepo, validate, logr)
	calendarSvc := service.NewCalendarService(sessionRepo, cfg.Calendar.Name, calendarLocation(cfg.Calendar.Timezone, logr), validate, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = redisPinger(redisClient)
	}

	handlers := routeHandlers{
		sessions: handler.NewSessionHandler(sessionSvc),
		invoices: handler.NewInvoiceHandler(invoiceSvc),
		stats:    handler.NewStatsHandler(statsSvc),
		reports:  handler.NewReportHandler(reportSvc, calendarSvc),
		ops:      handler.NewMetricsHandler(metrics, checks),
	}
	router := newRouter(cfg, logr, metrics, service.NewTokenVerifier(cfg.JWT), handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routeHandlers struct {
	sessions *handler.SessionHandler
	invoices *handler.InvoiceHandler
	stats    *handler.StatsHandler
	reports  *handler.ReportHandler
	ops      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, verifier *service.TokenVerifier, h routeHandlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	r.GET("/metrics", h.ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(verifier), middleware.RequireRoles(models.RoleAdmin, models.RoleTutor))

	sessions := api.Group("/sessions")
	sessions.POST("", h.sessions.Create)
	sessions.GET("", h.sessions.List)
	sessions.GET("/unpaid", h.sessions.Unpaid)
	sessions.GET("/months", h.sessions.Months)
	sessions.DELETE("/months/:month", middleware.RequireRoles(models.RoleAdmin), h.sessions.DeleteByMonth)
	sessions.GET("/:id", h.sessions.Get)
	sessions.PATCH("/:id", h.sessions.Edit)
	sessions.DELETE("/:id", h.sessions.Delete)
	sessions.POST("/:id/toggle-payment", h.sessions.TogglePayment)
	sessions.PUT("/:id/status", h.sessions.UpdateStatus)
	sessions.POST("/:id/duplicate", h.sessions.Duplicate)

	api.POST("/invoices", h.invoices.Generate)
	api.GET("/stats/monthly", h.stats.Monthly)
	api.GET("/stats/summary", h.stats.Summary)
	api.GET("/reports/sessions", h.reports.Sessions)
	api.GET("/calendar/sessions.ics", h.reports.Calendar)

	return r
}

func redisPinger(client *redis.Client) handler.PingerFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func calendarLocation(name string, logr *zap.Logger) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logr.Warn("unknown calendar timezone, using UTC", zap.String("timezone", name), zap.Error(err))
		return time.UTC
	}
	return loc
}
