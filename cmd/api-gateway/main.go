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

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-monitor-api/api/swagger"
	"github.com/noah-isme/campus-monitor-api/internal/handler"
	"github.com/noah-isme/campus-monitor-api/internal/models"
	"github.com/noah-isme/campus-monitor-api/internal/repository"
	"github.com/noah-isme/campus-monitor-api/internal/router"
	"github.com/noah-isme/campus-monitor-api/internal/service"
	"github.com/noah-isme/campus-monitor-api/pkg/cache"
	"github.com/noah-isme/campus-monitor-api/pkg/config"
	"github.com/noah-isme/campus-monitor-api/pkg/database"
	"github.com/noah-isme/campus-monitor-api/pkg/jobs"
	"github.com/noah-isme/campus-monitor-api/pkg/logger"
)

// @title Campus Monitor API
// @version 1.0.0
// @description Category-scoped data collection with administrator review for the university monitoring dashboard.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// assignmentBackend and recordBackend are satisfied by both the in-memory and
// the PostgreSQL repositories.
type assignmentBackend interface {
	Create(ctx context.Context, assignment *models.PersonnelAssignment) error
	FindByUserAndCategory(ctx context.Context, userID string, category models.Category) (*models.PersonnelAssignment, error)
	ListByCategory(ctx context.Context, category models.Category) ([]models.PersonnelAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]models.PersonnelAssignment, error)
	Delete(ctx context.Context, category models.Category, id string) error
}

type recordBackend interface {
	Create(ctx context.Context, record *models.Record) error
	GetByID(ctx context.Context, id string) (*models.Record, error)
	Update(ctx context.Context, record *models.Record, expectedVersion int64) error
	Delete(ctx context.Context, id string, expectedVersion int64) error
	List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error)
}

const (
	shutdownTimeout = 10 * time.Second
	seedActor       = "system"
)

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

	readiness := map[string]handler.ReadinessCheck{}

	var (
		assignmentStore assignmentBackend
		recordStore     recordBackend
	)
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("connect postgres", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("migrate postgres", zap.Error(err))
		}
		assignmentStore = repository.NewAssignmentRepository(db)
		recordStore = repository.NewRecordRepository(db)
		readiness["postgres"] = pingCheck(db)
	default:
		assignmentStore = repository.NewMemoryAssignmentRepository()
		recordStore = repository.NewMemoryRecordRepository()
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Analytics.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			readiness["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, cacheRepo != nil)

	registry := service.NewAccessControlRegistry(assignmentStore, logr)
	if cfg.Store.SeedDemo {
		if err := registry.SeedDemo(ctx, seedActor); err != nil {
			logr.Fatal("seed demo assignments", zap.Error(err))
		}
	}

	invalidator := service.NewAnalyticsCacheInvalidator(cacheSvc, nil, logr)
	queue := jobs.NewQueue(service.AnalyticsInvalidationJob, invalidator.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	invalidator.AttachQueue(queue)

	workflow := service.NewRecordReviewWorkflow(recordStore, registry, logr,
		service.WithAdminBypassPending(cfg.Workflow.AdminBypassPending),
		service.WithPayloadSchemas(service.DefaultSchemas(validator.New())),
		service.WithRecordListeners(metrics, invalidator),
	)

	primePendingGauge(ctx, workflow, metrics, logr)

	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})

	engine := router.New(router.Dependencies{
		Config:    cfg,
		Logger:    logr,
		Tokens:    tokens,
		Registry:  registry,
		Workflow:  workflow,
		Analytics: service.NewAnalyticsService(workflow, cacheSvc, metrics, logr),
		Exports:   service.NewExportService(workflow, logr),
		Metrics:   metrics,
		Readiness: readiness,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// primePendingGauge seeds the pending-records gauge from what is already stored
// so a restart against PostgreSQL reports the real backlog.
func primePendingGauge(ctx context.Context, workflow *service.RecordReviewWorkflow, metrics *service.MetricsService, logr *zap.Logger) {
	for _, category := range models.Categories {
		pending, err := workflow.ListForCollection(ctx, category, "", models.RecordStatusPending)
		if err != nil {
			logr.Warn("count pending records", zap.String("category", string(category)), zap.Error(err))
			continue
		}
		metrics.SetPendingRecords(category, int64(len(pending)))
	}
}

func pingCheck(db *sqlx.DB) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
