package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-monitor-api/internal/handler"
	"github.com/noah-isme/campus-monitor-api/internal/middleware"
	"github.com/noah-isme/campus-monitor-api/internal/models"
	"github.com/noah-isme/campus-monitor-api/internal/service"
	"github.com/noah-isme/campus-monitor-api/pkg/config"
	"github.com/noah-isme/campus-monitor-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-monitor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-monitor-api/pkg/middleware/requestid"
)

// Dependencies is everything the HTTP surface is built from.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Tokens    middleware.TokenValidator
	Registry  *service.AccessControlRegistry
	Workflow  *service.RecordReviewWorkflow
	Analytics *service.AnalyticsService
	Exports   *service.ExportService
	Metrics   *service.MetricsService
	Readiness map[string]handler.ReadinessCheck
}

// New wires handlers and middleware into a gin engine.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.Metrics.Handler(), deps.Readiness)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	records := handler.NewRecordHandler(deps.Workflow, cfg.Workflow.PageSize)
	assignments := handler.NewAssignmentHandler(deps.Registry)
	me := handler.NewMeHandler(deps.Registry)
	analytics := handler.NewAnalyticsHandler(deps.Analytics)
	exports := handler.NewExportHandler(deps.Exports)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.Tokens))

	api.GET("/me/permissions/:category", me.Permissions)
	api.GET("/me/assignments", me.Assignments)

	categories := api.Group("/categories/:" + middleware.CategoryParam)
	categories.GET("/records", middleware.RequireCategoryAccess(deps.Registry), records.List)
	categories.POST("/records", records.Submit)
	categories.GET("/records/:id", middleware.RequireCategoryAccess(deps.Registry), records.Get)
	categories.PUT("/records/:id", records.Update)
	categories.DELETE("/records/:id", records.Delete)
	categories.POST("/records/:id/review", records.Review)
	categories.GET("/analytics", analytics.Summary)
	categories.GET("/export", exports.Export)

	api.GET("/analytics/overview", analytics.Overview)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/assignments", assignments.List)
	admin.POST("/assignments", assignments.Create)
	admin.DELETE("/assignments/:category/:id", assignments.Delete)
	admin.GET("/system", analytics.System)

	return r
}
