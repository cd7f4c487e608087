package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-monitor-api/internal/middleware"
	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
	"github.com/noah-isme/campus-monitor-api/pkg/response"
)

type analyticsService interface {
	Summary(ctx context.Context, category models.Category, period string) (*models.CategorySummary, bool, error)
	Overview(ctx context.Context, period string) ([]models.CategorySummary, error)
	SystemMetrics() models.SystemMetrics
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary godoc
// @Summary Aggregate approved records of a category
// @Tags Analytics
// @Produce json
// @Param category path string true "Category"
// @Param period query string false "Period"
// @Success 200 {object} response.Envelope
// @Router /categories/{category}/analytics [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, cacheHit, err := h.analytics.Summary(c.Request.Context(), category, c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Overview godoc
// @Summary Aggregate approved records across every category
// @Tags Analytics
// @Produce json
// @Param period query string false "Period"
// @Success 200 {object} response.Envelope
// @Router /analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summaries, err := h.analytics.Overview(c.Request.Context(), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil, middleware.ExtractMeta(c))
}

// System godoc
// @Summary Process instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}
