package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-monitor-api/internal/dto"
	"github.com/noah-isme/campus-monitor-api/internal/models"
	"github.com/noah-isme/campus-monitor-api/internal/service"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
	"github.com/noah-isme/campus-monitor-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, category models.Category, period, format string) (*service.ExportFile, error)
}

// ExportHandler streams approved records as documents.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Export godoc
// @Summary Download approved records
// @Tags Export
// @Produce octet-stream
// @Param category path string true "Category"
// @Param period query string false "Period"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /categories/{category}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	file, err := h.exports.Export(c.Request.Context(), category, query.Period, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
