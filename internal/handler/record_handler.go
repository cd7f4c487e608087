package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-monitor-api/internal/dto"
	"github.com/noah-isme/campus-monitor-api/internal/models"
	"github.com/noah-isme/campus-monitor-api/internal/service"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
	"github.com/noah-isme/campus-monitor-api/pkg/response"
)

const defaultPageSize = 10

type recordWorkflow interface {
	Submit(ctx context.Context, actor models.Actor, category models.Category, payload json.RawMessage, period string) (*models.Record, error)
	Edit(ctx context.Context, actor models.Actor, category models.Category, id string, input service.EditInput) (*models.Record, error)
	Remove(ctx context.Context, actor models.Actor, category models.Category, id string) error
	Review(ctx context.Context, actor models.Actor, category models.Category, id string, input service.ReviewInput) (*models.Record, error)
	Get(ctx context.Context, category models.Category, id string) (*models.Record, error)
	ListForCollection(ctx context.Context, category models.Category, period string, statuses ...models.RecordStatus) ([]models.Record, error)
}

// RecordHandler exposes the review workflow over REST.
type RecordHandler struct {
	workflow recordWorkflow
	pageSize int
}

// NewRecordHandler constructs the handler. pageSize falls back to 10.
func NewRecordHandler(workflow recordWorkflow, pageSize int) *RecordHandler {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &RecordHandler{workflow: workflow, pageSize: pageSize}
}

// List godoc
// @Summary List records for the collection view
// @Tags Records
// @Produce json
// @Param category path string true "Category"
// @Param period query string false "Period, e.g. 2024 or 2023-2024"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /categories/{category}/records [get]
func (h *RecordHandler) List(c *gin.Context) {
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.RecordQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	records, err := h.workflow.ListForCollection(c.Request.Context(), category, query.Period, parseStatuses(query.Status)...)
	if err != nil {
		response.Error(c, err)
		return
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	start := len(records)
	if pages := (len(records) + h.pageSize - 1) / h.pageSize; page <= pages {
		start = (page - 1) * h.pageSize
	}
	end := start + h.pageSize
	if end > len(records) {
		end = len(records)
	}
	response.JSON(c, http.StatusOK, records[start:end], &models.Pagination{
		Page:       page,
		PageSize:   h.pageSize,
		TotalCount: len(records),
	})
}

// Get godoc
// @Summary Get a record
// @Tags Records
// @Produce json
// @Param category path string true "Category"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{category}/records/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.workflow.Get(c.Request.Context(), category, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Submit godoc
// @Summary Submit a record for review
// @Tags Records
// @Accept json
// @Produce json
// @Param category path string true "Category"
// @Param payload body dto.SubmitRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Router /categories/{category}/records [post]
func (h *RecordHandler) Submit(c *gin.Context) {
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid record payload"))
		return
	}
	record, err := h.workflow.Submit(c.Request.Context(), actor, category, req.Payload, req.Period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Edit a record, sending it back to pending
// @Tags Records
// @Accept json
// @Produce json
// @Param category path string true "Category"
// @Param id path string true "Record ID"
// @Param payload body dto.EditRecordRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Router /categories/{category}/records/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.EditRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid record payload"))
		return
	}
	record, err := h.workflow.Edit(c.Request.Context(), actor, category, c.Param("id"), service.EditInput{
		Payload:         req.Payload,
		Period:          req.Period,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Remove a record
// @Tags Records
// @Param category path string true "Category"
// @Param id path string true "Record ID"
// @Success 204
// @Router /categories/{category}/records/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.workflow.Remove(c.Request.Context(), actor, category, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Review godoc
// @Summary Approve or reject a pending record
// @Tags Records
// @Accept json
// @Produce json
// @Param category path string true "Category"
// @Param id path string true "Record ID"
// @Param payload body dto.ReviewRecordRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /categories/{category}/records/{id}/review [post]
func (h *RecordHandler) Review(c *gin.Context) {
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReviewRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "decision must be approve or reject"))
		return
	}
	record, err := h.workflow.Review(c.Request.Context(), actor, category, c.Param("id"), service.ReviewInput{
		Decision:        req.Decision,
		Note:            req.Note,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

func parseStatuses(raw []string) []models.RecordStatus {
	statuses := make([]models.RecordStatus, 0, len(raw))
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				statuses = append(statuses, models.RecordStatus(part))
			}
		}
	}
	return statuses
}
