package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-monitor-api/internal/dto"
	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
	"github.com/noah-isme/campus-monitor-api/pkg/response"
)

type assignmentRegistry interface {
	AddAssignment(ctx context.Context, assignment *models.PersonnelAssignment) (*models.PersonnelAssignment, error)
	RemoveAssignment(ctx context.Context, category models.Category, assignmentID string) error
	ListAssignments(ctx context.Context, category models.Category) ([]models.PersonnelAssignment, error)
}

// AssignmentHandler lets administrators manage personnel assignments.
type AssignmentHandler struct {
	registry assignmentRegistry
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(registry assignmentRegistry) *AssignmentHandler {
	return &AssignmentHandler{registry: registry}
}

// List godoc
// @Summary List personnel assignments
// @Tags Assignments
// @Produce json
// @Param category query string false "Category; all categories when omitted"
// @Success 200 {object} response.Envelope
// @Router /admin/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	categories := models.Categories
	if raw := c.Query("category"); raw != "" {
		categories = []models.Category{models.ParseCategory(raw)}
	}
	result := make([]models.PersonnelAssignment, 0)
	for _, category := range categories {
		assignments, err := h.registry.ListAssignments(c.Request.Context(), category)
		if err != nil {
			response.Error(c, err)
			return
		}
		result = append(result, assignments...)
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Grant a user capabilities in a category
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	assignment, err := h.registry.AddAssignment(c.Request.Context(), req.Assignment(actor.UserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Delete godoc
// @Summary Remove a personnel assignment
// @Tags Assignments
// @Param category path string true "Category"
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /admin/assignments/{category}/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	category, err := categoryFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.registry.RemoveAssignment(c.Request.Context(), category, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
