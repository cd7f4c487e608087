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

type permissionRegistry interface {
	GetPermissions(ctx context.Context, userID string, role models.UserRole, category models.Category) models.Permissions
	CanPerformAnyCRUD(ctx context.Context, userID string, role models.UserRole, category models.Category) bool
	AssignmentsForUser(ctx context.Context, userID string) ([]models.PersonnelAssignment, error)
}

// MeHandler answers what the calling user may do.
type MeHandler struct {
	registry permissionRegistry
}

// NewMeHandler constructs the handler.
func NewMeHandler(registry permissionRegistry) *MeHandler {
	return &MeHandler{registry: registry}
}

// Permissions godoc
// @Summary Resolve the caller's permissions in a category
// @Tags Me
// @Produce json
// @Param category path string true "Category"
// @Success 200 {object} response.Envelope
// @Router /me/permissions/{category} [get]
func (h *MeHandler) Permissions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	category := models.ParseCategory(c.Param("category"))
	ctx := c.Request.Context()
	response.JSON(c, http.StatusOK, dto.PermissionsResponse{
		Category:    category,
		Role:        actor.Role,
		Permissions: h.registry.GetPermissions(ctx, actor.UserID, actor.Role, category),
		CanCollect:  h.registry.CanPerformAnyCRUD(ctx, actor.UserID, actor.Role, category),
	}, nil)
}

// Assignments godoc
// @Summary List the caller's category assignments
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/assignments [get]
func (h *MeHandler) Assignments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	assignments, err := h.registry.AssignmentsForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
