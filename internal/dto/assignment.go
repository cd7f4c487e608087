package dto

import "github.com/noah-isme/campus-monitor-api/internal/models"

// CreateAssignmentRequest grants a non-admin user capabilities in one category.
type CreateAssignmentRequest struct {
	UserID    string          `json:"user_id" binding:"required,email"`
	Name      string          `json:"name" binding:"max=200"`
	Role      models.UserRole `json:"role" binding:"required"`
	Category  models.Category `json:"category" binding:"required"`
	CanAdd    bool            `json:"can_add"`
	CanEdit   bool            `json:"can_edit"`
	CanDelete bool            `json:"can_delete"`
}

// Assignment converts the request into the model handed to the registry.
func (r CreateAssignmentRequest) Assignment(assignedBy string) *models.PersonnelAssignment {
	return &models.PersonnelAssignment{
		UserID:     r.UserID,
		Name:       r.Name,
		Role:       r.Role,
		Category:   r.Category,
		CanAdd:     r.CanAdd,
		CanEdit:    r.CanEdit,
		CanDelete:  r.CanDelete,
		AssignedBy: assignedBy,
	}
}

// PermissionsResponse is returned by the "my permissions" endpoint.
type PermissionsResponse struct {
	Category    models.Category    `json:"category"`
	Role        models.UserRole    `json:"role"`
	Permissions models.Permissions `json:"permissions"`
	CanCollect  bool               `json:"can_collect"`
}
