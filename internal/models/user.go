package models

import "strings"

// UserRole represents the roles understood by the access-control registry.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleStaff  UserRole = "STAFF"
	RoleEditor UserRole = "EDITOR"
	RoleViewer UserRole = "VIEWER"
)

// ParseRole normalises a role string coming from the session layer.
// Anything unrecognised is treated as the non-privileged viewer role.
func ParseRole(raw string) UserRole {
	switch UserRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleStaff:
		return RoleStaff
	case RoleEditor:
		return RoleEditor
	default:
		return RoleViewer
	}
}

// Assignable reports whether the role may hold a personnel assignment.
func (r UserRole) Assignable() bool {
	return r == RoleStaff || r == RoleEditor
}

// Actor identifies who is performing a workflow operation.
type Actor struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// NormalizeUserID canonicalises an email-style identity for comparisons.
func NormalizeUserID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
