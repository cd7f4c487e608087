package models

import "time"

// Permissions is the capability set resolved for a user within one category.
// The flags are independent; none implies another.
type Permissions struct {
	CanAdd     bool `json:"can_add"`
	CanEdit    bool `json:"can_edit"`
	CanDelete  bool `json:"can_delete"`
	CanApprove bool `json:"can_approve"`
}

// Any reports whether at least one CRUD flag is set.
func (p Permissions) Any() bool {
	return p.CanAdd || p.CanEdit || p.CanDelete
}

// AllPermissions is what administrators resolve to.
var AllPermissions = Permissions{CanAdd: true, CanEdit: true, CanDelete: true, CanApprove: true}

// PersonnelAssignment grants one non-admin user capabilities within one category.
type PersonnelAssignment struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	Role       UserRole  `db:"role" json:"role"`
	Category   Category  `db:"category" json:"category"`
	CanAdd     bool      `db:"can_add" json:"can_add"`
	CanEdit    bool      `db:"can_edit" json:"can_edit"`
	CanDelete  bool      `db:"can_delete" json:"can_delete"`
	AssignedBy string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// Permissions projects the stored flags. Approval is never delegated.
func (a PersonnelAssignment) Permissions() Permissions {
	return Permissions{CanAdd: a.CanAdd, CanEdit: a.CanEdit, CanDelete: a.CanDelete}
}
