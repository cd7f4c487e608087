package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-monitor-api/internal/models"
)

const assignmentColumns = `id, user_id, name, role, category, can_add, can_edit, can_delete, assigned_by, assigned_at`

// AssignmentRepository persists personnel assignments in PostgreSQL.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts a new assignment. The (user_id, category) unique key maps to ErrDuplicate.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.PersonnelAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.UserID = models.NormalizeUserID(assignment.UserID)
	const query = `INSERT INTO personnel_assignments (` + assignmentColumns + `)
	VALUES (:id, :user_id, :name, :role, :category, :can_add, :can_edit, :can_delete, :assigned_by, :assigned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// FindByUserAndCategory returns sql.ErrNoRows when the user holds no grant.
func (r *AssignmentRepository) FindByUserAndCategory(ctx context.Context, userID string, category models.Category) (*models.PersonnelAssignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM personnel_assignments WHERE user_id = $1 AND category = $2`
	var assignment models.PersonnelAssignment
	if err := r.db.GetContext(ctx, &assignment, query, models.NormalizeUserID(userID), category); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByCategory returns assignments for the category, oldest first.
func (r *AssignmentRepository) ListByCategory(ctx context.Context, category models.Category) ([]models.PersonnelAssignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM personnel_assignments WHERE category = $1 ORDER BY assigned_at, id`
	assignments := make([]models.PersonnelAssignment, 0)
	if err := r.db.SelectContext(ctx, &assignments, query, category); err != nil {
		return nil, fmt.Errorf("list assignments by category: %w", err)
	}
	return assignments, nil
}

// ListByUser returns every grant held by the user.
func (r *AssignmentRepository) ListByUser(ctx context.Context, userID string) ([]models.PersonnelAssignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM personnel_assignments WHERE user_id = $1 ORDER BY assigned_at, id`
	assignments := make([]models.PersonnelAssignment, 0)
	if err := r.db.SelectContext(ctx, &assignments, query, models.NormalizeUserID(userID)); err != nil {
		return nil, fmt.Errorf("list assignments by user: %w", err)
	}
	return assignments, nil
}

// Delete removes the assignment. It returns sql.ErrNoRows when nothing matched.
func (r *AssignmentRepository) Delete(ctx context.Context, category models.Category, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM personnel_assignments WHERE id = $1 AND category = $2`, id, category)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check assignment delete rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
