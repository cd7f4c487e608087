package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	"github.com/noah-isme/campus-monitor-api/internal/repository"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
)

type assignmentStore interface {
	Create(ctx context.Context, assignment *models.PersonnelAssignment) error
	FindByUserAndCategory(ctx context.Context, userID string, category models.Category) (*models.PersonnelAssignment, error)
	ListByCategory(ctx context.Context, category models.Category) ([]models.PersonnelAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]models.PersonnelAssignment, error)
	Delete(ctx context.Context, category models.Category, id string) error
}

// AccessControlRegistry answers per-category permission queries and manages
// the personnel assignments behind them.
type AccessControlRegistry struct {
	store  assignmentStore
	logger *zap.Logger
	now    func() time.Time

	// serialises the uniqueness check with the insert
	mu sync.Mutex
}

// NewAccessControlRegistry constructs a registry over the given store.
func NewAccessControlRegistry(store assignmentStore, logger *zap.Logger) *AccessControlRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessControlRegistry{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetPermissions resolves the capability set of a user within a category.
// Administrators receive everything without a lookup; an unknown user or
// category simply resolves to no permissions.
func (r *AccessControlRegistry) GetPermissions(ctx context.Context, userID string, role models.UserRole, category models.Category) models.Permissions {
	if role == models.RoleAdmin {
		return models.AllPermissions
	}
	if !category.Valid() || strings.TrimSpace(userID) == "" {
		return models.Permissions{}
	}
	assignment, err := r.store.FindByUserAndCategory(ctx, userID, category)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("assignment lookup failed",
				zap.String("user_id", userID),
				zap.String("category", string(category)),
				zap.Error(err))
		}
		return models.Permissions{}
	}
	return assignment.Permissions()
}

// CanPerformAnyCRUD reports whether the collection view should be offered at all.
func (r *AccessControlRegistry) CanPerformAnyCRUD(ctx context.Context, userID string, role models.UserRole, category models.Category) bool {
	if role == models.RoleAdmin {
		return true
	}
	return r.GetPermissions(ctx, userID, role, category).Any()
}

// AddAssignment grants a non-admin user capabilities in one category.
func (r *AccessControlRegistry) AddAssignment(ctx context.Context, assignment *models.PersonnelAssignment) (*models.PersonnelAssignment, error) {
	if assignment == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment is required")
	}
	candidate := *assignment
	candidate.UserID = models.NormalizeUserID(candidate.UserID)
	candidate.Name = strings.TrimSpace(candidate.Name)
	candidate.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(string(candidate.Role))))
	candidate.Category = models.ParseCategory(string(candidate.Category))

	if candidate.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	if !candidate.Role.Assignable() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only STAFF or EDITOR users can hold assignments")
	}
	if !candidate.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	if candidate.AssignedAt.IsZero() {
		candidate.AssignedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.FindByUserAndCategory(ctx, candidate.UserID, candidate.Category); err == nil {
		return nil, appErrors.ErrDuplicateAssignment
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if err := r.store.Create(ctx, &candidate); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrDuplicateAssignment
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	r.logger.Info("assignment added",
		zap.String("assignment_id", candidate.ID),
		zap.String("user_id", candidate.UserID),
		zap.String("category", string(candidate.Category)),
		zap.String("assigned_by", candidate.AssignedBy))
	return &candidate, nil
}

// RemoveAssignment deletes an assignment. An unknown id is not an error.
func (r *AccessControlRegistry) RemoveAssignment(ctx context.Context, category models.Category, assignmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, category, assignmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	r.logger.Info("assignment removed",
		zap.String("assignment_id", assignmentID),
		zap.String("category", string(category)))
	return nil
}

// ListAssignments returns the grants within a category, oldest first.
func (r *AccessControlRegistry) ListAssignments(ctx context.Context, category models.Category) ([]models.PersonnelAssignment, error) {
	if !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	assignments, err := r.store.ListByCategory(ctx, category)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// AssignmentsForUser lists the categories the user may work in.
func (r *AccessControlRegistry) AssignmentsForUser(ctx context.Context, userID string) ([]models.PersonnelAssignment, error) {
	if strings.TrimSpace(userID) == "" {
		return []models.PersonnelAssignment{}, nil
	}
	assignments, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list user assignments")
	}
	return assignments, nil
}

// DemoAssignments is the fixture loaded when SEED_DEMO_DATA is enabled.
var DemoAssignments = []models.PersonnelAssignment{
	{UserID: "staff.hr@campus.edu", Name: "HR Staff", Role: models.RoleStaff, Category: models.CategoryStaff, CanAdd: true, CanEdit: true},
	{UserID: "staff.hr@campus.edu", Name: "HR Staff", Role: models.RoleStaff, Category: models.CategoryFaculty, CanAdd: true, CanEdit: true},
	{UserID: "registrar@campus.edu", Name: "Registrar", Role: models.RoleStaff, Category: models.CategoryStudents, CanAdd: true, CanEdit: true, CanDelete: true},
	{UserID: "gad.focal@campus.edu", Name: "GAD Focal Person", Role: models.RoleEditor, Category: models.CategoryGPB, CanAdd: true, CanEdit: true},
	{UserID: "gad.focal@campus.edu", Name: "GAD Focal Person", Role: models.RoleEditor, Category: models.CategoryPWD, CanAdd: true, CanEdit: true},
	{UserID: "gad.focal@campus.edu", Name: "GAD Focal Person", Role: models.RoleEditor, Category: models.CategoryIndigenous, CanAdd: true, CanEdit: true},
	{UserID: "budget.officer@campus.edu", Name: "Budget Officer", Role: models.RoleEditor, Category: models.CategoryBudget, CanAdd: true, CanEdit: true, CanDelete: true},
}

// SeedDemo loads DemoAssignments, skipping grants that already exist.
func (r *AccessControlRegistry) SeedDemo(ctx context.Context, assignedBy string) error {
	for _, demo := range DemoAssignments {
		assignment := demo
		assignment.AssignedBy = assignedBy
		if _, err := r.AddAssignment(ctx, &assignment); err != nil {
			if appErrors.Is(err, appErrors.ErrDuplicateAssignment) {
				continue
			}
			return err
		}
	}
	return nil
}
