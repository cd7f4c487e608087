package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/campus-monitor-api/internal/models"
)

type assignmentKey struct {
	userID   string
	category models.Category
}

// MemoryAssignmentRepository keeps personnel assignments in process memory.
type MemoryAssignmentRepository struct {
	mu     sync.RWMutex
	byID   map[string]*models.PersonnelAssignment
	byUser map[assignmentKey]string
}

// NewMemoryAssignmentRepository constructs an empty store.
func NewMemoryAssignmentRepository() *MemoryAssignmentRepository {
	return &MemoryAssignmentRepository{
		byID:   make(map[string]*models.PersonnelAssignment),
		byUser: make(map[assignmentKey]string),
	}
}

// Create inserts the assignment, rejecting a second grant for the same user and category.
func (r *MemoryAssignmentRepository) Create(ctx context.Context, assignment *models.PersonnelAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := assignmentKey{userID: models.NormalizeUserID(assignment.UserID), category: assignment.Category}
	if _, exists := r.byUser[key]; exists {
		return ErrDuplicate
	}
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	stored := *assignment
	r.byID[stored.ID] = &stored
	r.byUser[key] = stored.ID
	return nil
}

// FindByUserAndCategory returns ErrNotFound when the user holds no grant.
func (r *MemoryAssignmentRepository) FindByUserAndCategory(ctx context.Context, userID string, category models.Category) (*models.PersonnelAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUser[assignmentKey{userID: models.NormalizeUserID(userID), category: category}]
	if !ok {
		return nil, ErrNotFound
	}
	found := *r.byID[id]
	return &found, nil
}

// ListByCategory returns assignments ordered by assignment time.
func (r *MemoryAssignmentRepository) ListByCategory(ctx context.Context, category models.Category) ([]models.PersonnelAssignment, error) {
	return r.collect(func(a *models.PersonnelAssignment) bool { return a.Category == category }), nil
}

// ListByUser returns every category grant held by the user.
func (r *MemoryAssignmentRepository) ListByUser(ctx context.Context, userID string) ([]models.PersonnelAssignment, error) {
	normalized := models.NormalizeUserID(userID)
	return r.collect(func(a *models.PersonnelAssignment) bool {
		return models.NormalizeUserID(a.UserID) == normalized
	}), nil
}

// Delete removes the assignment with the given id within the category.
func (r *MemoryAssignmentRepository) Delete(ctx context.Context, category models.Category, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok || existing.Category != category {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byUser, assignmentKey{userID: models.NormalizeUserID(existing.UserID), category: existing.Category})
	return nil
}

// Reset drops every assignment.
func (r *MemoryAssignmentRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*models.PersonnelAssignment)
	r.byUser = make(map[assignmentKey]string)
}

func (r *MemoryAssignmentRepository) collect(keep func(*models.PersonnelAssignment) bool) []models.PersonnelAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.PersonnelAssignment, 0)
	for _, assignment := range r.byID {
		if keep(assignment) {
			result = append(result, *assignment)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AssignedAt.Equal(result[j].AssignedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].AssignedAt.Before(result[j].AssignedAt)
	})
	return result
}
