package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/campus-monitor-api/internal/models"
)

// MemoryRecordRepository keeps records in process memory, preserving insertion order.
type MemoryRecordRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*models.Record
}

// NewMemoryRecordRepository constructs an empty store.
func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{byID: make(map[string]*models.Record)}
}

// Create appends the record. An ID is generated when missing.
func (r *MemoryRecordRepository) Create(ctx context.Context, record *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if _, exists := r.byID[record.ID]; exists {
		return ErrDuplicate
	}
	r.byID[record.ID] = record.Clone()
	r.order = append(r.order, record.ID)
	return nil
}

// GetByID returns a copy of the stored record.
func (r *MemoryRecordRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

// Update replaces the record if the stored version still equals expectedVersion.
func (r *MemoryRecordRepository) Update(ctx context.Context, record *models.Record, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[record.ID]
	if !ok || current.Version != expectedVersion {
		return ErrNotFound
	}
	r.byID[record.ID] = record.Clone()
	return nil
}

// Delete removes the record if the stored version still equals expectedVersion.
func (r *MemoryRecordRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok || current.Version != expectedVersion {
		return ErrNotFound
	}
	delete(r.byID, id)
	for i, candidate := range r.order {
		if candidate == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns matching records in insertion order.
func (r *MemoryRecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Record, 0)
	for _, id := range r.order {
		record := r.byID[id]
		if filter.Matches(record) {
			result = append(result, *record.Clone())
		}
	}
	return result, nil
}

// Reset drops every record.
func (r *MemoryRecordRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.byID = make(map[string]*models.Record)
}
