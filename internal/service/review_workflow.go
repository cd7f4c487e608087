package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	"github.com/noah-isme/campus-monitor-api/internal/repository"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
)

type recordStore interface {
	Create(ctx context.Context, record *models.Record) error
	GetByID(ctx context.Context, id string) (*models.Record, error)
	Update(ctx context.Context, record *models.Record, expectedVersion int64) error
	Delete(ctx context.Context, id string, expectedVersion int64) error
	List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error)
}

type permissionResolver interface {
	GetPermissions(ctx context.Context, userID string, role models.UserRole, category models.Category) models.Permissions
}

// RecordEventType names the transition that produced a RecordEvent.
type RecordEventType string

const (
	RecordSubmitted RecordEventType = "submitted"
	RecordEdited    RecordEventType = "edited"
	RecordRemoved   RecordEventType = "removed"
	RecordReviewed  RecordEventType = "reviewed"
)

// RecordEvent describes a committed change to a record.
type RecordEvent struct {
	Type           RecordEventType
	Category       models.Category
	Period         string
	PreviousPeriod string
	PreviousStatus models.RecordStatus
	Record         *models.Record
}

// RecordListener is notified after every successful mutation.
type RecordListener interface {
	RecordChanged(ctx context.Context, event RecordEvent)
}

// RecordListenerFunc adapts a function to RecordListener.
type RecordListenerFunc func(ctx context.Context, event RecordEvent)

// RecordChanged implements RecordListener.
func (f RecordListenerFunc) RecordChanged(ctx context.Context, event RecordEvent) {
	f(ctx, event)
}

// EditInput carries the changes applied by Edit. Payload keys overlay the
// stored payload; an empty Period keeps the current one. A non-zero
// ExpectedVersion must match the stored version.
type EditInput struct {
	Payload         json.RawMessage
	Period          string
	ExpectedVersion int64
}

// ReviewInput carries an administrator's verdict.
type ReviewInput struct {
	Decision        models.ReviewDecision
	Note            string
	ExpectedVersion int64
}

// RecordReviewWorkflow drives records through pending, approved and rejected,
// gating each transition on the caller's category permissions.
type RecordReviewWorkflow struct {
	store       recordStore
	permissions permissionResolver
	schemas     map[models.Category]PayloadSchema
	listeners   []RecordListener
	adminBypass bool
	logger      *zap.Logger
	now         func() time.Time
}

// RecordReviewWorkflowOption configures the workflow.
type RecordReviewWorkflowOption func(*RecordReviewWorkflow)

// WithAdminBypassPending lets administrator edits keep the record's status and review fields.
func WithAdminBypassPending(enabled bool) RecordReviewWorkflowOption {
	return func(w *RecordReviewWorkflow) {
		w.adminBypass = enabled
	}
}

// WithPayloadSchemas overrides the per-category payload schemas.
func WithPayloadSchemas(schemas map[models.Category]PayloadSchema) RecordReviewWorkflowOption {
	return func(w *RecordReviewWorkflow) {
		if schemas == nil {
			return
		}
		w.schemas = make(map[models.Category]PayloadSchema, len(schemas))
		for k, v := range schemas {
			w.schemas[k] = v
		}
	}
}

// WithRecordListeners registers change listeners.
func WithRecordListeners(listeners ...RecordListener) RecordReviewWorkflowOption {
	return func(w *RecordReviewWorkflow) {
		for _, l := range listeners {
			if l != nil {
				w.listeners = append(w.listeners, l)
			}
		}
	}
}

// WithWorkflowClock overrides the time source.
func WithWorkflowClock(now func() time.Time) RecordReviewWorkflowOption {
	return func(w *RecordReviewWorkflow) {
		if now != nil {
			w.now = now
		}
	}
}

// NewRecordReviewWorkflow constructs the workflow with default category schemas.
func NewRecordReviewWorkflow(store recordStore, permissions permissionResolver, logger *zap.Logger, opts ...RecordReviewWorkflowOption) *RecordReviewWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &RecordReviewWorkflow{
		store:       store,
		permissions: permissions,
		schemas:     DefaultSchemas(validator.New()),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Submit creates a pending record in the category.
func (w *RecordReviewWorkflow) Submit(ctx context.Context, actor models.Actor, category models.Category, payload json.RawMessage, period string) (*models.Record, error) {
	if !w.permissions.GetPermissions(ctx, actor.UserID, actor.Role, category).CanAdd {
		return nil, appErrors.Clone(appErrors.ErrNotPermitted, "you are not allowed to add records in this category")
	}
	period = strings.TrimSpace(period)
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	if _, err := decodeObject(payload); err != nil {
		return nil, err
	}
	if err := w.validatePayload(category, payload); err != nil {
		return nil, err
	}

	now := w.now()
	record := &models.Record{
		Category:    category,
		Period:      period,
		Payload:     append(json.RawMessage(nil), payload...),
		Status:      models.RecordStatusPending,
		SubmittedBy: actor.UserID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.store.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
	}

	w.logTransition("record submitted", record, actor)
	w.notify(ctx, RecordEvent{Type: RecordSubmitted, Category: category, Period: record.Period, Record: record.Clone()})
	return record, nil
}

// Edit merges changes into a record and sends it back for review.
func (w *RecordReviewWorkflow) Edit(ctx context.Context, actor models.Actor, category models.Category, id string, input EditInput) (*models.Record, error) {
	if !w.permissions.GetPermissions(ctx, actor.UserID, actor.Role, category).CanEdit {
		return nil, appErrors.Clone(appErrors.ErrNotPermitted, "you are not allowed to edit records in this category")
	}
	current, err := w.load(ctx, category, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.RecordStatusApproved && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "approved records are administrator-only")
	}
	if err := checkVersion(current, input.ExpectedVersion); err != nil {
		return nil, err
	}

	period := current.Period
	if trimmed := strings.TrimSpace(input.Period); trimmed != "" {
		if err := ValidatePeriod(trimmed); err != nil {
			return nil, err
		}
		period = trimmed
	}
	merged, err := mergePayload(current.Payload, input.Payload)
	if err != nil {
		return nil, err
	}
	if err := w.validatePayload(category, merged); err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.Payload = merged
	updated.Period = period
	updated.SubmittedBy = actor.UserID
	updated.UpdatedAt = w.now()
	updated.Version = current.Version + 1
	if !(w.adminBypass && actor.IsAdmin()) {
		updated.Status = models.RecordStatusPending
		updated.ClearReview()
	}
	if err := w.store.Update(ctx, updated, current.Version); err != nil {
		return nil, w.writeError(err, "failed to update record")
	}

	w.logTransition("record edited", updated, actor)
	w.notify(ctx, RecordEvent{
		Type:           RecordEdited,
		Category:       category,
		Period:         updated.Period,
		PreviousPeriod: current.Period,
		PreviousStatus: current.Status,
		Record:         updated.Clone(),
	})
	return updated, nil
}

// Remove deletes a record from the collection.
func (w *RecordReviewWorkflow) Remove(ctx context.Context, actor models.Actor, category models.Category, id string) error {
	if !w.permissions.GetPermissions(ctx, actor.UserID, actor.Role, category).CanDelete {
		return appErrors.Clone(appErrors.ErrNotPermitted, "you are not allowed to delete records in this category")
	}
	current, err := w.load(ctx, category, id)
	if err != nil {
		return err
	}
	if current.Status == models.RecordStatusApproved && !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "approved records are administrator-only")
	}
	if err := w.store.Delete(ctx, current.ID, current.Version); err != nil {
		return w.writeError(err, "failed to delete record")
	}

	w.logTransition("record removed", current, actor)
	w.notify(ctx, RecordEvent{
		Type:           RecordRemoved,
		Category:       category,
		Period:         current.Period,
		PreviousStatus: current.Status,
		Record:         current,
	})
	return nil
}

// Review approves or rejects a pending record. Only administrators may review.
func (w *RecordReviewWorkflow) Review(ctx context.Context, actor models.Actor, category models.Category, id string, input ReviewInput) (*models.Record, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrNotPermitted, "only administrators can review records")
	}
	status, ok := input.Decision.Status()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be approve or reject")
	}
	current, err := w.load(ctx, category, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.RecordStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "record is "+string(current.Status)+", only pending records can be reviewed")
	}
	if err := checkVersion(current, input.ExpectedVersion); err != nil {
		return nil, err
	}

	now := w.now()
	reviewer := actor.UserID
	updated := current.Clone()
	updated.Status = status
	updated.ReviewedBy = &reviewer
	updated.ReviewedAt = &now
	updated.ReviewNote = optionalString(input.Note)
	updated.UpdatedAt = now
	updated.Version = current.Version + 1
	if err := w.store.Update(ctx, updated, current.Version); err != nil {
		return nil, w.writeError(err, "failed to review record")
	}

	w.logTransition("record reviewed", updated, actor)
	w.notify(ctx, RecordEvent{
		Type:           RecordReviewed,
		Category:       category,
		Period:         updated.Period,
		PreviousStatus: current.Status,
		Record:         updated.Clone(),
	})
	return updated, nil
}

// Get returns a record belonging to the category.
func (w *RecordReviewWorkflow) Get(ctx context.Context, category models.Category, id string) (*models.Record, error) {
	return w.load(ctx, category, id)
}

// ListForAnalytics returns approved records only. An empty period matches all periods.
func (w *RecordReviewWorkflow) ListForAnalytics(ctx context.Context, category models.Category, period string) ([]models.Record, error) {
	records, err := w.store.List(ctx, models.RecordFilter{
		Category: category,
		Period:   strings.TrimSpace(period),
		Status:   []models.RecordStatus{models.RecordStatusApproved},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approved records")
	}
	approved := records[:0]
	for _, record := range records {
		if record.Status == models.RecordStatusApproved {
			approved = append(approved, record)
		}
	}
	return approved, nil
}

// ListForCollection returns records in insertion order, optionally narrowed by status.
func (w *RecordReviewWorkflow) ListForCollection(ctx context.Context, category models.Category, period string, statuses ...models.RecordStatus) ([]models.Record, error) {
	for _, status := range statuses {
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status))
		}
	}
	records, err := w.store.List(ctx, models.RecordFilter{
		Category: category,
		Period:   strings.TrimSpace(period),
		Status:   statuses,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return records, nil
}

func (w *RecordReviewWorkflow) load(ctx context.Context, category models.Category, id string) (*models.Record, error) {
	record, err := w.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	if record.Category != category {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	return record, nil
}

func (w *RecordReviewWorkflow) validatePayload(category models.Category, payload json.RawMessage) error {
	schema, ok := w.schemas[category]
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	return schema.Validate(payload)
}

// writeError maps a lost compare-and-set to a conflict.
func (w *RecordReviewWorkflow) writeError(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrConflict, "record was modified by another request")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (w *RecordReviewWorkflow) notify(ctx context.Context, event RecordEvent) {
	for _, listener := range w.listeners {
		listener.RecordChanged(ctx, event)
	}
}

func (w *RecordReviewWorkflow) logTransition(msg string, record *models.Record, actor models.Actor) {
	w.logger.Info(msg,
		zap.String("category", string(record.Category)),
		zap.String("record_id", record.ID),
		zap.String("actor", actor.UserID),
		zap.String("status", string(record.Status)),
		zap.Int64("version", record.Version))
}

func checkVersion(record *models.Record, expected int64) error {
	if expected != 0 && expected != record.Version {
		return appErrors.Clone(appErrors.ErrConflict, "record version is stale")
	}
	return nil
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
