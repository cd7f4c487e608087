package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	"github.com/noah-isme/campus-monitor-api/internal/repository"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
)

const staffPayload = `{"office":"Registrar","position":"Clerk","male":2,"female":3}`

var (
	adminActor  = models.Actor{UserID: "a@x", Role: models.RoleAdmin}
	staffActor  = models.Actor{UserID: "s@x", Role: models.RoleStaff}
	editorActor = models.Actor{UserID: "e@x", Role: models.RoleEditor}
)

type listenerSpy struct {
	events []RecordEvent
}

func (l *listenerSpy) RecordChanged(ctx context.Context, event RecordEvent) {
	l.events = append(l.events, event)
}

type workflowFixture struct {
	registry *AccessControlRegistry
	records  *repository.MemoryRecordRepository
	workflow *RecordReviewWorkflow
	events   *listenerSpy
	clock    time.Time
}

func newWorkflowFixture(t *testing.T, opts ...RecordReviewWorkflowOption) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		registry: newTestRegistry(t),
		records:  repository.NewMemoryRecordRepository(),
		events:   &listenerSpy{},
		clock:    time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	ctx := context.Background()
	_, err := f.registry.AddAssignment(ctx, &models.PersonnelAssignment{
		UserID: "s@x", Role: models.RoleStaff, Category: models.CategoryStaff,
		CanAdd: true, CanEdit: true, CanDelete: true,
	})
	require.NoError(t, err)
	_, err = f.registry.AddAssignment(ctx, &models.PersonnelAssignment{
		UserID: "e@x", Role: models.RoleEditor, Category: models.CategoryStaff,
		CanAdd: true, CanEdit: true,
	})
	require.NoError(t, err)

	base := []RecordReviewWorkflowOption{
		WithRecordListeners(f.events),
		WithWorkflowClock(func() time.Time {
			f.clock = f.clock.Add(time.Minute)
			return f.clock
		}),
	}
	f.workflow = NewRecordReviewWorkflow(f.records, f.registry, nil, append(base, opts...)...)
	return f
}

func (f *workflowFixture) submit(t *testing.T, actor models.Actor) *models.Record {
	t.Helper()
	record, err := f.workflow.Submit(context.Background(), actor, models.CategoryStaff, json.RawMessage(staffPayload), "2024")
	require.NoError(t, err)
	return record
}

func (f *workflowFixture) count(t *testing.T) int {
	t.Helper()
	all, err := f.records.List(context.Background(), models.RecordFilter{})
	require.NoError(t, err)
	return len(all)
}

func TestSubmitCreatesPendingRecord(t *testing.T) {
	f := newWorkflowFixture(t)

	record := f.submit(t, staffActor)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, models.RecordStatusPending, record.Status)
	assert.Equal(t, "s@x", record.SubmittedBy)
	assert.Nil(t, record.ReviewedBy)
	assert.Nil(t, record.ReviewedAt)
	assert.Equal(t, int64(1), record.Version)
	assert.Equal(t, record.CreatedAt, record.UpdatedAt)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, RecordSubmitted, f.events.events[0].Type)
}

func TestSubmitAsAdminStillPending(t *testing.T) {
	f := newWorkflowFixture(t, WithAdminBypassPending(true))
	record := f.submit(t, adminActor)
	assert.Equal(t, models.RecordStatusPending, record.Status)
}

func TestSubmitTwiceCreatesDistinctRecords(t *testing.T) {
	f := newWorkflowFixture(t)
	first := f.submit(t, staffActor)
	second := f.submit(t, staffActor)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, f.count(t))
}

func TestSubmitRequiresCanAdd(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	_, err := f.workflow.Submit(ctx, models.Actor{UserID: "v@x", Role: models.RoleViewer}, models.CategoryStaff, json.RawMessage(staffPayload), "2024")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = f.workflow.Submit(ctx, staffActor, models.CategoryBudget, json.RawMessage(`{"program":"x","source":"y","allocated":1,"utilized":1}`), "2024")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	assert.Zero(t, f.count(t))
	assert.Empty(t, f.events.events)
}

func TestSubmitValidatesPayloadAndPeriod(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	cases := map[string]struct {
		payload string
		period  string
	}{
		"bad period":     {payload: staffPayload, period: "2024-2026"},
		"not object":     {payload: `[1]`, period: "2024"},
		"empty":          {payload: ``, period: "2024"},
		"negative count": {payload: `{"office":"Registrar","position":"Clerk","male":-1,"female":3}`, period: "2024"},
		"missing field":  {payload: `{"male":1,"female":3}`, period: "2024"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.workflow.Submit(ctx, staffActor, models.CategoryStaff, json.RawMessage(tc.payload), tc.period)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		})
	}
	assert.Zero(t, f.count(t))
}

func TestSubmitAdminUnknownCategory(t *testing.T) {
	f := newWorkflowFixture(t)
	_, err := f.workflow.Submit(context.Background(), adminActor, "library", json.RawMessage(`{}`), "2024")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEditAlwaysReturnsToPending(t *testing.T) {
	ctx := context.Background()
	for _, decision := range []models.ReviewDecision{models.DecisionApprove, models.DecisionReject} {
		t.Run(string(decision), func(t *testing.T) {
			f := newWorkflowFixture(t)
			record := f.submit(t, staffActor)
			_, err := f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: decision, Note: "checked"})
			require.NoError(t, err)

			edited, err := f.workflow.Edit(ctx, adminActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"female":4}`)})
			require.NoError(t, err)
			assert.Equal(t, models.RecordStatusPending, edited.Status)
			assert.Nil(t, edited.ReviewedBy)
			assert.Nil(t, edited.ReviewedAt)
			assert.Nil(t, edited.ReviewNote)
			assert.Equal(t, "a@x", edited.SubmittedBy)
			assert.Equal(t, int64(3), edited.Version)
			assert.JSONEq(t, `{"office":"Registrar","position":"Clerk","male":2,"female":4}`, string(edited.Payload))
		})
	}
}

func TestEditFromRejectedByStaff(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	record := f.submit(t, editorActor)
	_, err := f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionReject})
	require.NoError(t, err)

	edited, err := f.workflow.Edit(ctx, staffActor, models.CategoryStaff, record.ID, EditInput{Period: "2023-2024"})
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusPending, edited.Status)
	assert.Equal(t, "s@x", edited.SubmittedBy)
	assert.Equal(t, "2023-2024", edited.Period)
	assert.True(t, edited.UpdatedAt.After(edited.CreatedAt))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, RecordEdited, last.Type)
	assert.Equal(t, "2024", last.PreviousPeriod)
	assert.Equal(t, models.RecordStatusRejected, last.PreviousStatus)
}

func TestApprovedRecordsAreAdministratorOnly(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	record := f.submit(t, staffActor)
	approved, err := f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove})
	require.NoError(t, err)

	_, err = f.workflow.Edit(ctx, staffActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"male":9}`)})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	err = f.workflow.Remove(ctx, staffActor, models.CategoryStaff, record.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	stored, err := f.workflow.Get(ctx, models.CategoryStaff, record.ID)
	require.NoError(t, err)
	assert.Equal(t, approved, stored)

	_, err = f.workflow.Edit(ctx, adminActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"male":9}`)})
	require.NoError(t, err)

	_, err = f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove})
	require.NoError(t, err)
	require.NoError(t, f.workflow.Remove(ctx, adminActor, models.CategoryStaff, record.ID))
	assert.Zero(t, f.count(t))
}

func TestAdminBypassKeepsReviewState(t *testing.T) {
	f := newWorkflowFixture(t, WithAdminBypassPending(true))
	ctx := context.Background()
	record := f.submit(t, staffActor)
	_, err := f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove})
	require.NoError(t, err)

	edited, err := f.workflow.Edit(ctx, adminActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"male":7}`)})
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusApproved, edited.Status)
	require.NotNil(t, edited.ReviewedBy)
	assert.Equal(t, "a@x", *edited.ReviewedBy)

	_, err = f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionReject})
	require.NoError(t, err)
	edited, err = f.workflow.Edit(ctx, staffActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"male":8}`)})
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusPending, edited.Status)
}

func TestEditRequiresCanEditAndExistingRecord(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	record := f.submit(t, staffActor)

	_, err := f.workflow.Edit(ctx, models.Actor{UserID: "v@x", Role: models.RoleViewer}, models.CategoryStaff, record.ID, EditInput{})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = f.workflow.Edit(ctx, staffActor, models.CategoryStaff, "missing", EditInput{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = f.workflow.Edit(ctx, adminActor, models.CategoryBudget, record.ID, EditInput{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = f.workflow.Edit(ctx, staffActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"male":-5}`)})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	stored, err := f.workflow.Get(ctx, models.CategoryStaff, record.ID)
	require.NoError(t, err)
	assert.JSONEq(t, staffPayload, string(stored.Payload))
	assert.Equal(t, int64(1), stored.Version)
}

func TestReviewRequiresAdmin(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	record := f.submit(t, staffActor)

	_, err := f.workflow.Review(ctx, staffActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: "maybe"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	stored, err := f.workflow.Get(ctx, models.CategoryStaff, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusPending, stored.Status)
}

func TestReviewTwiceIsInvalidTransition(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	record := f.submit(t, staffActor)

	reviewed, err := f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove, Note: "  looks right  "})
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "a@x", *reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewedAt)
	assert.Equal(t, *reviewed.ReviewedAt, reviewed.UpdatedAt)
	require.NotNil(t, reviewed.ReviewNote)
	assert.Equal(t, "looks right", *reviewed.ReviewNote)

	for _, decision := range []models.ReviewDecision{models.DecisionApprove, models.DecisionReject} {
		_, err = f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: decision})
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	}
}

func TestStaleVersionIsConflict(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	record := f.submit(t, staffActor)

	_, err := f.workflow.Edit(ctx, staffActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"male":3}`), ExpectedVersion: 1})
	require.NoError(t, err)

	_, err = f.workflow.Edit(ctx, editorActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"male":4}`), ExpectedVersion: 1})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	_, err = f.workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove, ExpectedVersion: 1})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	stored, err := f.workflow.Get(ctx, models.CategoryStaff, record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, models.RecordStatusPending, stored.Status)
}

type racingRecordStore struct {
	*repository.MemoryRecordRepository
}

func (r *racingRecordStore) Update(ctx context.Context, record *models.Record, expectedVersion int64) error {
	return repository.ErrNotFound
}

func TestLostWriteRaceIsConflict(t *testing.T) {
	f := newWorkflowFixture(t)
	record := f.submit(t, staffActor)
	workflow := NewRecordReviewWorkflow(&racingRecordStore{f.records}, f.registry, nil)

	_, err := workflow.Review(context.Background(), adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRemoveMissingRecordIsNotFound(t *testing.T) {
	f := newWorkflowFixture(t)
	err := f.workflow.Remove(context.Background(), staffActor, models.CategoryStaff, "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestListForAnalyticsOnlyApproved(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	approved := f.submit(t, staffActor)
	rejected := f.submit(t, staffActor)
	f.submit(t, staffActor)
	other, err := f.workflow.Submit(ctx, staffActor, models.CategoryStaff, json.RawMessage(staffPayload), "2023")
	require.NoError(t, err)

	_, err = f.workflow.Review(ctx, adminActor, models.CategoryStaff, approved.ID, ReviewInput{Decision: models.DecisionApprove})
	require.NoError(t, err)
	_, err = f.workflow.Review(ctx, adminActor, models.CategoryStaff, rejected.ID, ReviewInput{Decision: models.DecisionReject})
	require.NoError(t, err)
	_, err = f.workflow.Review(ctx, adminActor, models.CategoryStaff, other.ID, ReviewInput{Decision: models.DecisionApprove})
	require.NoError(t, err)

	list, err := f.workflow.ListForAnalytics(ctx, models.CategoryStaff, "2024")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, approved.ID, list[0].ID)

	all, err := f.workflow.ListForAnalytics(ctx, models.CategoryStaff, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, record := range all {
		assert.Equal(t, models.RecordStatusApproved, record.Status)
	}

	none, err := f.workflow.ListForAnalytics(ctx, models.CategoryBudget, "2024")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListForCollectionKeepsInsertionOrder(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	first := f.submit(t, staffActor)
	second := f.submit(t, editorActor)
	third := f.submit(t, staffActor)
	_, err := f.workflow.Review(ctx, adminActor, models.CategoryStaff, second.ID, ReviewInput{Decision: models.DecisionApprove})
	require.NoError(t, err)

	list, err := f.workflow.ListForCollection(ctx, models.CategoryStaff, "2024")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	pending, err := f.workflow.ListForCollection(ctx, models.CategoryStaff, "2024", models.RecordStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.workflow.ListForCollection(ctx, models.CategoryStaff, "2024", "archived")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

type brokenRecordStore struct {
	*repository.MemoryRecordRepository
}

func (b *brokenRecordStore) List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	return nil, errors.New("disk on fire")
}

func (b *brokenRecordStore) Create(ctx context.Context, record *models.Record) error {
	return errors.New("disk on fire")
}

func TestStoreFailuresAreInternal(t *testing.T) {
	f := newWorkflowFixture(t)
	workflow := NewRecordReviewWorkflow(&brokenRecordStore{repository.NewMemoryRecordRepository()}, f.registry, nil)
	ctx := context.Background()

	_, err := workflow.Submit(ctx, staffActor, models.CategoryStaff, json.RawMessage(staffPayload), "2024")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	_, err = workflow.ListForAnalytics(ctx, models.CategoryStaff, "2024")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	_, err = workflow.ListForCollection(ctx, models.CategoryStaff, "2024")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestTransitionsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newWorkflowFixture(t)
	workflow := NewRecordReviewWorkflow(f.records, f.registry, zap.New(core))
	ctx := context.Background()

	record, err := workflow.Submit(ctx, staffActor, models.CategoryStaff, json.RawMessage(staffPayload), "2024")
	require.NoError(t, err)
	_, err = workflow.Review(ctx, staffActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove})
	require.Error(t, err)

	entries := logs.FilterMessage("record submitted").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "staff", fields["category"])
	assert.Equal(t, record.ID, fields["record_id"])
	assert.Equal(t, "s@x", fields["actor"])
	assert.Equal(t, "pending", fields["status"])
	assert.Equal(t, 1, logs.Len())
}

func TestScenarioStaffSubmitApproveEditRemove(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	f.registry = newTestRegistry(t)
	_, err := f.registry.AddAssignment(ctx, &models.PersonnelAssignment{
		UserID: "s@x", Role: models.RoleStaff, Category: models.CategoryStaff,
		CanAdd: true, CanEdit: true, CanDelete: false,
	})
	require.NoError(t, err)
	workflow := NewRecordReviewWorkflow(f.records, f.registry, nil)

	record, err := workflow.Submit(ctx, staffActor, models.CategoryStaff, json.RawMessage(staffPayload), "2024")
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusPending, record.Status)

	approved, err := workflow.Review(ctx, adminActor, models.CategoryStaff, record.ID, ReviewInput{Decision: models.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusApproved, approved.Status)
	assert.Equal(t, "a@x", *approved.ReviewedBy)

	_, err = workflow.Edit(ctx, staffActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"female":4}`)})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = workflow.Edit(ctx, adminActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"female":4}`)})
	require.NoError(t, err)
	edited, err := workflow.Edit(ctx, staffActor, models.CategoryStaff, record.ID, EditInput{Payload: json.RawMessage(`{"female":5}`)})
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusPending, edited.Status)
	assert.Nil(t, edited.ReviewedBy)
	assert.Equal(t, "s@x", edited.SubmittedBy)

	err = workflow.Remove(ctx, staffActor, models.CategoryStaff, record.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	require.NoError(t, f.registry.RemoveAssignment(ctx, models.CategoryStaff, mustAssignmentID(t, f.registry, "s@x")))
	_, err = f.registry.AddAssignment(ctx, &models.PersonnelAssignment{
		UserID: "s@x", Role: models.RoleStaff, Category: models.CategoryStaff,
		CanAdd: true, CanEdit: true, CanDelete: true,
	})
	require.NoError(t, err)
	require.NoError(t, workflow.Remove(ctx, staffActor, models.CategoryStaff, record.ID))
	assert.Zero(t, f.count(t))
}

func TestScenarioEditorWithoutDeleteCannotRemove(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	first := f.submit(t, staffActor)
	f.submit(t, editorActor)

	for _, id := range []string{first.ID, "missing"} {
		err := f.workflow.Remove(ctx, editorActor, models.CategoryStaff, id)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	}
	assert.Equal(t, 2, f.count(t))
}

func mustAssignmentID(t *testing.T, registry *AccessControlRegistry, userID string) string {
	t.Helper()
	assignments, err := registry.AssignmentsForUser(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, assignments)
	return assignments[0].ID
}
