package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-monitor-api/internal/models"
)

const recordColumns = `id, category, period, payload, status, submitted_by, reviewed_by, reviewed_at, review_note, version, created_at, updated_at`

// RecordRepository persists reviewable records in PostgreSQL.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts a new record row.
func (r *RecordRepository) Create(ctx context.Context, record *models.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `INSERT INTO records (` + recordColumns + `)
	VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		record.ID, record.Category, record.Period, payloadText(record), record.Status, record.SubmittedBy,
		record.ReviewedBy, record.ReviewedAt, record.ReviewNote, record.Version, record.CreatedAt, record.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// GetByID fetches a record by identifier.
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	const query = `SELECT ` + recordColumns + ` FROM records WHERE id = $1`
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update overwrites mutable columns when the stored version equals expectedVersion.
func (r *RecordRepository) Update(ctx context.Context, record *models.Record, expectedVersion int64) error {
	if !validID(record.ID) {
		return ErrNotFound
	}
	const query = `UPDATE records SET period = $1, payload = $2::jsonb, status = $3, submitted_by = $4,
	reviewed_by = $5, reviewed_at = $6, review_note = $7, version = $8, updated_at = $9
	WHERE id = $10 AND version = $11`
	result, err := r.db.ExecContext(ctx, query,
		record.Period, payloadText(record), record.Status, record.SubmittedBy,
		record.ReviewedBy, record.ReviewedAt, record.ReviewNote, record.Version, record.UpdatedAt,
		record.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return expectOneRow(result.RowsAffected())
}

// Delete removes the record when the stored version equals expectedVersion.
func (r *RecordRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	if !validID(id) {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return expectOneRow(result.RowsAffected())
}

// List returns records matching the filter in insertion order.
func (r *RecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + recordColumns + ` FROM records`)

	conditions := make([]string, 0, 3)
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Period != "" {
		args = append(args, filter.Period)
		conditions = append(conditions, fmt.Sprintf("period = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY seq")

	records := make([]models.Record, 0)
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func payloadText(record *models.Record) string {
	if len(record.Payload) == 0 {
		return "{}"
	}
	return string(record.Payload)
}

// validID reports whether id can match a UUID primary key.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func expectOneRow(rows int64, err error) error {
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
