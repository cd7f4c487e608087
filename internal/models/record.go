package models

import (
	"encoding/json"
	"time"
)

// RecordStatus captures the review state of a record.
type RecordStatus string

const (
	RecordStatusPending  RecordStatus = "pending"
	RecordStatusApproved RecordStatus = "approved"
	RecordStatusRejected RecordStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordStatusPending, RecordStatusApproved, RecordStatusRejected:
		return true
	}
	return false
}

// ReviewDecision is the administrator's verdict on a pending record.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// Status maps the decision to the resulting record status.
func (d ReviewDecision) Status() (RecordStatus, bool) {
	switch d {
	case DecisionApprove:
		return RecordStatusApproved, true
	case DecisionReject:
		return RecordStatusRejected, true
	}
	return "", false
}

// Record is a category-scoped entity subject to review. Payload is opaque to
// the workflow and always holds a JSON object.
type Record struct {
	ID          string          `db:"id" json:"id"`
	Category    Category        `db:"category" json:"category"`
	Period      string          `db:"period" json:"period"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      RecordStatus    `db:"status" json:"status"`
	SubmittedBy string          `db:"submitted_by" json:"submitted_by"`
	ReviewedBy  *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote  *string         `db:"review_note" json:"review_note,omitempty"`
	Version     int64           `db:"version" json:"version"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Payload = append(json.RawMessage(nil), r.Payload...)
	if r.ReviewedBy != nil {
		v := *r.ReviewedBy
		out.ReviewedBy = &v
	}
	if r.ReviewedAt != nil {
		v := *r.ReviewedAt
		out.ReviewedAt = &v
	}
	if r.ReviewNote != nil {
		v := *r.ReviewNote
		out.ReviewNote = &v
	}
	return &out
}

// ClearReview drops reviewer identity, time and note.
func (r *Record) ClearReview() {
	r.ReviewedBy = nil
	r.ReviewedAt = nil
	r.ReviewNote = nil
}

// RecordFilter constrains listing queries. Empty fields match everything.
type RecordFilter struct {
	Category Category
	Period   string
	Status   []RecordStatus
}

// Matches reports whether rec satisfies the filter.
func (f RecordFilter) Matches(rec *Record) bool {
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.Period != "" && rec.Period != f.Period {
		return false
	}
	if len(f.Status) == 0 {
		return true
	}
	for _, status := range f.Status {
		if rec.Status == status {
			return true
		}
	}
	return false
}
