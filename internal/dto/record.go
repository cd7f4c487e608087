package dto

import (
	"encoding/json"

	"github.com/noah-isme/campus-monitor-api/internal/models"
)

// SubmitRecordRequest is the body of a record submission.
type SubmitRecordRequest struct {
	Period  string          `json:"period" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// EditRecordRequest carries partial payload changes. Version, when set, must
// match the stored record.
type EditRecordRequest struct {
	Period  string          `json:"period"`
	Payload json.RawMessage `json:"payload"`
	Version int64           `json:"version" binding:"gte=0"`
}

// ReviewRecordRequest captures the administrator's decision and optional note.
type ReviewRecordRequest struct {
	Decision models.ReviewDecision `json:"decision" binding:"required,oneof=approve reject"`
	Note     string                `json:"note" binding:"max=1000"`
	Version  int64                 `json:"version" binding:"gte=0"`
}

// RecordQuery mirrors supported listing filters.
type RecordQuery struct {
	Period string   `form:"period"`
	Status []string `form:"status"`
	Page   int      `form:"page" binding:"omitempty,gte=1"`
}

// ExportQuery selects what to export.
type ExportQuery struct {
	Period string `form:"period"`
	Format string `form:"format"`
}
