package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
	"github.com/noah-isme/campus-monitor-api/pkg/export"
)

var exportBaseHeaders = []string{"id", "period", "submitted_by", "reviewed_by", "reviewed_at"}

// ExportFile is a rendered document ready to be streamed to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders approved records into downloadable documents.
type ExportService struct {
	records approvedRecordSource
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(records approvedRecordSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{records: records, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Export renders the approved records of a category in csv, pdf or xlsx.
func (s *ExportService) Export(ctx context.Context, category models.Category, period, format string) (*ExportFile, error) {
	if !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, appErrors.ErrUnsupportedFormat.Message)
	}
	period = strings.TrimSpace(period)
	if period != "" {
		if err := ValidatePeriod(period); err != nil {
			return nil, err
		}
	}

	records, err := s.records.ListForAnalytics(ctx, category, period)
	if err != nil {
		return nil, err
	}
	dataset := buildRecordDataset(category, period, records)
	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	file := &ExportFile{
		Filename:    s.buildFilename(category, period, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
		Rows:        len(dataset.Rows),
	}
	s.logger.Info("records exported",
		zap.String("category", string(category)),
		zap.String("period", period),
		zap.String("format", renderer.Extension()),
		zap.Int("rows", file.Rows))
	return file, nil
}

func (s *ExportService) buildFilename(category models.Category, period, ext string) string {
	if period == "" {
		period = allPeriods
	}
	return fmt.Sprintf("%s_%s_%s.%s", category, period, s.now().Format("20060102_150405"), ext)
}

// buildRecordDataset flattens payload fields into columns after the fixed record columns.
func buildRecordDataset(category models.Category, period string, records []models.Record) export.Dataset {
	title := category.Label() + " approved records"
	if period != "" {
		title += " " + period
	}

	payloads := make([]map[string]interface{}, len(records))
	fieldSet := map[string]struct{}{}
	for i, record := range records {
		var fields map[string]interface{}
		if err := json.Unmarshal(record.Payload, &fields); err != nil {
			fields = map[string]interface{}{}
		}
		payloads[i] = fields
		for key := range fields {
			fieldSet[key] = struct{}{}
		}
	}
	payloadHeaders := make([]string, 0, len(fieldSet))
	for key := range fieldSet {
		payloadHeaders = append(payloadHeaders, key)
	}
	sort.Strings(payloadHeaders)

	headers := append(append([]string{}, exportBaseHeaders...), payloadHeaders...)
	rows := make([]map[string]string, 0, len(records))
	for i, record := range records {
		row := map[string]string{
			"id":           record.ID,
			"period":       record.Period,
			"submitted_by": record.SubmittedBy,
		}
		if record.ReviewedBy != nil {
			row["reviewed_by"] = *record.ReviewedBy
		}
		if record.ReviewedAt != nil {
			row["reviewed_at"] = record.ReviewedAt.UTC().Format(time.RFC3339)
		}
		for _, key := range payloadHeaders {
			if value, ok := payloads[i][key]; ok {
				row[key] = formatCell(value)
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Title: title, Headers: headers, Rows: rows}
}

func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
