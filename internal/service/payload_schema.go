package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
)

// PayloadSchema checks a category payload before it is stored.
type PayloadSchema interface {
	Validate(payload json.RawMessage) error
}

// PayloadSchemaFunc adapts a plain function to PayloadSchema.
type PayloadSchemaFunc func(payload json.RawMessage) error

// Validate implements PayloadSchema.
func (f PayloadSchemaFunc) Validate(payload json.RawMessage) error {
	return f(payload)
}

// NewPayloadSchema builds a schema that decodes the payload strictly into P
// and runs its validate tags.
func NewPayloadSchema[P any](validate *validator.Validate) PayloadSchema {
	if validate == nil {
		validate = validator.New()
	}
	return PayloadSchemaFunc(func(payload json.RawMessage) error {
		decoded, err := DecodePayload[P](payload)
		if err != nil {
			return err
		}
		if err := validate.Struct(decoded); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, describeValidation(err))
		}
		return nil
	})
}

// DecodePayload reads a stored payload back into its typed form. Unknown
// fields are rejected.
func DecodePayload[P any](payload json.RawMessage) (P, error) {
	var out P
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&out); err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return out, nil
}

// DefaultSchemas returns the schema for every known category.
func DefaultSchemas(validate *validator.Validate) map[models.Category]PayloadSchema {
	if validate == nil {
		validate = validator.New()
	}
	return map[models.Category]PayloadSchema{
		models.CategoryStudents:   NewPayloadSchema[models.StudentParity](validate),
		models.CategoryFaculty:    NewPayloadSchema[models.FacultyParity](validate),
		models.CategoryStaff:      NewPayloadSchema[models.StaffParity](validate),
		models.CategoryPWD:        NewPayloadSchema[models.PWDRecord](validate),
		models.CategoryIndigenous: NewPayloadSchema[models.IndigenousRecord](validate),
		models.CategoryGPB:        NewPayloadSchema[models.GPBAccomplishment](validate),
		models.CategoryBudget:     NewPayloadSchema[models.BudgetPlan](validate),
	}
}

var periodPattern = regexp.MustCompile(`^\d{4}(-\d{4})?$`)

// ValidatePeriod accepts a single year or a one-year academic range such as 2023-2024.
func ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return appErrors.Clone(appErrors.ErrValidation, "period must be YYYY or YYYY-YYYY")
	}
	if len(period) == 4 {
		return nil
	}
	start, _ := strconv.Atoi(period[:4])
	end, _ := strconv.Atoi(period[5:])
	if end != start+1 {
		return appErrors.Clone(appErrors.ErrValidation, "period range must span exactly one year")
	}
	return nil
}

func decodeObject(payload json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload is required")
	}
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload must be a JSON object")
	}
	return fields, nil
}

// mergePayload overlays the top-level keys of patch onto base.
func mergePayload(base, patch json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(patch)) == 0 {
		return append(json.RawMessage(nil), base...), nil
	}
	overlay, err := decodeObject(patch)
	if err != nil {
		return nil, err
	}
	merged := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(base)) > 0 {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored payload is corrupt")
		}
		if merged == nil {
			merged = map[string]json.RawMessage{}
		}
	}
	for key, value := range overlay {
		merged[key] = value
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to merge payload")
	}
	return out, nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid payload"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid payload: " + strings.Join(parts, ", ")
}
