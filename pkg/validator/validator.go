// Package validator checks dynamic entity payloads against declared field
// definitions.
package validator

import (
	"fmt"
	"time"

	"github.com/verbflow/verbflow/internal/domain"
)

// ValidationError describes one failed field check.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult is the outcome of validating one payload.
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// ValidatePayload checks required fields and scalar types of a payload
// against the schema's declared fields. Undeclared fields pass unchecked;
// the store is schemaless for anything the definition does not mention.
func ValidatePayload(schema domain.Schema, data map[string]any) ValidationResult {
	return validate(schema, data, true)
}

// ValidatePartial checks only the types of fields present in the payload.
// Merge-style updates never fail on absent required fields.
func ValidatePartial(schema domain.Schema, data map[string]any) ValidationResult {
	return validate(schema, data, false)
}

func validate(schema domain.Schema, data map[string]any, checkRequired bool) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: []ValidationError{}}

	for _, def := range schema.Fields {
		value, exists := data[def.Name]

		if checkRequired && def.Required && (!exists || value == nil) {
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   def.Name,
				Message: fmt.Sprintf("required field '%s' is missing", def.Name),
			})
			continue
		}
		if !exists || value == nil {
			continue
		}

		if err := validateFieldType(def.Name, value, def.Type); err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   def.Name,
				Message: err.Error(),
				Value:   value,
			})
		}
	}

	return result
}

func validateFieldType(name string, value any, fieldType domain.FieldType) error {
	switch fieldType {
	case domain.FieldTypeString, domain.FieldTypeReference:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string, got %T", name, value)
		}
	case domain.FieldTypeInteger:
		switch value.(type) {
		case int, int32, int64:
		case float64:
			f := value.(float64)
			if f != float64(int64(f)) {
				return fmt.Errorf("field '%s' must be an integer, got %v", name, value)
			}
		default:
			return fmt.Errorf("field '%s' must be an integer, got %T", name, value)
		}
	case domain.FieldTypeFloat:
		switch value.(type) {
		case float32, float64, int, int32, int64:
		default:
			return fmt.Errorf("field '%s' must be a number, got %T", name, value)
		}
	case domain.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' must be a boolean, got %T", name, value)
		}
	case domain.FieldTypeTimestamp:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field '%s' must be an RFC3339 timestamp string, got %T", name, value)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
				return fmt.Errorf("field '%s' is not a valid timestamp: %q", name, s)
			}
		}
	case domain.FieldTypeJSON:
		switch value.(type) {
		case map[string]any, []any:
		default:
			return fmt.Errorf("field '%s' must be a JSON object or array, got %T", name, value)
		}
	}
	return nil
}
