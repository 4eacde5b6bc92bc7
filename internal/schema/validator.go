// Package schema validates raw answer payloads against a version's field
// list. It is a pure, dependency-light collaborator of the ingestion
// service: no logging, no persistence, deterministic output.
//
// The validator either returns a normalized answer map (text and radio
// answers as string, checkbox answers as []string, scale answers as
// float64) or a structured per-field error list suitable for a UI to
// highlight the exact problem.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// Scale answers are integers on a fixed 1..5 scale.
const (
	ScaleMin = 1
	ScaleMax = 5
)

// RespondentKeys is the fixed allow-list of answer keys that are lifted out
// of the raw payload into the respondent sub-object. Everything else in the
// payload must match a schema field or it is dropped.
var RespondentKeys = []string{"name", "email", "department", "role", "location"}

// FieldError describes one failed field check.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error implements the error interface for logging convenience.
func (e FieldError) Error() string { return e.Field + ": " + e.Reason }

// Validate checks raw against the field list and returns the normalized
// answer map, or a non-empty error list if any check fails. Unknown keys
// (neither a field name nor a respondent key) are silently dropped.
func Validate(fields domain.FieldList, raw map[string]any) (domain.AnswerMap, []FieldError) {
	var errs []FieldError
	out := make(domain.AnswerMap, len(fields))

	for _, f := range fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				errs = append(errs, FieldError{Field: f.Name, Reason: "required"})
			}
			continue
		}

		switch f.Type {
		case domain.FieldTypeText:
			s, ok := asString(v)
			if !ok {
				errs = append(errs, FieldError{Field: f.Name, Reason: "must be text"})
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				if f.Required {
					errs = append(errs, FieldError{Field: f.Name, Reason: "required"})
				}
				continue
			}
			out[f.Name] = s

		case domain.FieldTypeRadio:
			s, ok := asString(v)
			if !ok || strings.TrimSpace(s) == "" {
				errs = append(errs, FieldError{Field: f.Name, Reason: "must be one of the field options"})
				continue
			}
			s = strings.TrimSpace(s)
			if !contains(f.Options, s) {
				errs = append(errs, FieldError{Field: f.Name, Reason: fmt.Sprintf("%q is not a valid option", s)})
				continue
			}
			out[f.Name] = s

		case domain.FieldTypeCheckbox:
			vals, ok := asStringSlice(v)
			if !ok {
				errs = append(errs, FieldError{Field: f.Name, Reason: "must be a list of options"})
				continue
			}
			var selected []string
			bad := false
			for _, s := range vals {
				s = strings.TrimSpace(s)
				if s == "" {
					continue
				}
				if !contains(f.Options, s) {
					errs = append(errs, FieldError{Field: f.Name, Reason: fmt.Sprintf("%q is not a valid option", s)})
					bad = true
					break
				}
				selected = append(selected, s)
			}
			if bad {
				continue
			}
			if len(selected) == 0 {
				if f.Required {
					errs = append(errs, FieldError{Field: f.Name, Reason: "required"})
				}
				continue
			}
			out[f.Name] = selected

		case domain.FieldTypeScale:
			n, ok := asScale(v)
			if !ok {
				errs = append(errs, FieldError{Field: f.Name, Reason: "must be a whole number"})
				continue
			}
			if n < ScaleMin || n > ScaleMax {
				errs = append(errs, FieldError{Field: f.Name, Reason: fmt.Sprintf("must be between %d and %d", ScaleMin, ScaleMax)})
				continue
			}
			out[f.Name] = float64(n)

		default:
			errs = append(errs, FieldError{Field: f.Name, Reason: fmt.Sprintf("unknown field type %q", f.Type)})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// ExtractRespondent pulls the allow-listed identity keys out of a raw
// payload. Missing or non-string values are skipped; the result may be empty
// but is never nil.
func ExtractRespondent(raw map[string]any) domain.Respondent {
	r := domain.Respondent{}
	for _, k := range RespondentKeys {
		if v, ok := raw[k]; ok {
			if s, ok := asString(v); ok {
				if s = strings.TrimSpace(s); s != "" {
					r[k] = s
				}
			}
		}
	}
	return r
}

// CheckFields validates a field list itself: non-empty stable names, unique
// names within the list, known types, and options present where the type
// needs them. Used when saving or publishing a draft.
func CheckFields(fields domain.FieldList) []FieldError {
	var errs []FieldError
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("fields[%d]", i), Reason: "name is required"})
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, FieldError{Field: name, Reason: "duplicate field name"})
			continue
		}
		seen[name] = struct{}{}

		switch f.Type {
		case domain.FieldTypeText, domain.FieldTypeScale:
		case domain.FieldTypeRadio, domain.FieldTypeCheckbox:
			if len(f.Options) == 0 {
				errs = append(errs, FieldError{Field: name, Reason: "options are required for " + f.Type + " fields"})
			}
		default:
			errs = append(errs, FieldError{Field: name, Reason: fmt.Sprintf("unknown field type %q", f.Type)})
		}
	}
	return errs
}

func contains(opts []string, s string) bool {
	for _, o := range opts {
		if o == s {
			return true
		}
	}
	return false
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func asStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := asString(e)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		// Single selection submitted without the array wrapper.
		return []string{t}, true
	default:
		return nil, false
	}
}

// asScale coerces ints, whole floats, and numeric strings to an int.
func asScale(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		n := int(t)
		if float64(n) != t {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
