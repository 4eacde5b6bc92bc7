// Package services defines the business logic for questionnaires, version
// lifecycle, response ingestion, and analytics. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer. All of them are expected,
// recoverable-by-caller conditions; storage I/O failures propagate
// unchanged and are the only class treated as unexpected.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/formbeat/go-survey-backend/internal/schema"
)

var (
	// ErrQuestionnaireNotFound indicates that the requested questionnaire
	// does not exist for this tenant or is inactive where active is
	// required.
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")

	// ErrSlugTaken is returned when creating a questionnaire with a slug
	// already used by this tenant.
	ErrSlugTaken = errors.New("slug already in use")

	// ErrVersionNotFound indicates that the requested version does not
	// exist or does not belong to the questionnaire.
	ErrVersionNotFound = errors.New("version not found")

	// ErrNoPublishedVersion is returned when an operation needs the
	// published version of a questionnaire that has never been published.
	ErrNoPublishedVersion = errors.New("questionnaire has no published version")

	// ErrDraftNotFound indicates that the target version is not currently
	// the draft (it was published or archived in the meantime).
	ErrDraftNotFound = errors.New("draft version not found")

	// ErrPublishConflict is returned when a concurrent publish won the
	// race; the caller should reload the draft and retry.
	ErrPublishConflict = errors.New("publish conflict: version changed concurrently, reload and retry")

	// ErrDimensionNotFound indicates the segment dimension id does not
	// resolve against the version's schema.
	ErrDimensionNotFound = errors.New("segment dimension not found")

	// ErrDrilldownNotSupported is returned when drilldown is requested on
	// a dimension that is not drilldown-eligible.
	ErrDrilldownNotSupported = errors.New("segment dimension does not support drilldown")
)

// ValidationError carries the per-field detail of a failed payload or
// schema check, with enough structure for a UI to highlight the exact
// problem.
type ValidationError struct {
	Fields []schema.FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DatasetTooLargeError is returned when an aggregation candidate set
// exceeds the configured row ceiling. It carries the ceiling so a UI can
// suggest a concrete narrower filter.
type DatasetTooLargeError struct {
	Limit int
}

// Error implements the error interface.
func (e *DatasetTooLargeError) Error() string {
	return fmt.Sprintf("dataset too large: more than %d responses match, narrow your filter", e.Limit)
}

// fieldErrs builds a single-entry field error list for ad-hoc validation
// failures raised by services themselves.
func fieldErrs(field, reason string) []schema.FieldError {
	return []schema.FieldError{{Field: field, Reason: reason}}
}
