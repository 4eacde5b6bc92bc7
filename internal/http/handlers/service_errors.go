// Service-error translation.
//
// This file centralizes the mapping from the typed service errors of
// internal/services to HTTP results, so every endpoint reports the same
// status and code for the same condition. Validation and dataset-ceiling
// errors carry structured detail in the response body.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formbeat/go-survey-backend/internal/http/middleware"
	"github.com/formbeat/go-survey-backend/internal/schema"
	"github.com/formbeat/go-survey-backend/internal/services"
)

// ValidationErrorResponse is the error envelope for failed schema checks;
// Fields carries per-field detail for UI highlighting.
type ValidationErrorResponse struct {
	RequestID string              `json:"request_id,omitempty"`
	Code      string              `json:"code" example:"validation_failed"`
	Message   string              `json:"message"`
	Fields    []schema.FieldError `json:"fields"`
}

// DatasetTooLargeResponse is the error envelope for aggregation requests
// whose candidate set exceeds the row ceiling; Limit lets a UI suggest a
// concrete narrower filter.
type DatasetTooLargeResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code" example:"dataset_too_large"`
	Message   string `json:"message"`
	Limit     int    `json:"limit"`
}

// failService translates a service error into the appropriate HTTP result.
// Unknown errors are treated as storage failures and reported as 500.
func failService(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			RequestID: c.Writer.Header().Get("X-Request-ID"),
			Code:      ErrCodeValidationFailed,
			Message:   "payload failed schema validation",
			Fields:    verr.Fields,
		})
		return
	}

	var derr *services.DatasetTooLargeError
	if errors.As(err, &derr) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, DatasetTooLargeResponse{
			RequestID: c.Writer.Header().Get("X-Request-ID"),
			Code:      ErrCodeDatasetTooLarge,
			Message:   derr.Error(),
			Limit:     derr.Limit,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuestionnaireNotFound),
		errors.Is(err, services.ErrVersionNotFound),
		errors.Is(err, services.ErrDraftNotFound),
		errors.Is(err, services.ErrNoPublishedVersion),
		errors.Is(err, services.ErrDimensionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrSlugTaken),
		errors.Is(err, services.ErrPublishConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrDrilldownNotSupported):
		fail(c, http.StatusBadRequest, ErrCodeUnsupported, err.Error())
	default:
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Msg("service failure")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
