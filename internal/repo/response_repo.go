// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Response
// model.
//
// Responses are insert-only: they are never updated or deleted so that old
// data stays interpretable against the archived version it was validated
// against. List queries always order by creation time descending; the
// aggregation layer depends on that ordering for reproducible first-seen
// bucket order.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// ResponseQuery scopes a response scan. Zero values mean "no filter";
// Limit <= 0 means no row cap (callers should always set one).
type ResponseQuery struct {
	QuestionnaireID string
	VersionID       string
	From            *time.Time
	To              *time.Time // exclusive
	Limit           int
}

// CreateResponse inserts one submission bound to the version it was
// validated against. The ID is a random UUID and CreatedAt is set to UTC if
// unset (tests backdate it for trend scenarios).
func CreateResponse(ctx context.Context, db *gorm.DB, r *domain.Response) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// ListResponses returns responses matching the query, newest first, capped
// at q.Limit rows. The service layer requests ceiling+1 rows to detect
// oversized candidate sets without materializing them.
func ListResponses(ctx context.Context, db *gorm.DB, q ResponseQuery) ([]domain.Response, error) {
	tx := db.WithContext(ctx).
		Where("questionnaire_id = ?", q.QuestionnaireID).
		Order("created_at desc")
	if q.VersionID != "" {
		tx = tx.Where("version_id = ?", q.VersionID)
	}
	if q.From != nil {
		tx = tx.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("created_at < ?", *q.To)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var out []domain.Response
	err := tx.Find(&out).Error
	return out, err
}

// CountResponses returns the total number of responses for a questionnaire.
func CountResponses(ctx context.Context, db *gorm.DB, questionnaireID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Response{}).
		Where("questionnaire_id = ?", questionnaireID).
		Count(&n).Error
	return n, err
}

// ListResponsesPage returns a page of responses, newest first. Used by the
// dashboard's raw-response view and the CSV export.
func ListResponsesPage(ctx context.Context, db *gorm.DB, questionnaireID string, offset, limit int) ([]domain.Response, error) {
	var out []domain.Response
	err := db.WithContext(ctx).
		Where("questionnaire_id = ?", questionnaireID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
