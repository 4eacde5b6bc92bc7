// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// by the analytics summary (total responses, today's count, last submission
// recency). Each function is context-aware and safe to call from services
// or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// ResponseStats returns aggregate metadata for a questionnaire's responses:
// the total number of rows and the most recent CreatedAt timestamp.
//
// It executes two lightweight queries against the responses table scoped to
// the provided questionnaireID. When there are no responses, the returned
// count is 0 and lastSubmittedAt is nil.
//
// Return values:
//   - count:           total responses for questionnaireID
//   - lastSubmittedAt: pointer to the greatest CreatedAt, or nil if no rows
//   - err:             database error, if any
func ResponseStats(ctx context.Context, db *gorm.DB, questionnaireID string) (count int64, lastSubmittedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Response{}).Where("questionnaire_id = ?", questionnaireID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// CountResponsesSince counts responses created at or after the given
// instant. The summary endpoint uses it with UTC midnight for
// "responses today".
func CountResponsesSince(ctx context.Context, db *gorm.DB, questionnaireID string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Response{}).
		Where("questionnaire_id = ? AND created_at >= ?", questionnaireID, since).
		Count(&n).Error
	return n, err
}
