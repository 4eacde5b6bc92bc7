// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// QuestionnaireVersion model.
//
// Status transitions are expressed as guarded updates (WHERE id AND status)
// so the version lifecycle service can detect lost races via RowsAffected
// instead of trusting in-memory state. Version rows are otherwise immutable
// once published or archived.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// CreateVersion inserts a new version row. The caller assigns ID, version
// number, and status; CreatedAt is set to UTC here if unset.
func CreateVersion(ctx context.Context, db *gorm.DB, v *domain.QuestionnaireVersion) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(v).Error
}

// GetVersion fetches a version by ID, or ErrNotFound.
func GetVersion(ctx context.Context, db *gorm.DB, id string) (*domain.QuestionnaireVersion, error) {
	var v domain.QuestionnaireVersion
	if err := db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVersionByStatus fetches the version of a questionnaire in the given
// status. The one-draft/one-published invariant means at most one row can
// match for those statuses; for "archived" the newest is returned.
func GetVersionByStatus(ctx context.Context, db *gorm.DB, questionnaireID, status string) (*domain.QuestionnaireVersion, error) {
	var v domain.QuestionnaireVersion
	err := db.WithContext(ctx).
		Where("questionnaire_id = ? AND status = ?", questionnaireID, status).
		Order("version desc").
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns the full version history of a questionnaire, newest
// first.
func ListVersions(ctx context.Context, db *gorm.DB, questionnaireID string) ([]domain.QuestionnaireVersion, error) {
	var out []domain.QuestionnaireVersion
	err := db.WithContext(ctx).
		Where("questionnaire_id = ?", questionnaireID).
		Order("version desc").
		Find(&out).Error
	return out, err
}

// MaxVersionNumber returns the highest version number ever used for a
// questionnaire, or 0 if none exists. Numbers are never reused, so the next
// version is always max+1.
func MaxVersionNumber(ctx context.Context, db *gorm.DB, questionnaireID string) (int, error) {
	var row struct {
		N *int
	}
	err := db.WithContext(ctx).
		Model(&domain.QuestionnaireVersion{}).
		Select("MAX(version) AS n").
		Where("questionnaire_id = ?", questionnaireID).
		Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.N == nil {
		return 0, nil
	}
	return *row.N, nil
}

// CountVersionsByStatus counts a questionnaire's versions in one status.
// Used by the lifecycle service to enforce the one-published/one-draft
// invariant at the application layer inside the publish transaction.
func CountVersionsByStatus(ctx context.Context, db *gorm.DB, questionnaireID, status string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.QuestionnaireVersion{}).
		Where("questionnaire_id = ? AND status = ?", questionnaireID, status).
		Count(&n).Error
	return n, err
}

// UpdateDraftContent overwrites a draft's meta and fields in place. The
// status guard makes the write a no-op when the target is no longer the
// draft (published or archived rows are immutable); that case returns
// ErrNotFound.
func UpdateDraftContent(ctx context.Context, db *gorm.DB, id string, meta domain.VersionMeta, fields domain.FieldList) error {
	// Struct-based Updates so the serializer:json columns are encoded;
	// a plain map would hand the raw structs to database/sql.
	res := db.WithContext(ctx).
		Model(&domain.QuestionnaireVersion{}).
		Where("id = ? AND status = ?", id, domain.VersionStatusDraft).
		Select("meta", "fields", "updated_at").
		Updates(&domain.QuestionnaireVersion{
			Meta:      meta,
			Fields:    fields,
			UpdatedAt: time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TransitionVersionStatus moves a version from one status to another, with
// the previous status as guard. publishedAt is written only when non-nil.
// Returns ErrNotFound when the guard failed, which the lifecycle service
// interprets as a lost publish race.
func TransitionVersionStatus(ctx context.Context, db *gorm.DB, id, fromStatus, toStatus string, publishedAt *time.Time) error {
	updates := map[string]any{
		"status":     toStatus,
		"updated_at": time.Now().UTC(),
	}
	if publishedAt != nil {
		updates["published_at"] = *publishedAt
	}
	res := db.WithContext(ctx).
		Model(&domain.QuestionnaireVersion{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
