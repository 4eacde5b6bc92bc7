// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Questionnaire model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a questionnaire is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated; the service layer maps unique-slug
//     violations to its own Conflict sentinel.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateQuestionnaire inserts a new questionnaire row for tenantID. The ID
// is a randomly generated UUID and CreatedAt is set to UTC. Slug uniqueness
// per tenant is enforced by the ux_tenant_slug index; violations surface as
// the raw driver error.
func CreateQuestionnaire(ctx context.Context, db *gorm.DB, tenantID, slug, name string, isDefault bool) (*domain.Questionnaire, error) {
	q := &domain.Questionnaire{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Slug:      slug,
		Name:      name,
		Active:    true,
		IsDefault: isDefault,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuestionnaireBySlug fetches one questionnaire by its tenant-scoped
// slug, or ErrNotFound if missing.
func GetQuestionnaireBySlug(ctx context.Context, db *gorm.DB, tenantID, slug string) (*domain.Questionnaire, error) {
	var q domain.Questionnaire
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND slug = ?", tenantID, slug).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuestionnaires returns all questionnaires of a tenant, ordered by
// creation time descending.
func ListQuestionnaires(ctx context.Context, db *gorm.DB, tenantID string) ([]domain.Questionnaire, error) {
	var out []domain.Questionnaire
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// DeactivateQuestionnaire flips the active flag off. Questionnaires are
// never hard-deleted; their versions and responses remain the historical
// record. Returns ErrNotFound if no row matched.
func DeactivateQuestionnaire(ctx context.Context, db *gorm.DB, tenantID, slug string) error {
	res := db.WithContext(ctx).
		Model(&domain.Questionnaire{}).
		Where("tenant_id = ? AND slug = ?", tenantID, slug).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearDefaultQuestionnaire removes the default flag from every
// questionnaire of a tenant. Called inside the same transaction that sets a
// new default, keeping at most one default per tenant.
func ClearDefaultQuestionnaire(ctx context.Context, db *gorm.DB, tenantID string) error {
	return db.WithContext(ctx).
		Model(&domain.Questionnaire{}).
		Where("tenant_id = ? AND is_default = ?", tenantID, true).
		Update("is_default", false).Error
}
