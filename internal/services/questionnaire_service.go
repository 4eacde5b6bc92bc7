// Package services – QuestionnaireService
//
// This file implements the QuestionnaireService, which manages tenant-scoped
// survey identities: creation with unique-slug enforcement, listing,
// deactivation (questionnaires are never hard-deleted), and the at-most-one
// default per tenant rule. Service-level errors (e.g. ErrSlugTaken) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/domain"
	"github.com/formbeat/go-survey-backend/internal/repo"
)

// QuestionnaireService provides questionnaire-level operations. It enforces
// slug normalization and the single-default rule.
type QuestionnaireService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewQuestionnaireService constructs a QuestionnaireService.
func NewQuestionnaireService(db *gorm.DB) *QuestionnaireService {
	return &QuestionnaireService{DB: db}
}

// Create inserts a new questionnaire for tenantID. The slug is normalized
// to lowercase kebab case; an empty slug is derived from the name. Setting
// isDefault clears the flag from any previous default in the same
// transaction.
func (s *QuestionnaireService) Create(ctx context.Context, tenantID, slug, name string, isDefault bool) (*domain.Questionnaire, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled questionnaire"
	}
	slug = normalizeSlug(slug)
	if slug == "" {
		slug = normalizeSlug(name)
	}
	if slug == "" {
		return nil, &ValidationError{Fields: fieldErrs("slug", "slug is required")}
	}

	var created *domain.Questionnaire
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isDefault {
			if err := repo.ClearDefaultQuestionnaire(ctx, tx, tenantID); err != nil {
				return err
			}
		}
		q, err := repo.CreateQuestionnaire(ctx, tx, tenantID, slug, name, isDefault)
		if err != nil {
			if isDuplicate(err) {
				return ErrSlugTaken
			}
			return err
		}
		created = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// List returns all questionnaires of a tenant, newest first.
func (s *QuestionnaireService) List(ctx context.Context, tenantID string) ([]domain.Questionnaire, error) {
	return repo.ListQuestionnaires(ctx, s.DB, tenantID)
}

// GetBySlug fetches one questionnaire, mapping missing rows to
// ErrQuestionnaireNotFound.
func (s *QuestionnaireService) GetBySlug(ctx context.Context, tenantID, slug string) (*domain.Questionnaire, error) {
	q, err := repo.GetQuestionnaireBySlug(ctx, s.DB, tenantID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, err
	}
	return q, nil
}

// Deactivate turns a questionnaire off. Existing versions and responses are
// retained; new submissions are rejected while inactive.
func (s *QuestionnaireService) Deactivate(ctx context.Context, tenantID, slug string) error {
	if err := repo.DeactivateQuestionnaire(ctx, s.DB, tenantID, slug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionnaireNotFound
		}
		return err
	}
	return nil
}

// normalizeSlug lowercases, trims, and collapses everything that is not
// [a-z0-9] into single hyphens.
func normalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
