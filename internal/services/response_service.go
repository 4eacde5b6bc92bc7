// Package services – ResponseService
//
// This file implements the ResponseService, which validates and persists
// submissions. Every response is validated against the questionnaire's
// currently published schema version and permanently bound to that version
// id, which is what lets historical data remain interpretable after the
// schema evolves. Responses are insert-only: never mutated, never deleted.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/domain"
	"github.com/formbeat/go-survey-backend/internal/repo"
	"github.com/formbeat/go-survey-backend/internal/schema"
)

// ResponseService implements response ingestion and raw-response reads.
type ResponseService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewResponseService constructs a ResponseService.
func NewResponseService(db *gorm.DB) *ResponseService {
	return &ResponseService{DB: db}
}

// Submit validates payload against the published version of the
// questionnaire and persists the response bound to that exact version id.
//
// Failure modes:
//   - ErrQuestionnaireNotFound when the slug is unknown or the
//     questionnaire is inactive
//   - ErrNoPublishedVersion when nothing has been published yet
//   - *ValidationError with per-field detail when the payload fails the
//     schema checks
func (s *ResponseService) Submit(ctx context.Context, tenantID, slug string, payload map[string]any) (*domain.Response, error) {
	q, err := repo.GetQuestionnaireBySlug(ctx, s.DB, tenantID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, err
	}
	if !q.Active {
		return nil, ErrQuestionnaireNotFound
	}

	version, err := repo.GetVersionByStatus(ctx, s.DB, q.ID, domain.VersionStatusPublished)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPublishedVersion
		}
		return nil, err
	}

	answers, ferrs := schema.Validate(version.Fields, payload)
	if len(ferrs) > 0 {
		return nil, &ValidationError{Fields: ferrs}
	}

	r := &domain.Response{
		TenantID:        tenantID,
		QuestionnaireID: q.ID,
		VersionID:       version.ID,
		Respondent:      schema.ExtractRespondent(payload),
		Answers:         answers,
	}
	if err := repo.CreateResponse(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Get fetches one response by id, scoped to the tenant. Used by the
// idempotency replay path.
func (s *ResponseService) Get(ctx context.Context, tenantID, responseID string) (*domain.Response, error) {
	var r domain.Response
	err := s.DB.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", responseID, tenantID).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ListPage returns a page of raw responses for a questionnaire, newest
// first, plus the total count. It applies defaults for invalid
// page/pageSize.
func (s *ResponseService) ListPage(ctx context.Context, tenantID, slug string, page, pageSize int) ([]domain.Response, int64, error) {
	q, err := repo.GetQuestionnaireBySlug(ctx, s.DB, tenantID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrQuestionnaireNotFound
		}
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountResponses(ctx, s.DB, q.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Response{}, 0, nil
	}

	items, err := repo.ListResponsesPage(ctx, s.DB, q.ID, offset, pageSize)
	return items, total, err
}

// Recent returns the newest n responses of a questionnaire. Used to build
// the AI analysis bundle.
func (s *ResponseService) Recent(ctx context.Context, tenantID, slug string, n int) ([]domain.Response, error) {
	q, err := repo.GetQuestionnaireBySlug(ctx, s.DB, tenantID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, err
	}
	return repo.ListResponsesPage(ctx, s.DB, q.ID, 0, n)
}
