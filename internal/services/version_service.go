// Package services – VersionService
//
// This file implements the VersionService, which orchestrates the
// draft → published → archived lifecycle of questionnaire schema versions.
// The invariants it maintains per questionnaire:
//
//   - at most one version is published and at most one is a draft
//   - version numbers strictly increase and are never reused
//   - publishing atomically archives the old published version, promotes
//     the draft, and spawns a fresh draft cloned from the new content
//
// Concurrency: all mutations run inside a GORM transaction wrapped in a
// per-questionnaire keyed mutex, so concurrent publishes of the same
// questionnaire serialize while different questionnaires proceed in
// parallel. Status transitions are additionally guarded at the storage
// layer (WHERE status = previous), so even a racing writer that slipped
// past the lock observes ErrPublishConflict instead of corrupting state.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/domain"
	"github.com/formbeat/go-survey-backend/internal/repo"
	"github.com/formbeat/go-survey-backend/internal/schema"
)

// VersionService manages the version lifecycle of questionnaires.
type VersionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Locks serializes publish/draft creation per questionnaire id.
	Locks *repo.KeyedMutex
}

// NewVersionService constructs a VersionService with its own lock table.
func NewVersionService(db *gorm.DB) *VersionService {
	return &VersionService{DB: db, Locks: repo.NewKeyedMutex()}
}

// GetOrCreateDraft returns the current draft of the questionnaire,
// creating one if absent by cloning the published version's meta and
// fields (or schema defaults when nothing has ever been published).
//
// The operation is idempotent under concurrency: racing callers serialize
// on the questionnaire lock, the transaction re-checks for an existing
// draft, and a unique-violation fallback reloads the winner's row, so both
// callers observe the same draft.
func (s *VersionService) GetOrCreateDraft(ctx context.Context, tenantID, slug string) (*domain.QuestionnaireVersion, error) {
	q, err := s.resolveQuestionnaire(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}

	// Fast path: a draft usually exists (the system recreates one after
	// every publish).
	if draft, err := repo.GetVersionByStatus(ctx, s.DB, q.ID, domain.VersionStatusDraft); err == nil {
		return draft, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	unlock := s.Locks.Lock(q.ID)
	defer unlock()

	var draft *domain.QuestionnaireVersion
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check inside the lock: another caller may have just created it.
		if existing, err := repo.GetVersionByStatus(ctx, tx, q.ID, domain.VersionStatusDraft); err == nil {
			draft = existing
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		meta, fields := s.draftSeed(ctx, tx, q)
		created, err := s.createDraft(ctx, tx, q.ID, meta, fields)
		if err != nil {
			return err
		}
		draft = created
		return nil
	})
	if err != nil {
		if isDuplicate(err) {
			// Lost a cross-process race on the version-number index; the
			// winner's draft is the result.
			return repo.GetVersionByStatus(ctx, s.DB, q.ID, domain.VersionStatusDraft)
		}
		return nil, err
	}
	return draft, nil
}

// SaveDraft overwrites the draft's meta and fields in place. The target
// must currently be the draft of this questionnaire; otherwise
// ErrDraftNotFound is returned. The field list itself is validated
// (unique names, known types, options where required) before writing.
func (s *VersionService) SaveDraft(ctx context.Context, tenantID, slug, versionID string, meta domain.VersionMeta, fields domain.FieldList) (*domain.QuestionnaireVersion, error) {
	q, err := s.resolveQuestionnaire(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}
	if ferrs := schema.CheckFields(fields); len(ferrs) > 0 {
		return nil, &ValidationError{Fields: ferrs}
	}

	v, err := repo.GetVersion(ctx, s.DB, versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	if v.QuestionnaireID != q.ID {
		return nil, ErrDraftNotFound
	}

	if err := repo.UpdateDraftContent(ctx, s.DB, versionID, meta, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return repo.GetVersion(ctx, s.DB, versionID)
}

// Publish promotes the current draft to published within one atomic unit
// of work: the previously published version (if any) is archived, the
// draft becomes published with a server-assigned timestamp, and a new
// draft cloned from the just-published content is spawned.
//
// A draft with zero fields fails ValidationFailed before any state
// transition. A racing publish that loses the guard checks fails with
// ErrPublishConflict; the caller should reload and retry.
func (s *VersionService) Publish(ctx context.Context, tenantID, slug string) (*domain.QuestionnaireVersion, error) {
	q, err := s.resolveQuestionnaire(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}

	// Pin the draft this caller intends to publish before taking the
	// lock. A racing publish that wins first archives this draft and
	// spawns a fresh clone; promoting the clone on the loser's behalf
	// would double-publish, so the loser must observe a conflict.
	pinned, err := repo.GetVersionByStatus(ctx, s.DB, q.ID, domain.VersionStatusDraft)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}

	unlock := s.Locks.Lock(q.ID)
	defer unlock()
	return s.publishDraft(ctx, q.ID, pinned.ID)
}

// publishDraft runs the publish transaction for one pinned draft. The
// caller must hold the questionnaire's keyed mutex. draftID is the draft
// the caller observed before locking; if the current draft differs, an
// intervening publish won the race and the call fails with
// ErrPublishConflict instead of promoting the newer draft.
func (s *VersionService) publishDraft(ctx context.Context, questionnaireID, draftID string) (*domain.QuestionnaireVersion, error) {
	var published *domain.QuestionnaireVersion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		draft, err := repo.GetVersionByStatus(ctx, tx, questionnaireID, domain.VersionStatusDraft)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDraftNotFound
			}
			return err
		}
		if draft.ID != draftID {
			return ErrPublishConflict
		}
		if len(draft.Fields) == 0 {
			return &ValidationError{Fields: fieldErrs("fields", "cannot publish a version with no fields")}
		}
		if ferrs := schema.CheckFields(draft.Fields); len(ferrs) > 0 {
			return &ValidationError{Fields: ferrs}
		}

		// Archive the current published version, if one exists.
		prev, err := repo.GetVersionByStatus(ctx, tx, questionnaireID, domain.VersionStatusPublished)
		switch {
		case err == nil:
			if err := repo.TransitionVersionStatus(ctx, tx, prev.ID, domain.VersionStatusPublished, domain.VersionStatusArchived, nil); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrPublishConflict
				}
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First publish.
		default:
			return err
		}

		// Promote the draft.
		now := time.Now().UTC()
		if err := repo.TransitionVersionStatus(ctx, tx, draft.ID, domain.VersionStatusDraft, domain.VersionStatusPublished, &now); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPublishConflict
			}
			return err
		}

		// Invariant check-then-act inside the same transaction and lock
		// scope: exactly one published row must remain.
		if n, err := repo.CountVersionsByStatus(ctx, tx, questionnaireID, domain.VersionStatusPublished); err != nil {
			return err
		} else if n != 1 {
			return ErrPublishConflict
		}

		// Spawn the next draft cloned from what was just published.
		if _, err := s.createDraft(ctx, tx, questionnaireID, draft.Meta, draft.Fields); err != nil {
			return err
		}

		published, err = repo.GetVersion(ctx, tx, draft.ID)
		return err
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrPublishConflict
		}
		return nil, err
	}
	return published, nil
}

// ListVersions returns the questionnaire's full version history, newest
// first. Archived versions are retained forever as the historical record
// for old responses.
func (s *VersionService) ListVersions(ctx context.Context, tenantID, slug string) ([]domain.QuestionnaireVersion, error) {
	q, err := s.resolveQuestionnaire(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}
	return repo.ListVersions(ctx, s.DB, q.ID)
}

// GetVersion fetches one version by id, verifying that it belongs to the
// questionnaire.
func (s *VersionService) GetVersion(ctx context.Context, tenantID, slug, versionID string) (*domain.QuestionnaireVersion, error) {
	q, err := s.resolveQuestionnaire(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}
	v, err := repo.GetVersion(ctx, s.DB, versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	if v.QuestionnaireID != q.ID {
		return nil, ErrVersionNotFound
	}
	return v, nil
}

// createDraft inserts a new draft row with the next free version number.
// Must be called inside the questionnaire lock.
func (s *VersionService) createDraft(ctx context.Context, tx *gorm.DB, questionnaireID string, meta domain.VersionMeta, fields domain.FieldList) (*domain.QuestionnaireVersion, error) {
	maxN, err := repo.MaxVersionNumber(ctx, tx, questionnaireID)
	if err != nil {
		return nil, err
	}
	draft := &domain.QuestionnaireVersion{
		ID:              uuid.NewString(),
		QuestionnaireID: questionnaireID,
		Version:         maxN + 1,
		Status:          domain.VersionStatusDraft,
		Meta:            meta,
		Fields:          cloneFields(fields),
		CreatedAt:       time.Now().UTC(),
	}
	if err := repo.CreateVersion(ctx, tx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// draftSeed returns the content a brand-new draft starts from: the current
// published version if one exists, otherwise schema defaults.
func (s *VersionService) draftSeed(ctx context.Context, tx *gorm.DB, q *domain.Questionnaire) (domain.VersionMeta, domain.FieldList) {
	if pub, err := repo.GetVersionByStatus(ctx, tx, q.ID, domain.VersionStatusPublished); err == nil {
		return pub.Meta, pub.Fields
	}
	return domain.VersionMeta{Title: q.Name}, domain.FieldList{}
}

func (s *VersionService) resolveQuestionnaire(ctx context.Context, tenantID, slug string) (*domain.Questionnaire, error) {
	q, err := repo.GetQuestionnaireBySlug(ctx, s.DB, tenantID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, err
	}
	return q, nil
}

// cloneFields deep-copies a field list so a spawned draft never shares
// option slices with the published snapshot it was cloned from.
func cloneFields(fields domain.FieldList) domain.FieldList {
	out := make(domain.FieldList, len(fields))
	for i, f := range fields {
		out[i] = f
		if len(f.Options) > 0 {
			out[i].Options = append([]string(nil), f.Options...)
		}
	}
	return out
}
