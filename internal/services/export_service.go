// Package services – ExportService
//
// This file implements the CSV export collaborator: it streams the same raw
// response rows the aggregation engines consume, flattened into one column
// per schema field plus the respondent allow-list columns. Flattening rules:
// checkbox selections are joined with "; ", scale answers are written as
// integers, missing answers are empty cells.
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/analytics"
	"github.com/formbeat/go-survey-backend/internal/domain"
	"github.com/formbeat/go-survey-backend/internal/repo"
	"github.com/formbeat/go-survey-backend/internal/schema"
)

// ExportService flattens responses into CSV for download.
type ExportService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// MaxRows caps one export; exceeding it fails with DatasetTooLargeError.
	MaxRows int
}

// NewExportService constructs an ExportService.
func NewExportService(db *gorm.DB, maxRows int) *ExportService {
	return &ExportService{DB: db, MaxRows: maxRows}
}

// WriteCSV writes the questionnaire's responses to w. Columns follow the
// published version's field order (or an explicit historical version when
// versionID is set), preceded by the response id, creation timestamp, and
// the respondent allow-list keys.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, tenantID, slug, versionID string) error {
	q, err := repo.GetQuestionnaireBySlug(ctx, s.DB, tenantID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionnaireNotFound
		}
		return err
	}

	var version *domain.QuestionnaireVersion
	if versionID != "" {
		version, err = repo.GetVersion(ctx, s.DB, versionID)
		if err != nil || version.QuestionnaireID != q.ID {
			if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVersionNotFound
			}
			return err
		}
	} else {
		version, err = repo.GetVersionByStatus(ctx, s.DB, q.ID, domain.VersionStatusPublished)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoPublishedVersion
			}
			return err
		}
	}

	responses, err := repo.ListResponses(ctx, s.DB, repo.ResponseQuery{
		QuestionnaireID: q.ID,
		VersionID:       versionID,
		Limit:           s.MaxRows + 1,
	})
	if err != nil {
		return err
	}
	if len(responses) > s.MaxRows {
		return &DatasetTooLargeError{Limit: s.MaxRows}
	}

	cw := csv.NewWriter(w)

	header := []string{"response_id", "created_at"}
	header = append(header, schema.RespondentKeys...)
	for _, f := range version.Fields {
		header = append(header, f.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for _, r := range responses {
		row = row[:0]
		row = append(row, r.ID, r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
		for _, k := range schema.RespondentKeys {
			row = append(row, r.Respondent[k])
		}
		for _, f := range version.Fields {
			row = append(row, flattenAnswer(f, r.Answers[f.Name]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// flattenAnswer renders one answer as a CSV cell.
func flattenAnswer(f domain.Field, v any) string {
	if v == nil {
		return ""
	}
	switch f.Type {
	case domain.FieldTypeCheckbox:
		if vals, ok := analytics.AnswerStrings(v); ok {
			return strings.Join(vals, "; ")
		}
	case domain.FieldTypeScale:
		if n, ok := analytics.AnswerScale(v); ok {
			return strconv.Itoa(n)
		}
	default:
		if s, ok := analytics.AnswerString(v); ok {
			return s
		}
	}
	return ""
}
