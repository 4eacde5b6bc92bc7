// Package services – AnalyticsService
//
// This file implements the AnalyticsService, which orchestrates the pure
// aggregation engines in internal/analytics: it resolves the questionnaire
// and version context fresh per request, loads the bounded response set
// from storage (newest first), applies segment drilldown filtering in the
// aggregation layer, and composes summary, distribution, trend, and
// segment-comparison payloads annotated with a data-quality assessment.
//
// Public variants wrap the same payloads in the k-anonymity privacy gate
// and strip the questionnaire reference down to slug and name.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/analytics"
	"github.com/formbeat/go-survey-backend/internal/domain"
	"github.com/formbeat/go-survey-backend/internal/repo"
)

// Filters narrows an analytics request. All fields are optional; To is
// exclusive (handlers convert a date-only "to" to midnight of the next
// day).
type Filters struct {
	From               *time.Time
	To                 *time.Time
	VersionID          string
	SegmentDimensionID string
	SegmentBucket      string
}

// segmented reports whether a drilldown filter is requested.
func (f Filters) segmented() bool {
	return f.SegmentDimensionID != "" && f.SegmentBucket != ""
}

// QuestionnaireRef identifies the questionnaire an analytics payload was
// computed for.
type QuestionnaireRef struct {
	ID   string `json:"id,omitempty"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Summary is the dashboard headline payload.
type Summary struct {
	Questionnaire    QuestionnaireRef              `json:"questionnaire"`
	VersionID        string                        `json:"version_id"`
	TotalResponses   int                           `json:"total_responses"`
	ResponsesToday   int64                         `json:"responses_today"`
	LastSubmittedAt  *time.Time                    `json:"last_submitted_at,omitempty"`
	AvgScaleOverall  float64                       `json:"avg_scale_overall"`
	QuestionAverages map[string]float64            `json:"question_averages"`
	ScaleAverages    []analytics.ScaleAverage      `json:"scale_averages"`
	CriteriaSummary  []analytics.CriterionSummary  `json:"criteria_summary"`
	SegmentSummary   []analytics.Dimension         `json:"segment_summary"`
	DataQuality      analytics.DataQuality         `json:"data_quality"`
}

// Distribution is the full per-question breakdown payload.
type Distribution struct {
	Questionnaire   QuestionnaireRef             `json:"questionnaire"`
	VersionID       string                       `json:"version_id"`
	TotalResponses  int                          `json:"total_responses"`
	Questions       []analytics.QuestionStats    `json:"questions"`
	ScaleAverages   []analytics.ScaleAverage     `json:"scale_averages"`
	CriteriaSummary []analytics.CriterionSummary `json:"criteria_summary"`
	SegmentSummary  []analytics.Dimension        `json:"segment_summary"`
	DataQuality     analytics.DataQuality        `json:"data_quality"`
}

// BucketSummary is one side of a segment comparison.
type BucketSummary struct {
	Value           string                `json:"value"`
	TotalResponses  int                   `json:"total_responses"`
	AvgScaleOverall float64               `json:"avg_scale_overall"`
	DataQuality     analytics.DataQuality `json:"data_quality"`
}

// SegmentCompare holds parallel per-bucket summaries for side-by-side
// dashboards.
type SegmentCompare struct {
	SegmentDimensionID string          `json:"segment_dimension_id"`
	Buckets            []BucketSummary `json:"buckets"`
}

// PublicSummary is the privacy-gated variant of Summary. When Status is
// "insufficient_sample" only the count survives; breakdowns are nil.
type PublicSummary struct {
	Status         string                `json:"status"`
	Questionnaire  QuestionnaireRef      `json:"questionnaire"`
	TotalResponses int                   `json:"total_responses"`
	DataQuality    analytics.DataQuality `json:"data_quality"`
	Summary        *Summary              `json:"summary,omitempty"`
}

// PublicDistribution is the privacy-gated variant of Distribution.
type PublicDistribution struct {
	Status         string                `json:"status"`
	Questionnaire  QuestionnaireRef      `json:"questionnaire"`
	TotalResponses int                   `json:"total_responses"`
	DataQuality    analytics.DataQuality `json:"data_quality"`
	Distribution   *Distribution         `json:"distribution,omitempty"`
}

// PublicTrend is the privacy-gated variant of the trend series.
type PublicTrend struct {
	Status         string           `json:"status"`
	Questionnaire  QuestionnaireRef `json:"questionnaire"`
	TotalResponses int              `json:"total_responses"`
	Trend          *analytics.Trend `json:"trend,omitempty"`
}

// AnalyticsService composes the aggregation engines into API payloads.
type AnalyticsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// MaxAggregationRows caps the candidate set of a full aggregation;
	// MaxDrilldownRows caps segment-scoped drilldowns, which are cheaper
	// to narrow than to scan (the filter runs in the aggregation layer).
	MaxAggregationRows int
	MaxDrilldownRows   int

	// Gate holds the public-facing k-anonymity thresholds.
	Gate analytics.GateConfig

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService with the given row
// ceilings and privacy gate.
func NewAnalyticsService(db *gorm.DB, maxAggRows, maxDrillRows int, gate analytics.GateConfig) *AnalyticsService {
	return &AnalyticsService{
		DB:                 db,
		MaxAggregationRows: maxAggRows,
		MaxDrilldownRows:   maxDrillRows,
		Gate:               gate,
		Now:                func() time.Time { return time.Now().UTC() },
	}
}

// requestContext is the per-request resolution: questionnaire, version
// snapshot, and bounded response set. Nothing here is cached between
// requests.
type requestContext struct {
	questionnaire *domain.Questionnaire
	version       *domain.QuestionnaireVersion
	responses     []domain.Response
	filters       Filters
}

// resolve loads the questionnaire, the requested version (explicit id or
// the published one), and the response set under the applicable row
// ceiling. Drilldown filtering happens here so every downstream engine
// sees only the scoped candidate set.
func (s *AnalyticsService) resolve(ctx context.Context, tenantID, slug string, f Filters) (*requestContext, error) {
	q, err := repo.GetQuestionnaireBySlug(ctx, s.DB, tenantID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, err
	}

	var version *domain.QuestionnaireVersion
	if f.VersionID != "" {
		version, err = repo.GetVersion(ctx, s.DB, f.VersionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrVersionNotFound
			}
			return nil, err
		}
		if version.QuestionnaireID != q.ID {
			return nil, ErrVersionNotFound
		}
	} else {
		version, err = repo.GetVersionByStatus(ctx, s.DB, q.ID, domain.VersionStatusPublished)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoPublishedVersion
			}
			return nil, err
		}
	}

	ceiling := s.MaxAggregationRows
	if f.segmented() {
		ceiling = s.MaxDrilldownRows
	}

	responses, err := repo.ListResponses(ctx, s.DB, repo.ResponseQuery{
		QuestionnaireID: q.ID,
		VersionID:       f.VersionID, // empty = all versions
		From:            f.From,
		To:              f.To,
		Limit:           ceiling + 1,
	})
	if err != nil {
		return nil, err
	}
	if len(responses) > ceiling {
		return nil, &DatasetTooLargeError{Limit: ceiling}
	}

	if f.segmented() {
		responses, err = analytics.FilterBySegment(version.Fields, responses, f.SegmentDimensionID, f.SegmentBucket)
		if err != nil {
			return nil, mapSegmentErr(err)
		}
	}

	return &requestContext{questionnaire: q, version: version, responses: responses, filters: f}, nil
}

// Summary computes the dashboard headline payload.
func (s *AnalyticsService) Summary(ctx context.Context, tenantID, slug string, f Filters) (*Summary, error) {
	rc, err := s.resolve(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}

	dist := analytics.Aggregate(rc.version.Fields, rc.responses)
	dims := analytics.DiscoverDimensions(rc.version.Fields, rc.responses)

	_, last, err := repo.ResponseStats(ctx, s.DB, rc.questionnaire.ID)
	if err != nil {
		return nil, err
	}
	today, err := repo.CountResponsesSince(ctx, s.DB, rc.questionnaire.ID, s.Now().Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}

	return &Summary{
		Questionnaire:    ref(rc.questionnaire),
		VersionID:        rc.version.ID,
		TotalResponses:   dist.TotalResponses,
		ResponsesToday:   today,
		LastSubmittedAt:  last,
		AvgScaleOverall:  dist.AvgScaleOverall,
		QuestionAverages: dist.QuestionAverages,
		ScaleAverages:    dist.ScaleAverages,
		CriteriaSummary:  dist.CriteriaSummary,
		SegmentSummary:   dims,
		DataQuality:      s.quality(dist.TotalResponses, f, last),
	}, nil
}

// Distribution computes the full per-question breakdown payload.
func (s *AnalyticsService) Distribution(ctx context.Context, tenantID, slug string, f Filters) (*Distribution, error) {
	rc, err := s.resolve(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}

	dist := analytics.Aggregate(rc.version.Fields, rc.responses)
	dims := analytics.DiscoverDimensions(rc.version.Fields, rc.responses)

	_, last, err := repo.ResponseStats(ctx, s.DB, rc.questionnaire.ID)
	if err != nil {
		return nil, err
	}

	return &Distribution{
		Questionnaire:   ref(rc.questionnaire),
		VersionID:       rc.version.ID,
		TotalResponses:  dist.TotalResponses,
		Questions:       dist.Questions,
		ScaleAverages:   dist.ScaleAverages,
		CriteriaSummary: dist.CriteriaSummary,
		SegmentSummary:  dims,
		DataQuality:     s.quality(dist.TotalResponses, f, last),
	}, nil
}

// Trend computes the zero-filled daily submission series. When no range is
// given it defaults to the 30 days ending tomorrow (exclusive).
func (s *AnalyticsService) Trend(ctx context.Context, tenantID, slug string, f Filters) (*analytics.Trend, error) {
	from, to := s.trendRange(f)
	f.From, f.To = &from, &to

	rc, err := s.resolve(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}
	t := analytics.BuildTrend(rc.responses, from, to)
	return &t, nil
}

// SegmentCompare runs the distribution engine independently per bucket of
// the requested dimension and returns parallel summaries.
func (s *AnalyticsService) SegmentCompare(ctx context.Context, tenantID, slug, dimensionID string, f Filters) (*SegmentCompare, error) {
	// Load once without a drilldown filter, then fan out in memory.
	f.SegmentDimensionID, f.SegmentBucket = "", ""
	rc, err := s.resolve(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}

	values, err := analytics.BucketValues(rc.version.Fields, rc.responses, dimensionID)
	if err != nil {
		return nil, mapSegmentErr(err)
	}

	_, last, err := repo.ResponseStats(ctx, s.DB, rc.questionnaire.ID)
	if err != nil {
		return nil, err
	}

	out := &SegmentCompare{SegmentDimensionID: dimensionID, Buckets: []BucketSummary{}}
	for _, v := range values {
		subset, err := analytics.FilterBySegment(rc.version.Fields, rc.responses, dimensionID, v)
		if err != nil {
			return nil, mapSegmentErr(err)
		}
		dist := analytics.Aggregate(rc.version.Fields, subset)
		bf := f
		bf.SegmentDimensionID, bf.SegmentBucket = dimensionID, v
		out.Buckets = append(out.Buckets, BucketSummary{
			Value:           v,
			TotalResponses:  dist.TotalResponses,
			AvgScaleOverall: dist.AvgScaleOverall,
			DataQuality:     s.quality(dist.TotalResponses, bf, last),
		})
	}
	return out, nil
}

// PublicSummary wraps Summary in the privacy gate. Below the minimum
// sample the payload carries only the count; otherwise undersized segment
// buckets are suppressed and the questionnaire reference is stripped to
// slug and name.
func (s *AnalyticsService) PublicSummary(ctx context.Context, tenantID, slug string, f Filters) (*PublicSummary, error) {
	sum, err := s.Summary(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}
	pub := &PublicSummary{
		Questionnaire:  publicRef(sum.Questionnaire),
		TotalResponses: sum.TotalResponses,
		DataQuality:    sum.DataQuality,
	}
	if !s.Gate.Eligible(sum.TotalResponses) {
		pub.Status = analytics.StatusInsufficientSample
		return pub, nil
	}
	pub.Status = analytics.StatusOK
	sum.Questionnaire = pub.Questionnaire
	sum.SegmentSummary = s.Gate.GateDimensions(sum.SegmentSummary)
	pub.Summary = sum
	return pub, nil
}

// PublicDistribution wraps Distribution in the privacy gate.
func (s *AnalyticsService) PublicDistribution(ctx context.Context, tenantID, slug string, f Filters) (*PublicDistribution, error) {
	dist, err := s.Distribution(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}
	pub := &PublicDistribution{
		Questionnaire:  publicRef(dist.Questionnaire),
		TotalResponses: dist.TotalResponses,
		DataQuality:    dist.DataQuality,
	}
	if !s.Gate.Eligible(dist.TotalResponses) {
		pub.Status = analytics.StatusInsufficientSample
		return pub, nil
	}
	pub.Status = analytics.StatusOK
	dist.Questionnaire = pub.Questionnaire
	dist.SegmentSummary = s.Gate.GateDimensions(dist.SegmentSummary)
	pub.Distribution = dist
	return pub, nil
}

// PublicTrend wraps the trend series in the privacy gate. Daily counts are
// aggregates without breakdowns, so gating reduces to the minimum-sample
// check.
func (s *AnalyticsService) PublicTrend(ctx context.Context, tenantID, slug string, f Filters) (*PublicTrend, error) {
	q, err := repo.GetQuestionnaireBySlug(ctx, s.DB, tenantID, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionnaireNotFound
		}
		return nil, err
	}

	t, err := s.Trend(ctx, tenantID, slug, f)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, p := range t.Points {
		total += p.Total
	}
	pub := &PublicTrend{
		Questionnaire:  QuestionnaireRef{Slug: q.Slug, Name: q.Name},
		TotalResponses: total,
	}
	if !s.Gate.Eligible(total) {
		pub.Status = analytics.StatusInsufficientSample
		return pub, nil
	}
	pub.Status = analytics.StatusOK
	pub.Trend = t
	return pub, nil
}

// quality assesses the data quality of one request.
func (s *AnalyticsService) quality(sampleSize int, f Filters, last *time.Time) analytics.DataQuality {
	return analytics.AssessQuality(analytics.QualityInput{
		SampleSize:      sampleSize,
		SegmentFiltered: f.segmented(),
		From:            f.From,
		To:              f.To,
		LastSubmission:  last,
		Now:             s.Now(),
	})
}

// trendRange resolves the requested window, defaulting to the 30 days
// ending tomorrow (exclusive upper bound).
func (s *AnalyticsService) trendRange(f Filters) (time.Time, time.Time) {
	now := s.Now()
	to := now.Truncate(24 * time.Hour).AddDate(0, 0, 1)
	if f.To != nil {
		to = *f.To
	}
	from := to.AddDate(0, 0, -30)
	if f.From != nil {
		from = *f.From
	}
	return from, to
}

func mapSegmentErr(err error) error {
	switch {
	case errors.Is(err, analytics.ErrUnknownDimension):
		return ErrDimensionNotFound
	case errors.Is(err, analytics.ErrDrilldownNotSupported):
		return ErrDrilldownNotSupported
	default:
		return err
	}
}

func ref(q *domain.Questionnaire) QuestionnaireRef {
	return QuestionnaireRef{ID: q.ID, Slug: q.Slug, Name: q.Name}
}

// publicRef strips identifying fields; only slug and name survive.
func publicRef(r QuestionnaireRef) QuestionnaireRef {
	return QuestionnaireRef{Slug: r.Slug, Name: r.Name}
}
