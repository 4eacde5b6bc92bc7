package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/analytics"
	"github.com/formbeat/go-survey-backend/internal/domain"
	"github.com/formbeat/go-survey-backend/internal/repo"
)

var testGate = analytics.GateConfig{MinSample: 30, MinBucket: 10}

func newAnalyticsFixture(t *testing.T) (*gorm.DB, *AnalyticsService, *domain.QuestionnaireVersion) {
	t.Helper()
	db := newServiceDB(t)
	seedQuestionnaire(t, db, "t1", "pulse")
	pub := publishSchema(t, db, "t1", "pulse", pulseSchema())
	return db, NewAnalyticsService(db, 50000, 5000, testGate), pub
}

// seedAnswer inserts one response directly so tests control the timestamp.
func seedAnswer(t *testing.T, db *gorm.DB, versionID string, answers domain.AnswerMap, createdAt time.Time) {
	t.Helper()
	var v domain.QuestionnaireVersion
	if err := db.First(&v, "id = ?", versionID).Error; err != nil {
		t.Fatalf("load version: %v", err)
	}
	err := repo.CreateResponse(context.Background(), db, &domain.Response{
		TenantID:        "t1",
		QuestionnaireID: v.QuestionnaireID,
		VersionID:       versionID,
		Answers:         answers,
		CreatedAt:       createdAt,
	})
	if err != nil {
		t.Fatalf("seed response: %v", err)
	}
}

func TestSummary_ScaleAverage(t *testing.T) {
	db, svc, pub := newAnalyticsFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	for _, score := range []float64{5, 4, 2} {
		seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": score, "team": "eng"}, now.Add(-time.Hour))
	}

	sum, err := svc.Summary(ctx, "t1", "pulse", Filters{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalResponses != 3 {
		t.Fatalf("total = %d; want 3", sum.TotalResponses)
	}
	// mean(5,4,2) = 3.666..., rounded to two decimals.
	if sum.AvgScaleOverall != 3.67 {
		t.Fatalf("avg = %v; want 3.67", sum.AvgScaleOverall)
	}
	if sum.QuestionAverages["mood"] != 3.67 {
		t.Fatalf("question avg = %v; want 3.67", sum.QuestionAverages["mood"])
	}
	if sum.VersionID != pub.ID {
		t.Fatalf("version = %s; want published %s", sum.VersionID, pub.ID)
	}
	if sum.ResponsesToday != 3 {
		t.Fatalf("responses today = %d; want 3", sum.ResponsesToday)
	}
	if sum.DataQuality.Confidence != analytics.ConfidenceLow {
		t.Fatalf("confidence = %q; want low at n=3", sum.DataQuality.Confidence)
	}

	// The team field surfaces as a drilldown-eligible dimension.
	var teamDim *analytics.Dimension
	for i := range sum.SegmentSummary {
		if sum.SegmentSummary[i].ID == "team" {
			teamDim = &sum.SegmentSummary[i]
		}
	}
	if teamDim == nil || !teamDim.Drilldown || len(teamDim.Buckets) != 1 || teamDim.Buckets[0].Count != 3 {
		t.Fatalf("team dimension = %+v", teamDim)
	}
}

func TestAnalytics_NotFoundMapping(t *testing.T) {
	db, svc, pub := newAnalyticsFixture(t)
	ctx := context.Background()

	if _, err := svc.Summary(ctx, "t1", "nope", Filters{}); !errors.Is(err, ErrQuestionnaireNotFound) {
		t.Fatalf("unknown slug err = %v", err)
	}
	if _, err := svc.Summary(ctx, "t1", "pulse", Filters{VersionID: "missing"}); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("unknown version err = %v", err)
	}

	// A version belonging to another questionnaire is invisible here.
	seedQuestionnaire(t, db, "t1", "other")
	otherPub := publishSchema(t, db, "t1", "other", pulseSchema())
	if _, err := svc.Summary(ctx, "t1", "pulse", Filters{VersionID: otherPub.ID}); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("foreign version err = %v", err)
	}

	// No published version at all.
	seedQuestionnaire(t, db, "t1", "unpublished")
	if _, err := svc.Summary(ctx, "t1", "unpublished", Filters{}); !errors.Is(err, ErrNoPublishedVersion) {
		t.Fatalf("unpublished err = %v", err)
	}
	_ = pub
}

func TestAnalytics_VersionFilterScopesResponses(t *testing.T) {
	db, svc, v1 := newAnalyticsFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedAnswer(t, db, v1.ID, domain.AnswerMap{"mood": float64(5)}, now.Add(-2*time.Hour))
	v2, err := NewVersionService(db).Publish(ctx, "t1", "pulse")
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	seedAnswer(t, db, v2.ID, domain.AnswerMap{"mood": float64(1)}, now.Add(-time.Hour))

	// Unfiltered: aggregates across versions against the published schema.
	all, err := svc.Summary(ctx, "t1", "pulse", Filters{})
	if err != nil || all.TotalResponses != 2 {
		t.Fatalf("unfiltered total = %+v, %v", all, err)
	}

	// Pinned to the archived v1: only its own responses count.
	old, err := svc.Summary(ctx, "t1", "pulse", Filters{VersionID: v1.ID})
	if err != nil {
		t.Fatalf("pinned summary: %v", err)
	}
	if old.TotalResponses != 1 || old.AvgScaleOverall != 5 {
		t.Fatalf("pinned = %d responses avg %v; want 1 and 5", old.TotalResponses, old.AvgScaleOverall)
	}
}

func TestAnalytics_SegmentDrilldown(t *testing.T) {
	db, svc, pub := newAnalyticsFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(4), "team": "eng"}, now.Add(-3*time.Hour))
	seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(2), "team": "eng"}, now.Add(-2*time.Hour))
	seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(5), "team": "ops"}, now.Add(-time.Hour))

	eng, err := svc.Summary(ctx, "t1", "pulse", Filters{SegmentDimensionID: "team", SegmentBucket: "eng"})
	if err != nil {
		t.Fatalf("drilldown: %v", err)
	}
	if eng.TotalResponses != 2 || eng.AvgScaleOverall != 3 {
		t.Fatalf("eng drilldown = %d responses avg %v; want 2 and 3", eng.TotalResponses, eng.AvgScaleOverall)
	}
	if !eng.DataQuality.HasWarning(analytics.WarnSegmentFiltered) {
		t.Fatalf("segment warning missing: %+v", eng.DataQuality)
	}

	if _, err := svc.Summary(ctx, "t1", "pulse", Filters{SegmentDimensionID: "ghost", SegmentBucket: "x"}); !errors.Is(err, ErrDimensionNotFound) {
		t.Fatalf("unknown dimension err = %v", err)
	}
	// comment is a text field: never drilldown-eligible.
	if _, err := svc.Summary(ctx, "t1", "pulse", Filters{SegmentDimensionID: "comment", SegmentBucket: "x"}); !errors.Is(err, ErrDrilldownNotSupported) {
		t.Fatalf("text drilldown err = %v", err)
	}
}

func TestAnalytics_DatasetTooLarge(t *testing.T) {
	db := newServiceDB(t)
	seedQuestionnaire(t, db, "t1", "pulse")
	pub := publishSchema(t, db, "t1", "pulse", pulseSchema())
	svc := NewAnalyticsService(db, 2, 1, testGate)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(3), "team": "eng"}, now.Add(-time.Duration(i)*time.Hour))
	}

	var tooLarge *DatasetTooLargeError
	if _, err := svc.Summary(ctx, "t1", "pulse", Filters{}); !errors.As(err, &tooLarge) {
		t.Fatalf("err = %v; want *DatasetTooLargeError", err)
	}
	if tooLarge.Limit != 2 {
		t.Fatalf("limit = %d; want 2", tooLarge.Limit)
	}

	// Drilldowns use the tighter ceiling.
	tooLarge = nil
	_, err := svc.Summary(ctx, "t1", "pulse", Filters{SegmentDimensionID: "team", SegmentBucket: "eng"})
	if !errors.As(err, &tooLarge) || tooLarge.Limit != 1 {
		t.Fatalf("drilldown err = %v", err)
	}
}

func TestTrend_DefaultsAndZeroFill(t *testing.T) {
	db, svc, pub := newAnalyticsFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 15, 30, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	day := func(d int, n int) {
		for i := 0; i < n; i++ {
			seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(3)},
				time.Date(2026, 8, d, 9, 0, 0, 0, time.UTC).Add(time.Duration(i)*time.Minute))
		}
	}
	day(18, 2)
	day(20, 1)

	trend, err := svc.Trend(ctx, "t1", "pulse", Filters{})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	// Default window: 30 days ending tomorrow (exclusive), so today is the
	// last point.
	if len(trend.Points) != 30 {
		t.Fatalf("points = %d; want 30", len(trend.Points))
	}
	last := trend.Points[len(trend.Points)-1]
	if last.Day != "2026-08-20" || last.Total != 1 {
		t.Fatalf("last point = %+v; want 2026-08-20 total 1", last)
	}
	byDay := map[string]int{}
	for _, p := range trend.Points {
		byDay[p.Day] = p.Total
	}
	if byDay["2026-08-18"] != 2 || byDay["2026-08-19"] != 0 {
		t.Fatalf("series wrong: 18th=%d 19th=%d", byDay["2026-08-18"], byDay["2026-08-19"])
	}

	// Explicit window.
	from := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	short, err := svc.Trend(ctx, "t1", "pulse", Filters{From: &from, To: &to})
	if err != nil || len(short.Points) != 2 {
		t.Fatalf("explicit window = %+v, %v; want 2 points", short, err)
	}
	if short.Points[0].Total != 2 || short.Points[1].Total != 0 {
		t.Fatalf("explicit series = %+v", short.Points)
	}
}

func TestSegmentCompare_Service(t *testing.T) {
	db, svc, pub := newAnalyticsFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(4), "team": "eng"}, now.Add(-3*time.Hour))
	seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(2), "team": "eng"}, now.Add(-2*time.Hour))
	seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(5), "team": "ops"}, now.Add(-time.Hour))

	cmp, err := svc.SegmentCompare(ctx, "t1", "pulse", "team", Filters{})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.SegmentDimensionID != "team" || len(cmp.Buckets) != 2 {
		t.Fatalf("compare = %+v", cmp)
	}
	got := map[string]BucketSummary{}
	for _, b := range cmp.Buckets {
		got[b.Value] = b
	}
	if got["eng"].TotalResponses != 2 || got["eng"].AvgScaleOverall != 3 {
		t.Fatalf("eng bucket = %+v", got["eng"])
	}
	if got["ops"].TotalResponses != 1 || got["ops"].AvgScaleOverall != 5 {
		t.Fatalf("ops bucket = %+v", got["ops"])
	}
	for _, b := range cmp.Buckets {
		if !b.DataQuality.HasWarning(analytics.WarnSegmentFiltered) {
			t.Fatalf("bucket %q missing segment warning", b.Value)
		}
	}

	if _, err := svc.SegmentCompare(ctx, "t1", "pulse", "ghost", Filters{}); !errors.Is(err, ErrDimensionNotFound) {
		t.Fatalf("unknown dimension err = %v", err)
	}
}

func TestPublicSummary_Gate(t *testing.T) {
	db, svc, pub := newAnalyticsFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// 29 responses: one short of the public minimum.
	for i := 0; i < 29; i++ {
		seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(4), "team": "eng"}, now.Add(-time.Duration(i+1)*time.Minute))
	}

	blocked, err := svc.PublicSummary(ctx, "t1", "pulse", Filters{})
	if err != nil {
		t.Fatalf("public summary: %v", err)
	}
	if blocked.Status != analytics.StatusInsufficientSample || blocked.Summary != nil {
		t.Fatalf("below gate = %+v; want insufficient_sample with no summary", blocked)
	}
	if blocked.TotalResponses != 29 {
		t.Fatalf("count must survive the gate: %d", blocked.TotalResponses)
	}
	if blocked.Questionnaire.ID != "" {
		t.Fatalf("public payload leaks questionnaire id")
	}

	// One more response crosses the threshold.
	seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(4), "team": "ops"}, now.Add(-30*time.Second))
	open, err := svc.PublicSummary(ctx, "t1", "pulse", Filters{})
	if err != nil {
		t.Fatalf("public summary: %v", err)
	}
	if open.Status != analytics.StatusOK || open.Summary == nil {
		t.Fatalf("at gate = %+v; want ok with summary", open)
	}
	if open.Summary.Questionnaire.ID != "" {
		t.Fatalf("public summary leaks questionnaire id")
	}

	// Bucket suppression: eng (29) survives MinBucket 10, ops (1) does not.
	for _, d := range open.Summary.SegmentSummary {
		if d.Source != analytics.DimensionSourceField {
			t.Fatalf("respondent dimension leaked into public output: %+v", d)
		}
		if d.ID == "team" {
			if len(d.Buckets) != 1 || d.Buckets[0].Value != "eng" {
				t.Fatalf("team buckets = %+v; want eng only", d.Buckets)
			}
		}
	}
}

func TestPublicTrend_Gate(t *testing.T) {
	db, svc, pub := newAnalyticsFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	for i := 0; i < 30; i++ {
		seedAnswer(t, db, pub.ID, domain.AnswerMap{"mood": float64(3)}, now.Add(-time.Duration(i+1)*time.Hour))
	}

	trend, err := svc.PublicTrend(ctx, "t1", "pulse", Filters{})
	if err != nil {
		t.Fatalf("public trend: %v", err)
	}
	if trend.Status != analytics.StatusOK || trend.Trend == nil || trend.TotalResponses != 30 {
		t.Fatalf("public trend = %+v", trend)
	}

	// Narrow the window below the gate: only the range total counts.
	from := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC)
	empty, err := svc.PublicTrend(ctx, "t1", "pulse", Filters{From: &from, To: &to})
	if err != nil {
		t.Fatalf("public trend: %v", err)
	}
	if empty.Status != analytics.StatusInsufficientSample || empty.Trend != nil {
		t.Fatalf("narrow window = %+v; want insufficient_sample", empty)
	}
}
