package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formbeat/go-survey-backend/internal/analytics"
	"github.com/formbeat/go-survey-backend/internal/services"
)

func analyticsRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/questionnaires/:slug/analytics/summary", h.AnalyticsSummary)
	r.GET("/questionnaires/:slug/analytics/distribution", h.AnalyticsDistribution)
	r.GET("/questionnaires/:slug/analytics/trend", h.AnalyticsTrend)
	r.GET("/questionnaires/:slug/analytics/segments/compare", h.SegmentCompare)
	return r
}

func TestAnalyticsSummary_Handler(t *testing.T) {
	var gotFilters services.Filters
	ana := stubAnalyticsSvc{summary: func(ctx context.Context, tenantID, slug string, f services.Filters) (*services.Summary, error) {
		gotFilters = f
		return &services.Summary{TotalResponses: 12, AvgScaleOverall: 3.4}, nil
	}}
	r := analyticsRouter(newStubHandlers(nil, nil, nil, ana, nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/questionnaires/pulse/analytics/summary?from=2026-08-01&to=2026-08-15&segmentDimensionId=team&segmentBucket=eng", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", w.Code, w.Body.String())
	}
	var got services.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got.TotalResponses != 12 {
		t.Fatalf("body = %s (%v)", w.Body.String(), err)
	}
	if gotFilters.SegmentDimensionID != "team" || gotFilters.SegmentBucket != "eng" {
		t.Fatalf("filters = %+v", gotFilters)
	}
	if gotFilters.To == nil || !gotFilters.To.Equal(time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("exclusive to = %v", gotFilters.To)
	}

	// Malformed date short-circuits before the service runs.
	called := false
	r = analyticsRouter(newStubHandlers(nil, nil, nil, stubAnalyticsSvc{summary: func(context.Context, string, string, services.Filters) (*services.Summary, error) {
		called = true
		return nil, nil
	}}, nil, nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/questionnaires/pulse/analytics/summary?from=yesterday", nil))
	if w.Code != http.StatusBadRequest || called {
		t.Fatalf("bad date status = %d called = %v", w.Code, called)
	}
}

func TestAnalytics_ErrorMappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"questionnaire missing", services.ErrQuestionnaireNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"version missing", services.ErrVersionNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"nothing published", services.ErrNoPublishedVersion, http.StatusNotFound, ErrCodeNotFound},
		{"dimension missing", services.ErrDimensionNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"drilldown unsupported", services.ErrDrilldownNotSupported, http.StatusBadRequest, ErrCodeUnsupported},
		{"storage failure", context.DeadlineExceeded, http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ana := stubAnalyticsSvc{summary: func(context.Context, string, string, services.Filters) (*services.Summary, error) {
				return nil, tc.err
			}}
			r := analyticsRouter(newStubHandlers(nil, nil, nil, ana, nil, nil))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/questionnaires/pulse/analytics/summary", nil))
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d; want %d", w.Code, tc.wantStatus)
			}
			if er := decodeError(t, w); er.Code != tc.wantCode {
				t.Fatalf("code = %q; want %q", er.Code, tc.wantCode)
			}
		})
	}
}

func TestAnalytics_DatasetTooLargeEnvelope(t *testing.T) {
	ana := stubAnalyticsSvc{distribution: func(context.Context, string, string, services.Filters) (*services.Distribution, error) {
		return nil, &services.DatasetTooLargeError{Limit: 50000}
	}}
	r := analyticsRouter(newStubHandlers(nil, nil, nil, ana, nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/questionnaires/pulse/analytics/distribution", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d; want 422", w.Code)
	}
	var derr DatasetTooLargeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &derr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if derr.Code != ErrCodeDatasetTooLarge || derr.Limit != 50000 {
		t.Fatalf("envelope = %+v", derr)
	}
}

func TestAnalyticsTrend_Handler(t *testing.T) {
	ana := stubAnalyticsSvc{trend: func(ctx context.Context, tenantID, slug string, f services.Filters) (*analytics.Trend, error) {
		return &analytics.Trend{Days: 2, From: "2026-08-01", To: "2026-08-03", Points: []analytics.TrendPoint{
			{Day: "2026-08-01", Total: 4},
			{Day: "2026-08-02", Total: 0},
		}}, nil
	}}
	r := analyticsRouter(newStubHandlers(nil, nil, nil, ana, nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/questionnaires/pulse/analytics/trend", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got analytics.Trend
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got.Days != 2 || len(got.Points) != 2 {
		t.Fatalf("body = %s (%v)", w.Body.String(), err)
	}
}

func TestSegmentCompare_Handler(t *testing.T) {
	var gotDim string
	ana := stubAnalyticsSvc{compare: func(ctx context.Context, tenantID, slug, dimensionID string, f services.Filters) (*services.SegmentCompare, error) {
		gotDim = dimensionID
		return &services.SegmentCompare{SegmentDimensionID: dimensionID, Buckets: []services.BucketSummary{
			{Value: "eng", TotalResponses: 7, AvgScaleOverall: 3.1},
			{Value: "ops", TotalResponses: 5, AvgScaleOverall: 4.0},
		}}, nil
	}}
	r := analyticsRouter(newStubHandlers(nil, nil, nil, ana, nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/questionnaires/pulse/analytics/segments/compare?segmentDimensionId=team", nil))
	if w.Code != http.StatusOK || gotDim != "team" {
		t.Fatalf("status = %d dim = %q", w.Code, gotDim)
	}
	var got services.SegmentCompare
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || len(got.Buckets) != 2 {
		t.Fatalf("body = %s (%v)", w.Body.String(), err)
	}

	// The dimension parameter is mandatory.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/questionnaires/pulse/analytics/segments/compare", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing dim status = %d; want 400", w.Code)
	}
}
