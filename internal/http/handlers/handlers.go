// Handler wiring and shared service contracts.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results (including the typed service errors) into
// HTTP responses. The tenant identity comes from upstream auth middleware,
// with an "X-Tenant-ID" header fallback for tests and demos.
package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formbeat/go-survey-backend/internal/analytics"
	"github.com/formbeat/go-survey-backend/internal/domain"
	"github.com/formbeat/go-survey-backend/internal/services"
	"github.com/formbeat/go-survey-backend/internal/sysutil"
)

//
// Service contracts (context-aware)
//

// QuestionnaireService defines questionnaire CRUD consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type QuestionnaireService interface {
	Create(ctx context.Context, tenantID, slug, name string, isDefault bool) (*domain.Questionnaire, error)
	List(ctx context.Context, tenantID string) ([]domain.Questionnaire, error)
	GetBySlug(ctx context.Context, tenantID, slug string) (*domain.Questionnaire, error)
	Deactivate(ctx context.Context, tenantID, slug string) error
}

// VersionService defines the schema version lifecycle operations.
type VersionService interface {
	GetOrCreateDraft(ctx context.Context, tenantID, slug string) (*domain.QuestionnaireVersion, error)
	SaveDraft(ctx context.Context, tenantID, slug, versionID string, meta domain.VersionMeta, fields domain.FieldList) (*domain.QuestionnaireVersion, error)
	Publish(ctx context.Context, tenantID, slug string) (*domain.QuestionnaireVersion, error)
	ListVersions(ctx context.Context, tenantID, slug string) ([]domain.QuestionnaireVersion, error)
}

// ResponseService defines response ingestion and raw reads.
type ResponseService interface {
	Submit(ctx context.Context, tenantID, slug string, payload map[string]any) (*domain.Response, error)
	Get(ctx context.Context, tenantID, responseID string) (*domain.Response, error)
	ListPage(ctx context.Context, tenantID, slug string, page, pageSize int) ([]domain.Response, int64, error)
}

// AnalyticsService defines the aggregation operations.
type AnalyticsService interface {
	Summary(ctx context.Context, tenantID, slug string, f services.Filters) (*services.Summary, error)
	Distribution(ctx context.Context, tenantID, slug string, f services.Filters) (*services.Distribution, error)
	Trend(ctx context.Context, tenantID, slug string, f services.Filters) (*analytics.Trend, error)
	SegmentCompare(ctx context.Context, tenantID, slug, dimensionID string, f services.Filters) (*services.SegmentCompare, error)
	PublicSummary(ctx context.Context, tenantID, slug string, f services.Filters) (*services.PublicSummary, error)
	PublicDistribution(ctx context.Context, tenantID, slug string, f services.Filters) (*services.PublicDistribution, error)
	PublicTrend(ctx context.Context, tenantID, slug string, f services.Filters) (*services.PublicTrend, error)
}

// ExportService streams CSV exports.
type ExportService interface {
	WriteCSV(ctx context.Context, w io.Writer, tenantID, slug, versionID string) error
}

// InsightsService assembles AI analysis bundles.
type InsightsService interface {
	Bundle(ctx context.Context, tenantID, slug string, f services.Filters) (*services.InsightsBundle, error)
}

// Handlers groups the HTTP endpoints for questionnaires, versions,
// responses, analytics, export, and insights. It depends on abstract
// service interfaces to keep transport concerns separate from business
// logic.
type Handlers struct {
	qnnSvc       QuestionnaireService
	versionSvc   VersionService
	responseSvc  ResponseService
	analyticsSvc AnalyticsService
	exportSvc    ExportService
	insightsSvc  InsightsService

	// idemTTL is how long a stored Idempotency-Key keeps replaying the
	// original response.
	idemTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(qnn QuestionnaireService, ver VersionService, resp ResponseService, ana AnalyticsService, exp ExportService, ins InsightsService) *Handlers {
	return &Handlers{
		qnnSvc:       qnn,
		versionSvc:   ver,
		responseSvc:  resp,
		analyticsSvc: ana,
		exportSvc:    exp,
		insightsSvc:  ins,
		idemTTL:      24 * time.Hour,
	}
}

// WithIdempotencyTTL overrides the idempotency replay window. Non-positive
// values keep the default.
func (h *Handlers) WithIdempotencyTTL(ttl time.Duration) *Handlers {
	if ttl > 0 {
		h.idemTTL = ttl
	}
	return h
}

// tenantID extracts the authenticated tenant id from the Gin context (set
// by upstream middleware). If absent, it falls back to the "X-Tenant-ID"
// header (tests use it), and finally to "demo-tenant".
func tenantID(c *gin.Context) string {
	var fromAuth string
	if v, ok := c.Get("tenantID"); ok {
		if s, ok := v.(string); ok {
			fromAuth = s
		}
	}
	return sysutil.FirstNonEmpty(fromAuth, c.GetHeader("X-Tenant-ID"), "demo-tenant")
}

// parseFilters reads the shared optional analytics filters from the query
// string: from/to (date-only, RFC 3339 date), questionnaire version id, and
// segment drilldown. A date-only "to" is converted to midnight of the
// following day, making the upper bound exclusive.
func parseFilters(c *gin.Context) (services.Filters, bool) {
	var f services.Filters
	if s := c.Query("from"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from must be a YYYY-MM-DD date")
			return f, false
		}
		f.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "to must be a YYYY-MM-DD date")
			return f, false
		}
		t = t.AddDate(0, 0, 1) // exclusive upper bound
		f.To = &t
	}
	f.VersionID = c.Query("questionnaireVersionId")
	f.SegmentDimensionID = c.Query("segmentDimensionId")
	f.SegmentBucket = c.Query("segmentBucket")
	return f, true
}
