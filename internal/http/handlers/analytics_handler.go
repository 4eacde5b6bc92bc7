// Analytics HTTP handlers.
//
// This file exposes the internal dashboard endpoints:
//   - GET /questionnaires/{slug}/analytics/summary
//   - GET /questionnaires/{slug}/analytics/distribution
//   - GET /questionnaires/{slug}/analytics/trend
//   - GET /questionnaires/{slug}/analytics/segments/compare
//
// All endpoints share the optional from/to/questionnaireVersionId and
// segment drilldown query filters parsed by parseFilters. Aggregations run
// on demand; requests whose candidate set exceeds the configured row
// ceiling are rejected with a structured dataset_too_large error rather
// than degrading into a slow scan.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AnalyticsSummary godoc
// @ID          analyticsSummary
// @Summary     Dashboard headline aggregates
// @Description Totals, per-question averages, criteria rollups, discovered
// @Description segment dimensions, and the data-quality block.
// @Tags        Analytics
// @Produce     json
//
// @Param       X-Tenant-ID            header string false "Tenant ID (demo header)"
// @Param       slug                   path   string true  "Questionnaire slug"
// @Param       from                   query  string false "Inclusive start date (YYYY-MM-DD)"
// @Param       to                     query  string false "Inclusive end date (YYYY-MM-DD)"
// @Param       questionnaireVersionId query  string false "Pin aggregation to one schema version"
// @Param       segmentDimensionId     query  string false "Drill down to one segment bucket (with segmentBucket)"
// @Param       segmentBucket          query  string false "Bucket value for the drilldown"
//
// @Success     200 {object} services.Summary
// @Failure     400 {object} handlers.ErrorResponse          "Bad filter or unsupported drilldown"
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     422 {object} handlers.DatasetTooLargeResponse
// @Router      /questionnaires/{slug}/analytics/summary [get]
func (h *Handlers) AnalyticsSummary(c *gin.Context) {
	f, okf := parseFilters(c)
	if !okf {
		return
	}
	out, err := h.analyticsSvc.Summary(c.Request.Context(), tenantID(c), c.Param("slug"), f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// AnalyticsDistribution godoc
// @ID          analyticsDistribution
// @Summary     Full per-question distribution
// @Tags        Analytics
// @Produce     json
//
// @Param       X-Tenant-ID            header string false "Tenant ID (demo header)"
// @Param       slug                   path   string true  "Questionnaire slug"
// @Param       from                   query  string false "Inclusive start date (YYYY-MM-DD)"
// @Param       to                     query  string false "Inclusive end date (YYYY-MM-DD)"
// @Param       questionnaireVersionId query  string false "Pin aggregation to one schema version"
// @Param       segmentDimensionId     query  string false "Drill down to one segment bucket (with segmentBucket)"
// @Param       segmentBucket          query  string false "Bucket value for the drilldown"
//
// @Success     200 {object} services.Distribution
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     422 {object} handlers.DatasetTooLargeResponse
// @Router      /questionnaires/{slug}/analytics/distribution [get]
func (h *Handlers) AnalyticsDistribution(c *gin.Context) {
	f, okf := parseFilters(c)
	if !okf {
		return
	}
	out, err := h.analyticsSvc.Distribution(c.Request.Context(), tenantID(c), c.Param("slug"), f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// AnalyticsTrend godoc
// @ID          analyticsTrend
// @Summary     Daily submission-count series
// @Description UTC calendar-day buckets, zero-filled across the requested
// @Description range (default: the trailing 30 days).
// @Tags        Analytics
// @Produce     json
//
// @Param       X-Tenant-ID            header string false "Tenant ID (demo header)"
// @Param       slug                   path   string true  "Questionnaire slug"
// @Param       from                   query  string false "Inclusive start date (YYYY-MM-DD)"
// @Param       to                     query  string false "Inclusive end date (YYYY-MM-DD)"
// @Param       questionnaireVersionId query  string false "Pin aggregation to one schema version"
//
// @Success     200 {object} analytics.Trend
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     422 {object} handlers.DatasetTooLargeResponse
// @Router      /questionnaires/{slug}/analytics/trend [get]
func (h *Handlers) AnalyticsTrend(c *gin.Context) {
	f, okf := parseFilters(c)
	if !okf {
		return
	}
	out, err := h.analyticsSvc.Trend(c.Request.Context(), tenantID(c), c.Param("slug"), f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// SegmentCompare godoc
// @ID          segmentCompare
// @Summary     Side-by-side bucket comparison for one segment dimension
// @Tags        Analytics
// @Produce     json
//
// @Param       X-Tenant-ID        header string false "Tenant ID (demo header)"
// @Param       slug               path   string true  "Questionnaire slug"
// @Param       segmentDimensionId query  string true  "Dimension to compare across"
// @Param       from               query  string false "Inclusive start date (YYYY-MM-DD)"
// @Param       to                 query  string false "Inclusive end date (YYYY-MM-DD)"
//
// @Success     200 {object} services.SegmentCompare
// @Failure     400 {object} handlers.ErrorResponse "Missing or unsupported dimension"
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     422 {object} handlers.DatasetTooLargeResponse
// @Router      /questionnaires/{slug}/analytics/segments/compare [get]
func (h *Handlers) SegmentCompare(c *gin.Context) {
	f, okf := parseFilters(c)
	if !okf {
		return
	}
	dim := c.Query("segmentDimensionId")
	if dim == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "segmentDimensionId is required")
		return
	}
	out, err := h.analyticsSvc.SegmentCompare(c.Request.Context(), tenantID(c), c.Param("slug"), dim, f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
