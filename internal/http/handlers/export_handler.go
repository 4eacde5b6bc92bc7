// Export and insights HTTP handlers.
//
//   - GET /questionnaires/{slug}/export.csv       (flat CSV of raw responses)
//   - GET /questionnaires/{slug}/insights/bundle  (AI analysis bundle)
//
// The CSV is streamed straight onto the response writer; an error after the
// header row has been flushed ends the stream mid-file, which is the usual
// trade-off for not buffering the whole export in memory.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExportCSV godoc
// @ID          exportCSV
// @Summary     Export raw responses as CSV
// @Description One row per response, one column per schema field, plus
// @Description response id, timestamp, and the respondent profile columns.
// @Tags        Export
// @Produce     text/csv
//
// @Param       X-Tenant-ID            header string false "Tenant ID (demo header)"
// @Param       slug                   path   string true  "Questionnaire slug"
// @Param       questionnaireVersionId query  string false "Export against one schema version (default: published)"
//
// @Success     200 {string} string "CSV payload"
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     422 {object} handlers.DatasetTooLargeResponse
// @Router      /questionnaires/{slug}/export.csv [get]
func (h *Handlers) ExportCSV(c *gin.Context) {
	slug := c.Param("slug")

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-responses.csv"`, slug))

	err := h.exportSvc.WriteCSV(c.Request.Context(), c.Writer, tenantID(c), slug, c.Query("questionnaireVersionId"))
	if err != nil {
		// Nothing has been written yet for resolution failures; reset the
		// CSV headers and report the error normally.
		if c.Writer.Written() {
			_ = c.Error(err)
			return
		}
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Header("Content-Disposition", "")
		failService(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// InsightsBundle godoc
// @ID          insightsBundle
// @Summary     Compact bundle for external AI analysis
// @Description Summary aggregates, the full distribution, and a bounded
// @Description sample of recent responses in one payload.
// @Tags        Insights
// @Produce     json
//
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Param       slug        path   string true  "Questionnaire slug"
// @Param       from        query  string false "Inclusive start date (YYYY-MM-DD)"
// @Param       to          query  string false "Inclusive end date (YYYY-MM-DD)"
//
// @Success     200 {object} services.InsightsBundle
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     422 {object} handlers.DatasetTooLargeResponse
// @Router      /questionnaires/{slug}/insights/bundle [get]
func (h *Handlers) InsightsBundle(c *gin.Context) {
	f, okf := parseFilters(c)
	if !okf {
		return
	}
	out, err := h.insightsSvc.Bundle(c.Request.Context(), tenantID(c), c.Param("slug"), f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
