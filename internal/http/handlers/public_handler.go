// Public results HTTP handlers.
//
// These endpoints serve the privacy-gated results page. They never report
// an error for small datasets: below the minimum sample the payload still
// returns 200 with status "insufficient_sample" and only the response
// count, so the page can render an explanatory placeholder. Segment
// breakdowns are additionally bucket-suppressed and respondent-derived
// dimensions are withheld outright.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PublicSummary godoc
// @ID          publicSummary
// @Summary     Privacy-gated summary
// @Tags        Public
// @Produce     json
//
// @Param       slug path  string true  "Questionnaire slug"
// @Param       from query string false "Inclusive start date (YYYY-MM-DD)"
// @Param       to   query string false "Inclusive end date (YYYY-MM-DD)"
//
// @Success     200 {object} services.PublicSummary
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /public/{slug}/summary [get]
func (h *Handlers) PublicSummary(c *gin.Context) {
	f, okf := parseFilters(c)
	if !okf {
		return
	}
	out, err := h.analyticsSvc.PublicSummary(c.Request.Context(), tenantID(c), c.Param("slug"), f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// PublicDistribution godoc
// @ID          publicDistribution
// @Summary     Privacy-gated distribution
// @Tags        Public
// @Produce     json
//
// @Param       slug path  string true  "Questionnaire slug"
// @Param       from query string false "Inclusive start date (YYYY-MM-DD)"
// @Param       to   query string false "Inclusive end date (YYYY-MM-DD)"
//
// @Success     200 {object} services.PublicDistribution
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /public/{slug}/distribution [get]
func (h *Handlers) PublicDistribution(c *gin.Context) {
	f, okf := parseFilters(c)
	if !okf {
		return
	}
	out, err := h.analyticsSvc.PublicDistribution(c.Request.Context(), tenantID(c), c.Param("slug"), f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// PublicTrend godoc
// @ID          publicTrend
// @Summary     Privacy-gated daily trend
// @Tags        Public
// @Produce     json
//
// @Param       slug path  string true  "Questionnaire slug"
// @Param       from query string false "Inclusive start date (YYYY-MM-DD)"
// @Param       to   query string false "Inclusive end date (YYYY-MM-DD)"
//
// @Success     200 {object} services.PublicTrend
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /public/{slug}/trend [get]
func (h *Handlers) PublicTrend(c *gin.Context) {
	f, okf := parseFilters(c)
	if !okf {
		return
	}
	out, err := h.analyticsSvc.PublicTrend(c.Request.Context(), tenantID(c), c.Param("slug"), f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
