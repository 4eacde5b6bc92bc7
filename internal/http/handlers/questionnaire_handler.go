// Questionnaire HTTP handlers.
//
// This file exposes REST endpoints for questionnaire resources:
//   - POST /questionnaires                    (create)
//   - GET  /questionnaires                    (list)
//   - POST /questionnaires/{slug}/deactivate  (soft delete)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateQuestionnaireRequest is the JSON payload for creating a
// questionnaire. Slug is optional; when empty it is derived from the name.
type CreateQuestionnaireRequest struct {
	Slug      string `json:"slug" example:"employee-pulse"`
	Name      string `json:"name" binding:"required" example:"Employee Pulse"`
	IsDefault bool   `json:"is_default"`
}

// CreateQuestionnaire godoc
// @ID          createQuestionnaire
// @Summary     Create a questionnaire
// @Tags        Questionnaires
// @Accept      json
// @Produce     json
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Param       body body handlers.CreateQuestionnaireRequest true "Questionnaire payload"
// @Success     201 {object} domain.Questionnaire
// @Failure     409 {object} handlers.ErrorResponse "Slug already in use"
// @Failure     422 {object} handlers.ValidationErrorResponse
// @Router      /questionnaires [post]
func (h *Handlers) CreateQuestionnaire(c *gin.Context) {
	var req CreateQuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}
	q, err := h.qnnSvc.Create(c.Request.Context(), tenantID(c), req.Slug, req.Name, req.IsDefault)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, q)
}

// ListQuestionnaires godoc
// @ID          listQuestionnaires
// @Summary     List the tenant's questionnaires
// @Tags        Questionnaires
// @Produce     json
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Success     200 {array} domain.Questionnaire
// @Router      /questionnaires [get]
func (h *Handlers) ListQuestionnaires(c *gin.Context) {
	items, err := h.qnnSvc.List(c.Request.Context(), tenantID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// DeactivateQuestionnaire godoc
// @ID          deactivateQuestionnaire
// @Summary     Deactivate a questionnaire
// @Description Turns the questionnaire off; versions and responses are retained.
// @Tags        Questionnaires
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Param       slug path string true "Questionnaire slug"
// @Success     204 {string} string "No Content"
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /questionnaires/{slug}/deactivate [post]
func (h *Handlers) DeactivateQuestionnaire(c *gin.Context) {
	if err := h.qnnSvc.Deactivate(c.Request.Context(), tenantID(c), c.Param("slug")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
