// Version lifecycle HTTP handlers.
//
// This file exposes REST endpoints for schema version management:
//   - GET  /questionnaires/{slug}/draft     (get or create the draft)
//   - PUT  /questionnaires/{slug}/draft     (overwrite draft content)
//   - POST /questionnaires/{slug}/publish   (atomic publish transition)
//   - GET  /questionnaires/{slug}/versions  (version history)
//
// Publish conflicts surface as HTTP 409 with a message instructing the
// caller to reload and retry; the server never retries a publish itself.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// SaveDraftRequest is the JSON payload for overwriting a draft's content.
// VersionID pins the draft being edited so a stale editor is told to
// reload instead of silently writing over a newer draft.
type SaveDraftRequest struct {
	VersionID string             `json:"version_id" binding:"required"`
	Meta      domain.VersionMeta `json:"meta"`
	Fields    domain.FieldList   `json:"fields"`
}

// GetDraft godoc
// @ID          getDraft
// @Summary     Get (or create) the current draft version
// @Tags        Versions
// @Produce     json
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Param       slug path string true "Questionnaire slug"
// @Success     200 {object} domain.QuestionnaireVersion
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /questionnaires/{slug}/draft [get]
func (h *Handlers) GetDraft(c *gin.Context) {
	draft, err := h.versionSvc.GetOrCreateDraft(c.Request.Context(), tenantID(c), c.Param("slug"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, draft)
}

// SaveDraft godoc
// @ID          saveDraft
// @Summary     Overwrite the draft's meta and fields
// @Tags        Versions
// @Accept      json
// @Produce     json
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Param       slug path string true "Questionnaire slug"
// @Param       body body handlers.SaveDraftRequest true "Draft content"
// @Success     200 {object} domain.QuestionnaireVersion
// @Failure     404 {object} handlers.ErrorResponse "Target is not the current draft"
// @Failure     422 {object} handlers.ValidationErrorResponse
// @Router      /questionnaires/{slug}/draft [put]
func (h *Handlers) SaveDraft(c *gin.Context) {
	var req SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "version_id is required")
		return
	}
	v, err := h.versionSvc.SaveDraft(c.Request.Context(), tenantID(c), c.Param("slug"), req.VersionID, req.Meta, req.Fields)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// Publish godoc
// @ID          publishVersion
// @Summary     Publish the current draft
// @Description Archives the previously published version, promotes the draft,
// @Description and spawns a new draft cloned from the published content.
// @Tags        Versions
// @Produce     json
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Param       slug path string true "Questionnaire slug"
// @Success     200 {object} domain.QuestionnaireVersion
// @Failure     404 {object} handlers.ErrorResponse "No draft to publish"
// @Failure     409 {object} handlers.ErrorResponse "Concurrent publish won; reload and retry"
// @Failure     422 {object} handlers.ValidationErrorResponse "Draft has no fields"
// @Router      /questionnaires/{slug}/publish [post]
func (h *Handlers) Publish(c *gin.Context) {
	v, err := h.versionSvc.Publish(c.Request.Context(), tenantID(c), c.Param("slug"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// ListVersions godoc
// @ID          listVersions
// @Summary     List the questionnaire's version history
// @Tags        Versions
// @Produce     json
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Param       slug path string true "Questionnaire slug"
// @Success     200 {array} domain.QuestionnaireVersion
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /questionnaires/{slug}/versions [get]
func (h *Handlers) ListVersions(c *gin.Context) {
	items, err := h.versionSvc.ListVersions(c.Request.Context(), tenantID(c), c.Param("slug"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}
