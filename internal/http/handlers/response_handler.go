// Response HTTP handlers.
//
// This file exposes REST endpoints for response submission and raw reads:
//   - POST /questionnaires/{slug}/responses  (submit a response)
//   - GET  /questionnaires/{slug}/responses  (list paginated raw responses)
//
// Handlers are transport-thin:
//   - validate & normalize inputs
//   - delegate to application services (ResponseService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// submission exists for (tenant, questionnaire, key), the handler returns the
// recorded response and sets `Idempotency-Replayed: true` instead of inserting
// a duplicate row.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formbeat/go-survey-backend/internal/domain"
	"github.com/formbeat/go-survey-backend/internal/repo"
	"github.com/formbeat/go-survey-backend/internal/services"
	"github.com/formbeat/go-survey-backend/internal/utils"
)

//
// DTOs
//

// SubmitResponseResponse is the JSON envelope for a stored response.
type SubmitResponseResponse struct {
	// Response is the persisted submission, including its id and the
	// schema version it was validated against.
	Response *domain.Response `json:"response"`
}

// Pagination carries paging metadata for list endpoints.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListResponsesResponse contains a page of raw responses and pagination metadata.
type ListResponsesResponse struct {
	Responses  []domain.Response `json:"responses"`
	Pagination Pagination        `json:"pagination"`
}

// SubmitResponse godoc
// @ID          submitResponse
// @Summary     Submit a response
// @Description Validates the payload against the currently published schema
// @Description version and stores it bound to that exact version id.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Responses
// @Accept      json
// @Produce     json
//
// @Param       X-Tenant-ID      header  string  false "Tenant ID (demo header)"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       slug             path    string  true  "Questionnaire slug"
// @Param       body             body    map[string]interface{}  true  "Raw answer payload keyed by field name"
//
// @Success     201  {object}  handlers.SubmitResponseResponse
// @Failure     400  {object}  handlers.ErrorResponse          "Malformed JSON body"
// @Failure     404  {object}  handlers.ErrorResponse          "Unknown questionnaire or nothing published"
// @Failure     422  {object}  handlers.ValidationErrorResponse
// @Router      /questionnaires/{slug}/responses [post]
func (h *Handlers) SubmitResponse(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")
	tid := tenantID(c)

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be a JSON object")
		return
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.responseSvc.(*services.ResponseService); okSvc && svc.DB != nil {
			if q, err := repo.GetQuestionnaireBySlug(ctx, svc.DB, tid, slug); err == nil {
				if rec, err := repo.GetIdempotency(ctx, svc.DB, tid, q.ID, idemKey, time.Now().UTC()); err == nil && rec != nil {
					if prev, err2 := h.responseSvc.Get(ctx, tid, rec.ResponseID); err2 == nil {
						c.Header("Idempotency-Replayed", "true")
						ok(c, http.StatusOK, SubmitResponseResponse{Response: prev})
						return
					}
				}
			}
		}
	}

	r, err := h.responseSvc.Submit(ctx, tid, slug, payload)
	if err != nil {
		failService(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.responseSvc.(*services.ResponseService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, tid, r.QuestionnaireID, idemKey, r.ID, http.StatusCreated, h.idemTTL)
		}
	}

	ok(c, http.StatusCreated, SubmitResponseResponse{Response: r})
}

// ListResponses godoc
// @ID          listResponses
// @Summary     List raw responses
// @Description Returns a paginated list of stored responses, newest first.
// @Tags        Responses
// @Produce     json
//
// @Param       X-Tenant-ID header string false "Tenant ID (demo header)"
// @Param       slug        path   string true  "Questionnaire slug"
// @Param       page        query  int    false "Page number"    minimum(1) default(1)
// @Param       page_size   query  int    false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200 {object} handlers.ListResponsesResponse
// @Failure     404 {object} handlers.ErrorResponse "Questionnaire not found"
// @Router      /questionnaires/{slug}/responses [get]
func (h *Handlers) ListResponses(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")
	tid := tenantID(c)

	// ETag pre-check (best effort).
	if svc, okSvc := h.responseSvc.(*services.ResponseService); okSvc && svc.DB != nil {
		if q, err := repo.GetQuestionnaireBySlug(ctx, svc.DB, tid, slug); err == nil {
			count, last, err := repo.ResponseStats(ctx, svc.DB, q.ID)
			if err == nil {
				var ts int64
				if last != nil {
					ts = last.Unix()
				}
				etag := fmt.Sprintf(`W/"responses:%s:%d:%d"`, q.ID, count, ts)
				c.Header("ETag", etag)
				if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
					c.Status(http.StatusNotModified)
					return
				}
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.responseSvc.ListPage(ctx, tid, slug, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListResponsesResponse{
		Responses: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// clampPagination reads page/page_size query params with bounds: page >= 1,
// 1 <= page_size <= utils.MaxPageSize.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.NormalizePage(c.Query("page")), utils.NormalizePageSize(c.Query("page_size"))
}

// middlewareIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareIdempotencyKey(c *gin.Context) (string, bool) {
	if v := c.GetHeader("Idempotency-Key"); v != "" {
		return v, true
	}
	return "", false
}
