// CRM HTTP handlers.
//
// Endpoints (all tenant-scoped via the bearer token):
//   - GET /contacts                (paginated)
//   - GET /deals                   (paginated)
//   - GET /contacts/:id/messages   (transcript, paginated, creation order)
//   - PUT /deals/:id/stage         (explicit stage write, validated)
//   - PUT /deals/:id               (city/budget/notes patch)
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/http/middleware"
	"github.com/chatcrm/go-crm-backend/internal/services"
)

// ListContactsResponse wraps a page of contacts.
type ListContactsResponse struct {
	Contacts   []domain.Contact `json:"contacts"`
	Pagination Pagination       `json:"pagination"`
}

// ListDealsResponse wraps a page of deals.
type ListDealsResponse struct {
	Deals      []domain.Deal `json:"deals"`
	Pagination Pagination    `json:"pagination"`
}

// TranscriptResponse wraps a page of a contact's message ledger.
type TranscriptResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// SetDealStageRequest is the payload for an explicit stage write.
type SetDealStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// UpdateDealRequest patches deal qualification details; absent fields are
// left untouched.
type UpdateDealRequest struct {
	City   *string `json:"city"`
	Budget *string `json:"budget"`
	Notes  *string `json:"notes"`
}

// pathID parses a numeric :id path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return uint(n), true
}

// ListContacts returns one page of the tenant's contacts.
func (h *Handlers) ListContacts(c *gin.Context) {
	tenantID, _ := middleware.TenantFrom(c)
	page, pageSize := clampPagination(c)

	items, total, err := h.crmSvc.ListContacts(c.Request.Context(), tenantID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "listing contacts failed")
		return
	}
	ok(c, http.StatusOK, ListContactsResponse{
		Contacts:   items,
		Pagination: paginate(page, pageSize, total),
	})
}

// ListDeals returns one page of the tenant's deals.
func (h *Handlers) ListDeals(c *gin.Context) {
	tenantID, _ := middleware.TenantFrom(c)
	page, pageSize := clampPagination(c)

	items, total, err := h.crmSvc.ListDeals(c.Request.Context(), tenantID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "listing deals failed")
		return
	}
	ok(c, http.StatusOK, ListDealsResponse{
		Deals:      items,
		Pagination: paginate(page, pageSize, total),
	})
}

// ContactMessages returns one transcript page for a contact, oldest first.
func (h *Handlers) ContactMessages(c *gin.Context) {
	tenantID, _ := middleware.TenantFrom(c)
	contactID, okID := pathID(c, "id")
	if !okID {
		return
	}
	page, pageSize := clampPagination(c)

	msgs, total, err := h.convSvc.Transcript(c.Request.Context(), tenantID, contactID, page, pageSize)
	switch {
	case err == nil:
		ok(c, http.StatusOK, TranscriptResponse{
			Messages:   msgs,
			Pagination: paginate(page, pageSize, total),
		})
	case errors.Is(err, services.ErrContactNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "loading transcript failed")
	}
}

// SetDealStage performs a validated, explicit stage write.
func (h *Handlers) SetDealStage(c *gin.Context) {
	tenantID, _ := middleware.TenantFrom(c)
	dealID, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req SetDealStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "stage required")
		return
	}

	deal, err := h.crmSvc.SetDealStage(c.Request.Context(), tenantID, dealID, req.Stage)
	switch {
	case err == nil:
		ok(c, http.StatusOK, deal)
	case errors.Is(err, services.ErrInvalidStage):
		fail(c, http.StatusBadRequest, ErrCodeInvalidStage, "unknown deal stage")
	case errors.Is(err, services.ErrStageRegression):
		fail(c, http.StatusConflict, ErrCodeStageRegression, "deal stage cannot move backwards")
	case errors.Is(err, services.ErrDealNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "deal not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "updating deal failed")
	}
}

// UpdateDeal patches city/budget/notes on a deal.
func (h *Handlers) UpdateDeal(c *gin.Context) {
	tenantID, _ := middleware.TenantFrom(c)
	dealID, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req UpdateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	deal, err := h.crmSvc.UpdateDealDetails(c.Request.Context(), tenantID, dealID, req.City, req.Budget, req.Notes)
	switch {
	case err == nil:
		ok(c, http.StatusOK, deal)
	case errors.Is(err, services.ErrDealNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "deal not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "updating deal failed")
	}
}
