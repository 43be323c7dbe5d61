// Platform admin HTTP handlers (superadmin only).
//
// Endpoints:
//   - GET  /admin/tenants                          (list all tenants)
//   - POST /admin/tenants/:id/activate             (pending -> active)
//   - POST /admin/tenants/:id/channel-accounts     (bind a channel account)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatcrm/go-crm-backend/internal/services"
)

// AddChannelAccountRequest binds an external channel account to a tenant.
type AddChannelAccountRequest struct {
	Channel    string  `json:"channel"     binding:"required"`
	ExternalID *string `json:"external_id" binding:"required"`
}

// AdminListTenants returns every tenant on the platform.
func (h *Handlers) AdminListTenants(c *gin.Context) {
	tenants, err := h.tenantSvc.ListTenants(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "listing tenants failed")
		return
	}
	ok(c, http.StatusOK, gin.H{"tenants": tenants})
}

// AdminActivateTenant flips a tenant from pending to active.
func (h *Handlers) AdminActivateTenant(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	tenant, err := h.tenantSvc.ActivateTenant(c.Request.Context(), id)
	switch {
	case err == nil:
		ok(c, http.StatusOK, tenant)
	case errors.Is(err, services.ErrTenantNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "tenant not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "activating tenant failed")
	}
}

// AdminAddChannelAccount binds a channel account to a tenant for webhook
// routing.
func (h *Handlers) AdminAddChannelAccount(c *gin.Context) {
	id, okID := pathID(c, "id")
	if !okID {
		return
	}

	var req AddChannelAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel and external_id required")
		return
	}

	acct, err := h.tenantSvc.AddChannelAccount(c.Request.Context(), id, req.Channel, req.ExternalID)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, acct)
	case errors.Is(err, services.ErrUnknownChannel):
		fail(c, http.StatusBadRequest, ErrCodeUnknownChannel, "unsupported channel")
	case errors.Is(err, services.ErrTenantNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "tenant not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "adding channel account failed")
	}
}
