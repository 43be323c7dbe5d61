// Simulation HTTP handler.
//
// POST /simulate feeds a hand-written inbound message into the conversation
// pipeline, exactly as a webhook delivery would. Tenant context comes from
// the bearer token.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatcrm/go-crm-backend/internal/http/middleware"
	"github.com/chatcrm/go-crm-backend/internal/services"
)

// SimulateRequest is one synthetic inbound message.
type SimulateRequest struct {
	Channel       string `json:"channel"         binding:"required"`
	ChannelUserID string `json:"channel_user_id" binding:"required"`
	Text          string `json:"text"            binding:"required"`
	ContactName   string `json:"contact_name"`
}

// SimulateResponse mirrors what a channel caller needs to answer the user.
type SimulateResponse struct {
	OK        bool   `json:"ok"`
	Reply     string `json:"reply"`
	Stage     string `json:"stage"`
	ContactID uint   `json:"contact_id"`
	DealID    uint   `json:"deal_id"`
}

// Simulate runs the inbound pipeline for a hand-written message.
func (h *Handlers) Simulate(c *gin.Context) {
	tenantID, okTenant := middleware.TenantFrom(c)
	if !okTenant {
		// Superadmins carry no tenant; simulation needs one.
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "simulation requires tenant context")
		return
	}

	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel, channel_user_id, and text required")
		return
	}

	res, err := h.convSvc.HandleInbound(c.Request.Context(), tenantID, services.InboundMessage{
		Channel:       req.Channel,
		ChannelUserID: req.ChannelUserID,
		Text:          req.Text,
		ContactName:   req.ContactName,
	})
	switch {
	case err == nil:
		ok(c, http.StatusOK, SimulateResponse{
			OK:        true,
			Reply:     res.Reply,
			Stage:     res.Stage,
			ContactID: res.Contact.ID,
			DealID:    res.Deal.ID,
		})
	case errors.Is(err, services.ErrUnknownChannel):
		fail(c, http.StatusBadRequest, ErrCodeUnknownChannel, "unsupported channel")
	case errors.Is(err, services.ErrMissingChannelUser), errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "inbound pipeline failed")
	}
}
