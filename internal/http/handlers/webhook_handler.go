// Webhook HTTP handlers.
//
// Endpoints:
//   - GET  /webhook   (platform verification handshake)
//   - POST /webhook   (inbound message deliveries)
//
// Receive always acknowledges with 200: the platform retries on any other
// status, and a retry storm cannot fix a payload we could not route. Payloads
// that cannot be routed or carry no text are logged and dropped.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatcrm/go-crm-backend/internal/channels"
	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/http/middleware"
	"github.com/chatcrm/go-crm-backend/internal/services"
)

// VerifyWebhook answers the subscription handshake: echo hub.challenge when
// the verify token matches, 403 otherwise.
func (h *Handlers) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.webhookVerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	fail(c, http.StatusForbidden, ErrCodeForbidden, "verification failed")
}

// ReceiveWebhook ingests one platform delivery. The payload is classified,
// mapped to a tenant through its channel account, and fed into the same
// inbound pipeline the simulation endpoint uses.
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	lg := middleware.LoggerFrom(c)

	var payload channels.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		lg.Warn().Err(err).Msg("webhook: undecodable body")
		c.Status(http.StatusOK)
		return
	}

	channel := channels.Classify(payload)
	if channel == domain.ChannelUnknown {
		lg.Warn().Msg("webhook: unknown object discriminator")
		c.Status(http.StatusOK)
		return
	}

	key, okKey := channels.RoutingKey(payload)
	if !okKey {
		lg.Warn().Str("channel", channel).Msg("webhook: no routing key")
		c.Status(http.StatusOK)
		return
	}

	account, err := h.routeInbound(c.Request.Context(), channel, key)
	if err != nil {
		lg.Warn().Str("channel", channel).Str("routing_key", key).
			Msg("webhook: no active channel account")
		c.Status(http.StatusOK)
		return
	}

	// Only WhatsApp deliveries carry extractable text today. Status updates,
	// media, and the other channels are acknowledged and dropped.
	if channel != domain.ChannelWhatsApp {
		lg.Debug().Str("channel", channel).Msg("webhook: channel without text extraction")
		c.Status(http.StatusOK)
		return
	}

	in, okText := channels.ExtractWhatsAppText(payload)
	if !okText {
		lg.Debug().Msg("webhook: delivery carries no text message")
		c.Status(http.StatusOK)
		return
	}

	res, err := h.convSvc.HandleInbound(c.Request.Context(), account.TenantID, services.InboundMessage{
		Channel:       channel,
		ChannelUserID: in.From,
		Text:          in.Text,
		ContactName:   in.Name,
	})
	if err != nil {
		lg.Error().Err(err).Uint("tenant_id", account.TenantID).
			Msg("webhook: inbound pipeline failed")
		c.Status(http.StatusOK)
		return
	}

	lg.Info().
		Uint("tenant_id", account.TenantID).
		Uint("contact_id", res.Contact.ID).
		Uint("deal_id", res.Deal.ID).
		Str("stage", res.Stage).
		Msg("webhook: inbound processed")
	c.Status(http.StatusOK)
}
