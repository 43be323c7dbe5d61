// Package channels classifies inbound webhook payloads and extracts the
// routing key that maps a delivery to a tenant's channel account.
//
// Payloads arrive as already-decoded JSON (map[string]any) in whatever shape
// the platform sent. Every function in this package is total: missing keys,
// wrong types, and empty arrays yield the zero result, never a panic. This
// matters because webhook bodies are attacker-controlled input.
package channels

import "github.com/chatcrm/go-crm-backend/internal/domain"

// Payload is a decoded webhook body.
type Payload = map[string]any

// Classify determines which messaging channel produced the payload from the
// top-level "object" discriminator Meta puts on every delivery.
func Classify(p Payload) string {
	obj, _ := p["object"].(string)
	switch obj {
	case "whatsapp_business_account":
		return domain.ChannelWhatsApp
	case "page":
		return domain.ChannelMessenger
	case "instagram":
		return domain.ChannelInstagram
	default:
		return domain.ChannelUnknown
	}
}

// RoutingKey extracts the identifier that selects the receiving channel
// account. For WhatsApp it is entry[0].changes[0].value.metadata.phone_number_id;
// for the other channels it is entry[0].id. The second return is false when
// the payload does not carry a usable key.
func RoutingKey(p Payload) (string, bool) {
	switch Classify(p) {
	case domain.ChannelWhatsApp:
		value := whatsappValue(p)
		meta := asMap(value["metadata"])
		return asNonEmptyString(meta["phone_number_id"])
	case domain.ChannelMessenger, domain.ChannelInstagram:
		entry := firstEntry(p)
		return asNonEmptyString(entry["id"])
	default:
		return "", false
	}
}

// InboundText is the sender identity and text pulled out of a WhatsApp
// delivery, ready for the conversation pipeline.
type InboundText struct {
	From string // channel user id of the sender
	Name string // profile name, may be empty
	Text string
}

// ExtractWhatsAppText pulls the first text message out of a WhatsApp payload.
// Deliveries without a text message (status updates, media, malformed bodies)
// return false.
func ExtractWhatsAppText(p Payload) (InboundText, bool) {
	value := whatsappValue(p)

	msgs := asSlice(value["messages"])
	if len(msgs) == 0 {
		return InboundText{}, false
	}
	msg := asMap(msgs[0])

	from, ok := asNonEmptyString(msg["from"])
	if !ok {
		return InboundText{}, false
	}
	body, ok := asNonEmptyString(asMap(msg["text"])["body"])
	if !ok {
		return InboundText{}, false
	}

	out := InboundText{From: from, Text: body}
	// contacts[0].profile.name, when the platform includes it.
	if contacts := asSlice(value["contacts"]); len(contacts) > 0 {
		profile := asMap(asMap(contacts[0])["profile"])
		out.Name, _ = asNonEmptyString(profile["name"])
	}
	return out, true
}

// whatsappValue digs to entry[0].changes[0].value, returning an empty map on
// any structural mismatch.
func whatsappValue(p Payload) map[string]any {
	entry := firstEntry(p)
	changes := asSlice(entry["changes"])
	if len(changes) == 0 {
		return map[string]any{}
	}
	return asMap(asMap(changes[0])["value"])
}

func firstEntry(p Payload) map[string]any {
	entries := asSlice(p["entry"])
	if len(entries) == 0 {
		return map[string]any{}
	}
	return asMap(entries[0])
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

func asNonEmptyString(v any) (string, bool) {
	if s, ok := v.(string); ok && s != "" {
		return s, true
	}
	return "", false
}
