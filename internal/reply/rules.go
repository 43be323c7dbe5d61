// Package reply – rule-based stage suggestion.
package reply

import (
	"strings"

	"github.com/chatcrm/go-crm-backend/internal/domain"
)

// DefaultReply is the scripted one-liner used whenever no backend is
// configured or the backend fails. It asks for the two qualification fields
// the deal record tracks.
const DefaultReply = "Share your city + budget and I'll finalize the order."

// intentKeywords are the purchase-intent markers that move a deal to
// "qualified". The list includes the Urdu "kitna" (how much) and the product
// term "suit" because the customer base writes mixed English/Urdu.
var intentKeywords = []string{
	"price", "cost", "rate", "kitna", "suit", "order", "cod", "delivery",
}

// SuggestStage scans the message for purchase intent and suggests a deal
// stage. The suggestion only ever advances a deal (see domain.MergeStage);
// a message without keywords suggests "new", which never regresses anything.
func SuggestStage(text string) string {
	lower := strings.ToLower(text)
	for _, k := range intentKeywords {
		if strings.Contains(lower, k) {
			return domain.StageQualified
		}
	}
	return domain.StageNew
}
