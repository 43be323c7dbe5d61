// Package reply produces the outbound answer for an inbound message: a
// rule-based stage suggestion that is always authoritative, plus reply text
// from either a fixed template or an optional LLM backend.
//
// This file implements the mandatory output sanitizer. Channel APIs for
// basic text replies are only reliable with plain ASCII, so every reply,
// no matter which backend produced it, is folded to ASCII punctuation and
// collapsed whitespace before leaving the service.
package reply

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// smartPunct folds typographic punctuation into its ASCII equivalent before
// the generic non-ASCII strip, so quotes and dashes survive as characters
// instead of disappearing.
var smartPunct = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	" ", " ", // no-break space
)

// asciiClamp decomposes accented letters (NFKD), drops the combining marks,
// and removes anything still outside the ASCII range.
var asciiClamp = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Sanitize normalizes reply text to the constrained character set sent to
// channel APIs: ASCII punctuation only, single spaces, no leading/trailing
// whitespace. Empty input stays empty.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = smartPunct.Replace(text)
	if out, _, err := transform.String(asciiClamp, text); err == nil {
		text = out
	}
	return strings.Join(strings.Fields(text), " ")
}
