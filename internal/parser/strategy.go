package parser

import "strings"

// ReceiverKind classifies the receiver of an instance method whose name
// exists on more than one builtin prototype.
type ReceiverKind int

const (
	// KindArray attributes the method to Array.prototype.
	KindArray ReceiverKind = iota
	// KindString attributes the method to String.prototype.
	KindString
)

// Strategy decides which builtin an ambiguous method call (at,
// includes) belongs to, given the receiver's source text. Detectors
// ship with DefaultStrategy; tests and callers may substitute their
// own.
type Strategy func(receiver string) ReceiverKind

var stringReceiverHints = []string{
	"str", "text", "name", "msg", "message", "title", "label", "word",
	"line", "path", "url", "href", "html", "content", "key",
}

var arrayReceiverHints = []string{
	"arr", "list", "items", "array", "elems", "elements", "values",
	"entries", "keys", "ids", "rows", "cols", "nodes", "parts",
	"tokens", "results", "chunks",
}

// DefaultStrategy guesses from the receiver text: literals are
// unambiguous, identifier names are matched against common naming
// hints, and anything else is attributed to Array, the more common
// receiver for `includes` in application code.
func DefaultStrategy(receiver string) ReceiverKind {
	if receiver == "" {
		return KindArray
	}
	switch receiver[0] {
	case '"', '\'', '`':
		return KindString
	case '[':
		return KindArray
	}

	lower := strings.ToLower(receiver)
	for _, hint := range stringReceiverHints {
		if strings.Contains(lower, hint) {
			return KindString
		}
	}
	for _, hint := range arrayReceiverHints {
		if strings.Contains(lower, hint) {
			return KindArray
		}
	}
	return KindArray
}
