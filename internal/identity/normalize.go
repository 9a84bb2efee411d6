package identity

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalLoginKey trims surrounding whitespace and applies Unicode NFC so
// visually identical addresses map to one index entry. Case is preserved.
func CanonicalLoginKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
