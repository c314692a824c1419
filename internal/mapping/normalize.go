// =============================================================================
// Accounting Export Mapper - Header Normalizer
// =============================================================================
//
// Normalize turns free-form header text and synonym text into a comparable
// key. Both sides of every comparison go through the same function.
//
// EXAMPLES:
//   "Data wystawienia"   -> "data_wystawienia"
//   "NIP kontrahenta."   -> "nip_kontrahenta"
//   "Kwota/Netto (PLN)"  -> "kwota_netto_pln"
//   "Dłużnik"            -> "dluznik"
//   "Data\u00a0wystawienia" -> "data_wystawienia" (no-break space)
//
// =============================================================================

package mapping

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRun = regexp.MustCompile(`[\p{Z}\s\-./]+`)
	disallowed   = regexp.MustCompile(`[^a-z0-9_]+`)
	underscores  = regexp.MustCompile(`_+`)
)

// Normalize lowercases s, strips diacritics and reduces it to [a-z0-9_].
func Normalize(s string) string {
	s = strings.ToLower(s)

	// Transformers keep state, so a fresh chain is built per call.
	decomposed, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), s)
	if err == nil {
		s = decomposed
	}

	// "ł" has no canonical decomposition.
	s = strings.ReplaceAll(s, "ł", "l")

	s = separatorRun.ReplaceAllString(s, "_")
	s = disallowed.ReplaceAllString(s, "")
	s = underscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
