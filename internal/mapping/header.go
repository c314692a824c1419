package mapping

import (
	"strings"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// Confidence levels of the header cascade.
const (
	ConfidenceName            = 1.0
	ConfidenceLabel           = 0.95
	ConfidenceSynonym         = 0.90
	ConfidenceContains        = 0.70
	ConfidenceSynonymContains = 0.60
	ConfidenceType            = 0.4
	ViableThreshold           = 0.5
	minContainmentLength      = 3
)

// MatchHeader scores one header against one field definition. The cascade
// stops at the first rule that hits; a zero confidence means no candidate.
func MatchHeader(header string, field types.FieldDefinition) (float64, types.Method) {
	h := Normalize(header)
	if h == "" {
		return 0, ""
	}

	name := Normalize(field.Name)
	label := Normalize(field.Label)
	synonyms := make([]string, 0, len(field.Synonyms))
	for _, s := range field.Synonyms {
		if n := Normalize(s); n != "" {
			synonyms = append(synonyms, n)
		}
	}

	if h == name {
		return ConfidenceName, types.MethodExact
	}
	if label != "" && h == label {
		return ConfidenceLabel, types.MethodExact
	}
	for _, s := range synonyms {
		if h == s {
			return ConfidenceSynonym, types.MethodSynonym
		}
	}
	if contains(h, name) || contains(h, label) {
		return ConfidenceContains, types.MethodPattern
	}
	for _, s := range synonyms {
		if contains(h, s) {
			return ConfidenceSynonymContains, types.MethodPattern
		}
	}
	return 0, ""
}

// contains reports substring containment in either direction, only for
// strings long enough to carry meaning.
func contains(a, b string) bool {
	if len(a) < minContainmentLength || len(b) < minContainmentLength {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
