package mapping

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// maxSamples bounds how many non-empty values are inspected per column.
const maxSamples = 10

var (
	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nipPattern      = regexp.MustCompile(`^(\d{10}|\d{3}-\d{3}-\d{2}-\d{2}|\d{3}-\d{2}-\d{2}-\d{3})$`)
	countryPattern  = regexp.MustCompile(`^[A-Z]{2}$`)
	decimalPattern  = regexp.MustCompile(`^[+-]?\d+[.,]\d+$`)
	integerPattern  = regexp.MustCompile(`^\d+$`)
	booleanLiterals = map[string]bool{"true": true, "false": true, "1": true, "0": true, "tak": true, "nie": true}
)

// inferenceRule is one step of the fixed-priority type test.
type inferenceRule struct {
	fieldType types.FieldType
	threshold float64
	match     func(string) bool
}

var inferenceRules = []inferenceRule{
	{types.FieldDate, 0.8, isoDatePattern.MatchString},
	{types.FieldNIP, 0.8, nipPattern.MatchString},
	{types.FieldCountry, 0.8, countryPattern.MatchString},
	{types.FieldBoolean, 0.8, func(s string) bool { return booleanLiterals[strings.ToLower(s)] }},
	{types.FieldDecimal, 0.5, decimalPattern.MatchString},
	{types.FieldInteger, 0.8, integerPattern.MatchString},
}

// InferType guesses the semantic type of a column from its values. Only the
// first ten non-empty values are looked at. The boolean is false when there
// is nothing to look at, which callers must not confuse with FieldString.
func InferType(values []string) (types.FieldType, bool) {
	samples := make([]string, 0, maxSamples)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		samples = append(samples, v)
		if len(samples) == maxSamples {
			break
		}
	}
	if len(samples) == 0 {
		return "", false
	}

	for _, rule := range inferenceRules {
		hits := 0
		for _, s := range samples {
			if rule.match(s) {
				hits++
			}
		}
		if float64(hits)/float64(len(samples)) >= rule.threshold {
			return rule.fieldType, true
		}
	}
	return types.FieldString, true
}

// columnValues collects the raw values of one column across all rows.
func columnValues(sheet *types.RawSheet, col int) []string {
	values := make([]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if v, ok := row.Cell(col); ok {
			values = append(values, v)
		}
	}
	return values
}
