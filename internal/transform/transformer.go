// =============================================================================
// Accounting Export Mapper - Value Transformer
// =============================================================================
//
// This module canonicalizes single cell values according to the declared
// type of their target field. Every function is pure: it takes the raw cell
// string and the options and returns a TransformResult.
//
// CANONICAL FORMS:
//   - date    : YYYY-MM-DD
//   - decimal : dot separator, fixed number of decimal places ("1234.50")
//   - integer : digits without leading zeros
//   - nip     : ten digits, no prefix or separators
//   - boolean : "true" / "false" (blank stays blank)
//   - country : two uppercase letters
//   - string  : trimmed, inner whitespace collapsed
//
// ERROR POLICY:
//   Transformers never fail. A value that cannot be canonicalized is returned
//   unchanged with a warning; the validation stage decides whether that is an
//   error. Blank input is returned blank with no warning, so that "not
//   present" stays distinguishable from a real value.
//
// =============================================================================

package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/jpk-mapper/internal/nip"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// DefaultDecimalPlaces is used when Options.DecimalPlaces is zero.
const DefaultDecimalPlaces = 2

// Options tune the transformers.
type Options struct {
	// DecimalPlaces is the number of places decimals are fixed to.
	// Zero selects DefaultDecimalPlaces.
	DecimalPlaces int

	// AllowFutureDates suppresses the warning for dates after Today.
	AllowFutureDates bool

	// Today is the reference date for the future-date check.
	// The zero value means time.Now().
	Today time.Time
}

func (o Options) places() int32 {
	if o.DecimalPlaces <= 0 {
		return DefaultDecimalPlaces
	}
	return int32(o.DecimalPlaces)
}

func (o Options) today() string {
	if o.Today.IsZero() {
		return time.Now().Format("2006-01-02")
	}
	return o.Today.Format("2006-01-02")
}

// Func is the signature shared by all type transformers.
type Func func(raw string, opts Options) types.TransformResult

// =============================================================================
// DISPATCHER
// =============================================================================

var dispatch = map[types.FieldType]Func{
	types.FieldString:  String,
	types.FieldDate:    Date,
	types.FieldDecimal: Decimal,
	types.FieldInteger: Integer,
	types.FieldNIP:     NIP,
	types.FieldBoolean: Boolean,
	types.FieldCountry: Country,
}

// Transform canonicalizes raw for the given field type. Unknown types fall
// back to the string transform.
func Transform(fieldType types.FieldType, raw string, opts Options) types.TransformResult {
	fn, ok := dispatch[fieldType]
	if !ok {
		fn = String
	}
	return fn(raw, opts)
}

// =============================================================================
// HELPERS
// =============================================================================

// result builds a TransformResult, setting Changed from the raw input.
func result(raw, value, warning string) types.TransformResult {
	return types.TransformResult{Value: value, Changed: value != raw, Warning: warning}
}

// rejected returns raw untouched with a warning.
func rejected(raw, format string, args ...any) types.TransformResult {
	return types.TransformResult{Value: raw, Warning: fmt.Sprintf(format, args...)}
}

func isBlank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// =============================================================================
// STRING
// =============================================================================

// String trims and collapses inner whitespace runs to one space.
func String(raw string, _ Options) types.TransformResult {
	return result(raw, strings.Join(strings.Fields(raw), " "), "")
}

// =============================================================================
// DATE
// =============================================================================

// datePattern captures year, month and day at the given group positions.
type datePattern struct {
	re               *regexp.Regexp
	year, month, day int
}

// datePatterns are tried in order; the first structural match decides.
var datePatterns = []datePattern{
	{regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`), 1, 2, 3},
	{regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`), 3, 2, 1},
	{regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`), 3, 2, 1},
	{regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`), 3, 2, 1},
	{regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})$`), 1, 2, 3},
	{regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`), 1, 2, 3},
	{regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`), 1, 2, 3},
}

// Date converts the supported layouts to YYYY-MM-DD.
//
// Only month 1-12 and day 1-31 are checked, so "2026-02-31" is accepted.
// Dates after today keep their canonical value but carry a warning unless
// opts.AllowFutureDates is set.
func Date(raw string, opts Options) types.TransformResult {
	if isBlank(raw) {
		return result(raw, "", "")
	}
	s := strings.TrimSpace(raw)

	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[p.year])
		month, _ := strconv.Atoi(m[p.month])
		day, _ := strconv.Atoi(m[p.day])

		if month < 1 || month > 12 {
			return rejected(raw, "invalid month %d in date '%s'", month, s)
		}
		if day < 1 || day > 31 {
			return rejected(raw, "invalid day %d in date '%s'", day, s)
		}

		value := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		if !opts.AllowFutureDates && value > opts.today() {
			return result(raw, value, fmt.Sprintf("date %s is in the future", value))
		}
		return result(raw, value, "")
	}

	return rejected(raw, "unrecognized date format '%s'", s)
}

// =============================================================================
// DECIMAL
// =============================================================================

var plainNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Decimal resolves the decimal separator and fixes the number of places.
//
// SEPARATOR RULES:
//   - both ',' and '.' present: the rightmost one is the decimal separator,
//     every occurrence of the other is a thousands separator
//     ("1.234,56" -> "1234.56", "1,234.56" -> "1234.56")
//   - only ',' present: the last comma is the decimal separator when only
//     digits follow it ("100,5" -> "100.50"), otherwise the value is rejected
//   - whitespace anywhere is dropped first ("1 234,56" -> "1234.56")
//
// Rounding is half away from zero.
func Decimal(raw string, opts Options) types.TransformResult {
	if isBlank(raw) {
		return result(raw, "", "")
	}
	s := stripSpace(raw)

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			i := strings.LastIndex(s, ",")
			s = s[:i] + "." + s[i+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		fraction := s[comma+1:]
		if !allDigits(fraction) {
			return rejected(raw, "ambiguous decimal separator in '%s'", strings.TrimSpace(raw))
		}
		s = strings.ReplaceAll(s[:comma], ",", "") + "." + fraction
	}

	if !plainNumber.MatchString(s) {
		return rejected(raw, "invalid decimal number '%s'", strings.TrimSpace(raw))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return rejected(raw, "invalid decimal number '%s'", strings.TrimSpace(raw))
	}
	return result(raw, d.StringFixed(opts.places()), "")
}

// =============================================================================
// INTEGER
// =============================================================================

// Integer accepts digits only and drops leading zeros.
func Integer(raw string, _ Options) types.TransformResult {
	if isBlank(raw) {
		return result(raw, "", "")
	}
	s := stripSpace(raw)
	if !allDigits(s) {
		return rejected(raw, "invalid integer '%s'", strings.TrimSpace(raw))
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return rejected(raw, "integer '%s' out of range", s)
	}
	return result(raw, strconv.FormatInt(n, 10), "")
}

// =============================================================================
// NIP
// =============================================================================

// NIP strips the PL prefix and separators and checks the checksum. A cleaned
// ten-digit value with a bad checksum is still returned, with a warning, so
// that "unparseable" and "parsed but invalid" stay distinguishable.
func NIP(raw string, _ Options) types.TransformResult {
	if isBlank(raw) {
		return result(raw, "", "")
	}
	cleaned := nip.Clean(raw)
	if _, ok := nip.Checksum(cleaned); !ok {
		return rejected(raw, "NIP '%s' must have exactly 10 digits", strings.TrimSpace(raw))
	}
	if !nip.Valid(cleaned) {
		return result(raw, cleaned, fmt.Sprintf("NIP %s has an invalid checksum", cleaned))
	}
	return result(raw, cleaned, "")
}

// =============================================================================
// BOOLEAN
// =============================================================================

var booleanValues = map[string]string{
	"1": "true", "true": "true", "tak": "true", "yes": "true", "y": "true", "t": "true",
	"0": "false", "false": "false", "nie": "false", "no": "false", "n": "false", "f": "false",
}

// Boolean maps the accepted spellings to "true"/"false". Blank input stays
// blank: it means the element is absent, not false.
func Boolean(raw string, _ Options) types.TransformResult {
	if isBlank(raw) {
		return result(raw, "", "")
	}
	s := strings.ToLower(strings.TrimSpace(raw))
	if v, ok := booleanValues[s]; ok {
		return result(raw, v, "")
	}
	return rejected(raw, "unrecognized boolean '%s'", strings.TrimSpace(raw))
}

// =============================================================================
// COUNTRY
// =============================================================================

var countryCode = regexp.MustCompile(`^[A-Z]{2}$`)

// Country uppercases a two-letter country code.
func Country(raw string, _ Options) types.TransformResult {
	if isBlank(raw) {
		return result(raw, "", "")
	}
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !countryCode.MatchString(s) {
		return rejected(raw, "invalid country code '%s'", strings.TrimSpace(raw))
	}
	return result(raw, s, "")
}
