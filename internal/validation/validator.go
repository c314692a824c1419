// =============================================================================
// Accounting Export Mapper - Validation Engine
// =============================================================================
//
// This module judges transformed rows against the business rules of the
// target catalog. It runs after the transform stage and never modifies a
// value.
//
// VALIDATION STRATEGY:
//   1. Run-level: required catalog fields that have no column mapping at all
//      are reported once, as a warning.
//   2. Field-level: every mapped field of every row is checked independently.
//      No check short-circuits another, except that an empty value skips the
//      format checks.
//   3. Summary: one info issue states how many rows passed.
//
// ERROR HANDLING:
//   - Issues are collected, never thrown
//   - Each row-level issue carries the row index and the field name
//   - Validation problems are errors; transform problems were warnings
//
// The NIP checksum is checked again here with the same algorithm the
// transform stage uses, because an explicit mapping can route a value to a
// NIP field whose cell never looked like a NIP.
//
// =============================================================================

package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/jpk-mapper/internal/nip"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks rows against one catalog and mapping.
type Validator struct {
	catalog *types.Catalog
	mapping types.MappingResult

	// patterns holds the compiled Pattern of each mapped field that has one.
	patterns map[string]*regexp.Regexp

	// setup collects issues raised while preparing the validator.
	setup []types.Issue
}

// NewValidator prepares a validator. Field patterns are compiled once here;
// a pattern that does not compile is reported and ignored.
func NewValidator(catalog *types.Catalog, mapping types.MappingResult) *Validator {
	v := &Validator{
		catalog:  catalog,
		mapping:  mapping,
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, m := range mapping.Mappings {
		def, ok := catalog.Field(m.TargetField)
		if !ok || def.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			v.setup = append(v.setup, types.Issue{
				Severity: types.SeverityWarning,
				Stage:    types.StageValidate,
				Field:    def.Name,
				Message:  fmt.Sprintf("pattern for field '%s' does not compile and is ignored: %v", def.Name, err),
			})
			continue
		}
		v.patterns[def.Name] = re
	}
	return v
}

// Validate runs every check over the rows.
//
// PARAMETERS:
//   - rows: The transformed rows.
//   - catalog: The target catalog.
//   - mapping: The mapping the rows were produced with.
//
// RETURNS:
//   - The validation issues, ending with one info summary.
func Validate(rows []types.TransformedRow, catalog *types.Catalog, mapping types.MappingResult) []types.Issue {
	return NewValidator(catalog, mapping).ValidateAll(rows)
}

// ValidateAll validates all rows.
func (v *Validator) ValidateAll(rows []types.TransformedRow) []types.Issue {
	issues := append([]types.Issue(nil), v.setup...)
	issues = append(issues, v.unmappedRequired()...)

	passed := 0
	for i := range rows {
		rowIssues := v.ValidateRow(rows[i])
		if !containsError(rowIssues) {
			passed++
		}
		issues = append(issues, rowIssues...)
	}

	issues = append(issues, types.Issue{
		Severity: types.SeverityInfo,
		Stage:    types.StageValidate,
		Message:  fmt.Sprintf("%d of %d rows passed validation", passed, len(rows)),
	})
	return issues
}

// unmappedRequired reports, once, the required fields no column feeds.
func (v *Validator) unmappedRequired() []types.Issue {
	if v.catalog == nil {
		return nil
	}
	var missing []string
	for _, def := range v.catalog.Fields {
		if !def.Required {
			continue
		}
		if _, ok := v.mapping.ForField(def.Name); !ok {
			missing = append(missing, def.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []types.Issue{{
		Severity: types.SeverityWarning,
		Stage:    types.StageValidate,
		Message:  fmt.Sprintf("required fields without a column mapping: %s", strings.Join(missing, ", ")),
	}}
}

// ValidateRow validates the mapped fields of one row in catalog order.
func (v *Validator) ValidateRow(row types.TransformedRow) []types.Issue {
	if v.catalog == nil {
		return nil
	}
	var issues []types.Issue
	for _, def := range v.catalog.Fields {
		if _, mapped := v.mapping.ForField(def.Name); !mapped {
			continue
		}
		value, _ := row.Values.Get(def.Name)
		for _, msg := range v.ValidateField(value, def) {
			issues = append(issues, types.RowIssue(types.SeverityError, types.StageValidate, row.Index, def.Name, msg))
		}
	}
	return issues
}

// ValidateField returns one message per failed check.
func (v *Validator) ValidateField(value string, def types.FieldDefinition) []string {
	// =========================================================================
	// REQUIRED FIELD VALIDATION
	// =========================================================================

	if value == "" {
		if def.Required {
			return []string{fmt.Sprintf("required field '%s' is empty", def.Name)}
		}
		return nil
	}

	var msgs []string

	// =========================================================================
	// DATA TYPE VALIDATION
	// =========================================================================

	if msg := validateDataType(value, def.Type); msg != "" {
		msgs = append(msgs, msg)
	}

	// =========================================================================
	// PATTERN VALIDATION
	// =========================================================================

	if re, ok := v.patterns[def.Name]; ok && !re.MatchString(value) {
		msgs = append(msgs, fmt.Sprintf("value '%s' does not match pattern %s", value, re.String()))
	}

	return msgs
}

func containsError(issues []types.Issue) bool {
	for _, i := range issues {
		if i.Severity == types.SeverityError {
			return true
		}
	}
	return false
}

// =============================================================================
// DATA TYPE VALIDATORS
// =============================================================================

var (
	canonicalDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	canonicalCountry = regexp.MustCompile(`^[A-Z]{2}$`)
)

// validateDataType checks a non-empty value against the canonical form of
// its type. It returns an error message, or "" when the value is valid.
//
// Values reaching this point normally went through the transform stage, so
// a failure here means the transform could not canonicalize the input.
func validateDataType(value string, fieldType types.FieldType) string {
	switch fieldType {
	case types.FieldNIP:
		return validateNIP(value)
	case types.FieldDate:
		if !canonicalDate.MatchString(value) {
			return fmt.Sprintf("value '%s' is not a date in YYYY-MM-DD form", value)
		}
	case types.FieldDecimal:
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Sprintf("value '%s' is not a valid decimal number", value)
		}
	case types.FieldInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Sprintf("value '%s' is not a valid integer", value)
		}
	case types.FieldBoolean:
		if value != "true" && value != "false" {
			return fmt.Sprintf("value '%s' is not a valid boolean", value)
		}
	case types.FieldCountry:
		if !canonicalCountry.MatchString(value) {
			return fmt.Sprintf("value '%s' is not a two-letter country code", value)
		}
	}
	return ""
}

func validateNIP(value string) string {
	if _, ok := nip.Checksum(value); !ok {
		return fmt.Sprintf("NIP '%s' must have exactly 10 digits", value)
	}
	if !nip.Valid(value) {
		return fmt.Sprintf("NIP %s has an invalid checksum", value)
	}
	return ""
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatIssues formats issues for display, one per line.
func FormatIssues(issues []types.Issue) string {
	if len(issues) == 0 {
		return "No issues."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "%d issue(s):\n\n", len(issues))
	for i, issue := range issues {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, issue)
	}
	return builder.String()
}
