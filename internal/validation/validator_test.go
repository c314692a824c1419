package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

func testCatalog() *types.Catalog {
	return types.NewCatalog("sales", []types.FieldDefinition{
		{Name: "DowodSprzedazy", Type: types.FieldString, Required: true, Pattern: `^FV/`},
		{Name: "NrKontrahenta", Type: types.FieldNIP},
		{Name: "DataWystawienia", Type: types.FieldDate, Required: true},
		{Name: "K_10", Type: types.FieldDecimal},
		{Name: "KodKrajuNadaniaTIN", Type: types.FieldCountry},
		{Name: "Liczba", Type: types.FieldInteger},
		{Name: "MPP", Type: types.FieldBoolean},
	})
}

func fullMapping() types.MappingResult {
	fields := testCatalog().Names()
	mappings := make([]types.ColumnMapping, len(fields))
	for i, f := range fields {
		mappings[i] = types.ColumnMapping{SourceColumn: i, TargetField: f, Confidence: 1, Method: types.MethodManual}
	}
	return types.NewMappingResult(mappings, len(fields), fields)
}

func row(index int, kv ...string) types.TransformedRow {
	r := types.TransformedRow{Index: index}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Values = append(r.Values, types.FieldValue{Field: kv[i], Value: kv[i+1]})
	}
	return r
}

func errorsOf(issues []types.Issue) []types.Issue {
	var out []types.Issue
	for _, i := range issues {
		if i.Severity == types.SeverityError {
			out = append(out, i)
		}
	}
	return out
}

func TestValidate_ValidRow(t *testing.T) {
	rows := []types.TransformedRow{row(1,
		"DowodSprzedazy", "FV/001",
		"NrKontrahenta", "5261040828",
		"DataWystawienia", "2026-01-15",
		"K_10", "100.50",
		"KodKrajuNadaniaTIN", "PL",
		"Liczba", "3",
		"MPP", "false",
	)}

	issues := Validate(rows, testCatalog(), fullMapping())
	require.Len(t, issues, 1)
	assert.Equal(t, types.SeverityInfo, issues[0].Severity)
	assert.Equal(t, "1 of 1 rows passed validation", issues[0].Message)
}

func TestValidate_RequiredEmpty(t *testing.T) {
	rows := []types.TransformedRow{
		row(1, "DowodSprzedazy", "FV/001", "DataWystawienia", "2026-01-15"),
		row(2, "DowodSprzedazy", "FV/002", "DataWystawienia", ""),
	}

	errs := errorsOf(Validate(rows, testCatalog(), fullMapping()))
	require.Len(t, errs, 1)
	require.NotNil(t, errs[0].Row)
	assert.Equal(t, 2, *errs[0].Row)
	assert.Equal(t, "DataWystawienia", errs[0].Field)
	assert.Equal(t, types.StageValidate, errs[0].Stage)
}

func TestValidate_RequiredAbsent(t *testing.T) {
	rows := []types.TransformedRow{row(4, "DowodSprzedazy", "FV/001")}

	errs := errorsOf(Validate(rows, testCatalog(), fullMapping()))
	require.Len(t, errs, 1)
	assert.Equal(t, "DataWystawienia", errs[0].Field)
}

func TestValidate_TypeChecks(t *testing.T) {
	tests := []struct {
		field string
		value string
	}{
		{"NrKontrahenta", "1234567890"},
		{"NrKontrahenta", "123"},
		{"DataWystawienia", "15.01.2026"},
		{"K_10", "12,5a"},
		{"Liczba", "1.5"},
		{"MPP", "tak"},
		{"KodKrajuNadaniaTIN", "pl"},
		{"DowodSprzedazy", "INV/001"},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			values := map[string]string{"DowodSprzedazy": "FV/001", "DataWystawienia": "2026-01-15"}
			values[tt.field] = tt.value
			r := types.TransformedRow{Index: 1}
			for _, f := range testCatalog().Names() {
				if v, ok := values[f]; ok {
					r.Values = append(r.Values, types.FieldValue{Field: f, Value: v})
				}
			}

			errs := errorsOf(Validate([]types.TransformedRow{r}, testCatalog(), fullMapping()))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_ChecksAreIndependent(t *testing.T) {
	rows := []types.TransformedRow{row(1,
		"DowodSprzedazy", "FV/001",
		"NrKontrahenta", "1234567890",
		"DataWystawienia", "2026/01/15",
		"K_10", "abc",
	)}

	errs := errorsOf(Validate(rows, testCatalog(), fullMapping()))
	assert.Len(t, errs, 3)
}

func TestValidate_UnmappedRequiredReportedOnce(t *testing.T) {
	catalog := testCatalog()
	mapping := types.NewMappingResult([]types.ColumnMapping{
		{SourceColumn: 0, TargetField: "DowodSprzedazy", Confidence: 1, Method: types.MethodExact},
	}, 1, catalog.Names())
	rows := []types.TransformedRow{
		row(1, "DowodSprzedazy", "FV/001"),
		row(2, "DowodSprzedazy", "FV/002"),
		row(3, "DowodSprzedazy", "FV/003"),
	}

	issues := Validate(rows, catalog, mapping)
	assert.Empty(t, errorsOf(issues), "unmapped required fields are not row errors")

	var warnings []types.Issue
	for _, i := range issues {
		if i.Severity == types.SeverityWarning {
			warnings = append(warnings, i)
		}
	}
	require.Len(t, warnings, 1)
	assert.Nil(t, warnings[0].Row)
	assert.Contains(t, warnings[0].Message, "DataWystawienia")
	assert.Equal(t, "3 of 3 rows passed validation", issues[len(issues)-1].Message)
}

func TestValidate_BadPattern(t *testing.T) {
	catalog := types.NewCatalog("x", []types.FieldDefinition{
		{Name: "A", Type: types.FieldString, Pattern: "("},
	})
	mapping := types.NewMappingResult([]types.ColumnMapping{
		{SourceColumn: 0, TargetField: "A", Confidence: 1, Method: types.MethodExact},
	}, 1, catalog.Names())

	issues := Validate([]types.TransformedRow{row(1, "A", "anything")}, catalog, mapping)
	assert.Empty(t, errorsOf(issues))
	assert.Equal(t, types.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "A", issues[0].Field)
}

func TestFormatIssues(t *testing.T) {
	assert.Equal(t, "No issues.", FormatIssues(nil))

	out := FormatIssues([]types.Issue{
		types.RowIssue(types.SeverityError, types.StageValidate, 2, "K_10", "bad"),
	})
	assert.Contains(t, out, "1 issue(s)")
	assert.Contains(t, out, "1. [error/validate] row 2 field 'K_10': bad")
}
