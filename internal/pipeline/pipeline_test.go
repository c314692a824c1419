package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/jpk-mapper/internal/profile"
	"github.com/ginjaninja78/jpk-mapper/internal/transform"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

var runOpts = Options{Transform: transform.Options{Today: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)}}

func salesCatalog() *types.Catalog {
	return types.NewCatalog("sales", []types.FieldDefinition{
		{Name: "DowodSprzedazy", Type: types.FieldString, Required: true},
		{Name: "DataWystawienia", Type: types.FieldDate, Required: true},
		{Name: "K_10", Type: types.FieldDecimal},
	})
}

func sheet(headers []string, rows ...[]string) *types.RawSheet {
	s := &types.RawSheet{Headers: headers, Metadata: map[string]string{}}
	for i, cells := range rows {
		s.Rows = append(s.Rows, types.Row{Index: i + 1, Cells: cells})
	}
	return s
}

func issuesOf(r *types.Result, sev types.Severity) []types.Issue {
	var out []types.Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

func TestRun_ScenarioB(t *testing.T) {
	s := sheet([]string{"DowodSprzedazy", "DataWystawienia", "K_10"},
		[]string{"FV/001", "15.01.2026", "100,50"})

	res := New(nil).Run(s, salesCatalog(), runOpts)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, map[string]string{
		"DowodSprzedazy":  "FV/001",
		"DataWystawienia": "2026-01-15",
		"K_10":            "100.50",
	}, res.Rows[0].Values.Map())
	assert.Empty(t, res.Rows[0].Warnings)
	assert.Empty(t, issuesOf(res, types.SeverityWarning))
	assert.False(t, res.HasErrors())
	assert.Equal(t, types.SourceAuto, res.MappingSource)
}

func TestRun_NoRowsIsFatal(t *testing.T) {
	res := New(nil).Run(sheet([]string{"DowodSprzedazy"}), salesCatalog(), runOpts)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, types.SeverityError, res.Issues[0].Severity)
	assert.Equal(t, types.StageParse, res.Issues[0].Stage)
	assert.Empty(t, res.Rows)
}

func TestRun_NilSheet(t *testing.T) {
	res := New(nil).Run(nil, salesCatalog(), runOpts)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, types.StageParse, res.Issues[0].Stage)
}

func TestRun_NoMappingIsFatal(t *testing.T) {
	// Country and boolean columns, neither type exists in the catalog.
	s := sheet([]string{"foo", "bar"}, []string{"PL", "true"})

	res := New(nil).Run(s, salesCatalog(), runOpts)

	errs := issuesOf(res, types.SeverityError)
	require.Len(t, errs, 1)
	assert.Equal(t, types.StageMap, errs[0].Stage)
	assert.Empty(t, res.Rows)
}

func TestRun_ExplicitBeatsProfile(t *testing.T) {
	reg, err := profile.NewRegistry(profile.Profile{
		Name: "erp", System: "erp", DocumentType: "jpk", DocumentSubtype: "sales",
		Columns: map[int]string{0: "K_10"},
	})
	require.NoError(t, err)

	s := sheet(nil, []string{"FV/009", "01.02.2026"})
	s.Metadata = map[string]string{
		types.MetaSystem: "erp", types.MetaDocumentType: "jpk", types.MetaDocumentSubtype: "sales",
	}

	explicit := types.NewMappingResult([]types.ColumnMapping{
		{SourceColumn: 0, TargetField: "DowodSprzedazy", Confidence: 1, Method: types.MethodManual},
		{SourceColumn: 1, TargetField: "DataWystawienia", Confidence: 1, Method: types.MethodManual},
	}, 2, salesCatalog().Names())

	opts := runOpts
	opts.Mapping = &explicit
	res := New(reg).Run(s, salesCatalog(), opts)
	assert.Equal(t, types.SourceExplicit, res.MappingSource)
	assert.Equal(t, "2026-02-01", res.Rows[0].Values.Map()["DataWystawienia"])

	res = New(reg).Run(s, salesCatalog(), runOpts)
	assert.Equal(t, types.SourceProfile, res.MappingSource)
	assert.Equal(t, "erp", res.ProfileName)
	require.Len(t, res.Mapping.Mappings, 1)
	assert.Equal(t, types.MethodPosition, res.Mapping.Mappings[0].Method)
}

func TestRun_ProfileBeatsAuto(t *testing.T) {
	reg, err := profile.NewRegistry(profile.Profile{
		Name: "erp", System: "erp", DocumentType: "jpk", DocumentSubtype: "sales",
		Columns: map[int]string{0: "DataWystawienia", 1: "DowodSprzedazy"},
	})
	require.NoError(t, err)

	// Headers would auto-map the other way round.
	s := sheet([]string{"DowodSprzedazy", "DataWystawienia"}, []string{"2026-03-01", "FV/1"})
	s.Metadata = map[string]string{
		types.MetaSystem: "erp", types.MetaDocumentType: "jpk", types.MetaDocumentSubtype: "sales",
	}

	res := New(reg).Run(s, salesCatalog(), runOpts)
	assert.Equal(t, types.SourceProfile, res.MappingSource)
	assert.Equal(t, map[string]string{"DataWystawienia": "2026-03-01", "DowodSprzedazy": "FV/1"}, res.Rows[0].Values.Map())
	assert.False(t, res.HasErrors())
}

func TestRun_MappingIssues(t *testing.T) {
	s := sheet([]string{"DowodSprzedazy", "DataWystawienia", "uwagi"},
		[]string{"FV/1", "2026-01-01", "note"})

	res := New(nil).Run(s, salesCatalog(), runOpts)

	var mapWarnings, mapInfos []types.Issue
	for _, i := range res.Issues {
		if i.Stage != types.StageMap {
			continue
		}
		switch i.Severity {
		case types.SeverityWarning:
			mapWarnings = append(mapWarnings, i)
		case types.SeverityInfo:
			mapInfos = append(mapInfos, i)
		}
	}
	require.Len(t, mapWarnings, 1)
	assert.Contains(t, mapWarnings[0].Message, "K_10")
	require.Len(t, mapInfos, 2)
	assert.Contains(t, mapInfos[0].Message, "auto-mapped")
	assert.Contains(t, mapInfos[1].Message, "2")
}

func TestRun_TransformWarningsContinue(t *testing.T) {
	s := sheet([]string{"DowodSprzedazy", "DataWystawienia", "K_10"},
		[]string{"FV/1", "yesterday", "abc"},
		[]string{"FV/2", "2026-01-02", "5"},
	)

	res := New(nil).Run(s, salesCatalog(), runOpts)

	require.Len(t, res.Rows, 2)
	assert.Len(t, res.Rows[0].Warnings, 2)
	assert.Empty(t, res.Rows[1].Warnings)

	var transformWarnings int
	for _, i := range res.Issues {
		if i.Stage == types.StageTransform && i.Severity == types.SeverityWarning {
			transformWarnings++
			require.NotNil(t, i.Row)
			assert.Equal(t, 1, *i.Row)
		}
	}
	assert.Equal(t, 2, transformWarnings)

	// The same bad values fail validation.
	errs := issuesOf(res, types.SeverityError)
	assert.Len(t, errs, 2)
	assert.Equal(t, "5.00", res.Rows[1].Values.Map()["K_10"])
}

func TestRun_ShortRowsKeepValuesAbsent(t *testing.T) {
	s := sheet([]string{"DowodSprzedazy", "DataWystawienia", "K_10"},
		[]string{"FV/1", "2026-01-02", "1"},
		[]string{"FV/2", "2026-01-03"},
	)

	res := New(nil).Run(s, salesCatalog(), runOpts)
	require.Len(t, res.Rows, 2)
	_, present := res.Rows[1].Values.Get("K_10")
	assert.False(t, present)
	assert.False(t, res.HasErrors())
}

func TestRun_SkipValidation(t *testing.T) {
	s := sheet([]string{"DowodSprzedazy", "DataWystawienia"}, []string{"FV/1", ""})

	res := New(nil).Run(s, salesCatalog(), runOpts)
	assert.True(t, res.HasErrors())

	opts := runOpts
	opts.SkipValidation = true
	res = New(nil).Run(s, salesCatalog(), opts)
	assert.False(t, res.HasErrors())
	for _, i := range res.Issues {
		assert.NotEqual(t, types.StageValidate, i.Stage)
	}
}

func TestRun_RowCountMatchesInput(t *testing.T) {
	rows := make([][]string, 0, 25)
	for i := 0; i < 25; i++ {
		rows = append(rows, []string{"FV/x", "garbage", ""})
	}
	s := sheet([]string{"DowodSprzedazy", "DataWystawienia", "K_10"}, rows...)

	res := New(nil).Run(s, salesCatalog(), runOpts)
	assert.Len(t, res.Rows, 25)
	for i, r := range res.Rows {
		assert.Equal(t, i+1, r.Index)
	}
}

func TestRun_OddInputsNeverPanic(t *testing.T) {
	explicit := types.NewMappingResult([]types.ColumnMapping{
		{SourceColumn: 42, TargetField: "Unknown", Confidence: 1, Method: types.MethodManual},
	}, 43, nil)

	inputs := []struct {
		sheet   *types.RawSheet
		catalog *types.Catalog
		opts    Options
	}{
		{nil, nil, Options{}},
		{sheet(nil, []string{}), salesCatalog(), Options{}},
		{sheet([]string{"a"}, []string{"x"}), nil, Options{}},
		{sheet([]string{"a"}, []string{"x"}), &types.Catalog{}, Options{}},
		{sheet(nil, []string{"x"}), salesCatalog(), Options{Mapping: &explicit}},
		{&types.RawSheet{Rows: []types.Row{{Index: 1}}}, salesCatalog(), Options{}},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			res := New(nil).Run(in.sheet, in.catalog, in.opts)
			require.NotNil(t, res)
		})
	}
}

func TestRun_IntegerRangeAgreesWithValidation(t *testing.T) {
	cat := types.NewCatalog("stock", []types.FieldDefinition{
		{Name: "Liczba", Type: types.FieldInteger},
	})
	s := sheet([]string{"Liczba"},
		[]string{"9223372036854775807"},
		[]string{"18446744073709551615"})

	res := New(nil).Run(s, cat, runOpts)

	require.Len(t, res.Rows, 2)
	assert.Empty(t, res.Rows[0].Warnings)
	require.Len(t, res.Rows[1].Warnings, 1)
	assert.Contains(t, res.Rows[1].Warnings[0], "out of range")

	errs := issuesOf(res, types.SeverityError)
	require.Len(t, errs, 1)
	assert.Equal(t, types.StageValidate, errs[0].Stage)
	require.NotNil(t, errs[0].Row)
	assert.Equal(t, 2, *errs[0].Row)
}
