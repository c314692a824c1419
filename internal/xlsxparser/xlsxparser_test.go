package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// writeWorkbook saves a workbook whose sheets hold the given rows. The
// default "Sheet1" stays empty.
func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for name, rows := range sheets {
		if name != "Sheet1" {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseCatalog(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"sales": {
			{"Name", "Label", "Type", "Required", "Synonyms", "Pattern"},
			{"NrKontrahenta", "NIP kontrahenta", "nip", "no", "nip; nip nabywcy", ""},
			{"DowodSprzedazy", "Numer faktury", "string", "tak", "nr faktury", "^FV/"},
			{},
			{"K_19", "Netto 23%", "money", "", "", ""},
		},
		"_notes": {
			{"anything", "goes", "here"},
		},
	})

	catalogs, err := ParseCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalogs, 1)

	sales := catalogs["sales"]
	require.NotNil(t, sales)
	assert.Equal(t, []string{"NrKontrahenta", "DowodSprzedazy", "K_19"}, sales.Names())

	nip, _ := sales.Field("NrKontrahenta")
	assert.Equal(t, types.FieldNIP, nip.Type)
	assert.False(t, nip.Required)
	assert.Equal(t, []string{"nip", "nip nabywcy"}, nip.Synonyms)

	doc, _ := sales.Field("DowodSprzedazy")
	assert.True(t, doc.Required)
	assert.Equal(t, "^FV/", doc.Pattern)

	k19, _ := sales.Field("K_19")
	assert.Equal(t, types.FieldDecimal, k19.Type)
}

func TestParseCatalog_Errors(t *testing.T) {
	unknownType := writeWorkbook(t, map[string][][]any{
		"sales": {{"Name", "Label", "Type"}, {"A", "", "blob"}},
	})
	_, err := ParseCatalog(unknownType)
	assert.ErrorContains(t, err, "unknown field type")

	duplicate := writeWorkbook(t, map[string][][]any{
		"sales": {{"Name"}, {"A"}, {"A"}},
	})
	_, err = ParseCatalog(duplicate)
	assert.ErrorContains(t, err, "defined twice")

	empty := writeWorkbook(t, map[string][][]any{})
	_, err = ParseCatalog(empty)
	assert.Error(t, err)

	_, err = ParseCatalog(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestParseSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Sheet1": {
			{"Nr faktury", "Data", "Kwota"},
			{"FV/1", "15.01.2026", "100,50"},
			{},
			{"FV/2", "16.01.2026"},
		},
	})

	sheet, err := ParseSheet(path, "", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"Nr faktury", "Data", "Kwota"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, 2, sheet.Rows[0].Index)
	assert.Equal(t, []string{"FV/1", "15.01.2026", "100,50"}, sheet.Rows[0].Cells)
	assert.Equal(t, 4, sheet.Rows[1].Index)
	assert.Equal(t, "book.xlsx", sheet.Metadata[types.MetaSourceFile])
}

func TestParseSheet_MultiRowHeader(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Sheet1": {
			{"Kwota", "", "Data"},
			{"netto", "VAT", ""},
			{"1", "2", "2026-01-01"},
		},
	})

	sheet, err := ParseSheet(path, "Sheet1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kwota netto", "VAT", "Data"}, sheet.Headers)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, 3, sheet.Rows[0].Index)
}

func TestParseSheet_NoHeader(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Sheet1": {{"FV/1", "2026-01-01"}},
	})

	sheet, err := ParseSheet(path, "", 0)
	require.NoError(t, err)
	assert.Nil(t, sheet.Headers)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, 1, sheet.Rows[0].Index)
}

func TestParseSheet_MissingSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{"Sheet1": {{"a"}}})

	_, err := ParseSheet(path, "Zakupy", 1)
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestNormalizeFieldType(t *testing.T) {
	tests := map[string]types.FieldType{
		"":        types.FieldString,
		"Text":    types.FieldString,
		"DATE":    types.FieldDate,
		"kwota":   types.FieldDecimal,
		"int":     types.FieldInteger,
		"tax_id":  types.FieldNIP,
		"bool":    types.FieldBoolean,
		"country": types.FieldCountry,
	}
	for in, want := range tests {
		got, err := NormalizeFieldType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
