// =============================================================================
// Accounting Export Mapper - XLSX Catalog Templates
// =============================================================================
//
// This module reads field catalogs maintained as XLSX workbooks. Every sheet
// is one document subtype (the sheet name); sheets whose name starts with
// "_" are skipped.
//
// TEMPLATE STRUCTURE (Expected Columns):
//
//   | Column A        | Column B         | Column C | Column D | Column E              | Column F   |
//   |-----------------|------------------|----------|----------|-----------------------|------------|
//   | Field name      | Label            | Type     | Required | Synonyms (; separated)| Pattern    |
//   | NrKontrahenta   | NIP kontrahenta  | nip      | no       | nip; nip nabywcy      |            |
//   | DowodSprzedazy  | Numer faktury    | string   | yes      | nr faktury            |            |
//   | DataWystawienia | Data wystawienia | date     | yes      | data faktury          |            |
//   | K_19            | Netto 23%        | decimal  | no       | netto 23              |            |
//
// Row 1 is a header and is ignored. Column positions can be changed through
// TemplateColumns.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// =============================================================================
// TEMPLATE COLUMN CONFIGURATION
// =============================================================================

// TemplateColumns defines which template columns hold which attribute.
// Column indices are 0-based (A=0, B=1, ...).
type TemplateColumns struct {
	NameColumn     int
	LabelColumn    int
	TypeColumn     int
	RequiredColumn int
	SynonymsColumn int
	PatternColumn  int

	// DataStartRow is the first field row (0-based).
	DataStartRow int
}

// DefaultTemplateColumns returns the layout shown in the file header.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		NameColumn:     0, // Column A
		LabelColumn:    1, // Column B
		TypeColumn:     2, // Column C
		RequiredColumn: 3, // Column D
		SynonymsColumn: 4, // Column E
		PatternColumn:  5, // Column F
		DataStartRow:   1, // Row 2
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseCatalog reads every sheet of an XLSX template as a catalog.
//
// PARAMETERS:
//   - templatePath: The path to the XLSX template file.
//
// RETURNS:
//   - The catalogs keyed by subtype (sheet name).
//   - An error if the file cannot be read or a row is invalid.
func ParseCatalog(templatePath string) (map[string]*types.Catalog, error) {
	return ParseCatalogWithConfig(templatePath, DefaultTemplateColumns())
}

// ParseCatalogWithConfig reads a template with a custom column layout.
func ParseCatalogWithConfig(templatePath string, columns TemplateColumns) (map[string]*types.Catalog, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	catalogs := make(map[string]*types.Catalog)
	for _, sheetName := range f.GetSheetList() {
		if strings.HasPrefix(sheetName, "_") {
			continue
		}

		fields, err := parseTemplateSheet(f, sheetName, columns)
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
		}
		if len(fields) == 0 {
			continue
		}
		catalogs[sheetName] = types.NewCatalog(sheetName, fields)
	}

	if len(catalogs) == 0 {
		return nil, fmt.Errorf("template %s defines no fields", templatePath)
	}
	return catalogs, nil
}

// parseTemplateSheet reads the field rows of one sheet.
func parseTemplateSheet(f *excelize.File, sheetName string, columns TemplateColumns) ([]types.FieldDefinition, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var fields []types.FieldDefinition
	seen := make(map[string]bool)
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		field, err := parseTemplateRow(row, columns)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if field.Name == "" {
			continue
		}
		if seen[field.Name] {
			return nil, fmt.Errorf("row %d: field '%s' defined twice", i+1, field.Name)
		}
		seen[field.Name] = true
		fields = append(fields, field)
	}
	return fields, nil
}

// parseTemplateRow extracts a FieldDefinition from a single row.
func parseTemplateRow(row []string, columns TemplateColumns) (types.FieldDefinition, error) {
	getCell := func(index int) string {
		if index >= 0 && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	field := types.FieldDefinition{
		Name:     getCell(columns.NameColumn),
		Label:    getCell(columns.LabelColumn),
		Required: normalizeRequired(getCell(columns.RequiredColumn)),
		Pattern:  getCell(columns.PatternColumn),
	}

	fieldType, err := NormalizeFieldType(getCell(columns.TypeColumn))
	if err != nil {
		return field, err
	}
	field.Type = fieldType

	for _, s := range strings.Split(getCell(columns.SynonymsColumn), ";") {
		if s = strings.TrimSpace(s); s != "" {
			field.Synonyms = append(field.Synonyms, s)
		}
	}
	return field, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeRequired accepts the usual yes/no spellings, Polish included.
// Anything else means optional.
func normalizeRequired(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "required", "req", "r", "yes", "y", "true", "1", "mandatory", "tak", "t", "wymagane":
		return true
	default:
		return false
	}
}

// NormalizeFieldType maps the type spellings used in templates and YAML
// catalogs to a FieldType. An empty value means string.
func NormalizeFieldType(value string) (types.FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "string", "str", "text", "varchar", "alphanumeric":
		return types.FieldString, nil
	case "date", "data":
		return types.FieldDate, nil
	case "decimal", "dec", "money", "amount", "kwota":
		return types.FieldDecimal, nil
	case "integer", "int", "numeric", "number":
		return types.FieldInteger, nil
	case "nip", "tax_id", "taxid":
		return types.FieldNIP, nil
	case "boolean", "bool", "bit", "flag":
		return types.FieldBoolean, nil
	case "country", "country_code":
		return types.FieldCountry, nil
	default:
		return "", fmt.Errorf("unknown field type %q", value)
	}
}
