// =============================================================================
// Accounting Export Mapper - Shared Types
// =============================================================================
//
// This package contains the data model shared by the mapping engine, the value
// transformer, the validation rules and the pipeline. Keeping them here avoids
// import cycles between:
//   - mapping
//   - transform
//   - validation
//   - pipeline
//   - xmlwriter
//
// =============================================================================

package types

import "fmt"

// =============================================================================
// FIELD CATALOG
// =============================================================================

// FieldType is the semantic type of a target field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldDate    FieldType = "date"
	FieldDecimal FieldType = "decimal"
	FieldInteger FieldType = "integer"
	FieldNIP     FieldType = "nip"
	FieldBoolean FieldType = "boolean"
	FieldCountry FieldType = "country"
)

// FieldDefinition describes one target field of a document subtype.
type FieldDefinition struct {
	// Name is the element name in the target document (e.g. "DataWystawienia").
	Name string `yaml:"name"`

	// Label is a human-readable name, also used for header matching.
	Label string `yaml:"label,omitempty"`

	// Type drives value canonicalization and validation.
	Type FieldType `yaml:"type"`

	// Required fields must be present and non-empty in every row.
	Required bool `yaml:"required,omitempty"`

	// Synonyms are alternative header spellings seen in source exports.
	Synonyms []string `yaml:"synonyms,omitempty"`

	// Pattern is an optional regular expression the canonical value must match.
	Pattern string `yaml:"pattern,omitempty"`
}

// Catalog is the ordered set of target fields for one document subtype.
// Catalogs are built once at startup and never mutated afterwards.
type Catalog struct {
	Subtype string
	Fields  []FieldDefinition
	index   map[string]int
}

// NewCatalog builds a catalog and its name index.
func NewCatalog(subtype string, fields []FieldDefinition) *Catalog {
	c := &Catalog{
		Subtype: subtype,
		Fields:  fields,
		index:   make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := c.index[f.Name]; !dup {
			c.index[f.Name] = i
		}
	}
	return c
}

// Field returns the definition for a field name.
func (c *Catalog) Field(name string) (FieldDefinition, bool) {
	if c == nil {
		return FieldDefinition{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return FieldDefinition{}, false
	}
	return c.Fields[i], true
}

// Names returns the field names in catalog order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// =============================================================================
// RAW INPUT
// =============================================================================

// Row is one data row of a raw sheet.
type Row struct {
	// Index is the 1-based row number in the source file, header rows
	// included, so that reports point at the line a user sees.
	Index int

	// Cells holds the raw cell strings in column order.
	Cells []string
}

// Cell returns the cell at col. The boolean is false when the row is
// shorter than col, which is distinct from an empty cell.
func (r Row) Cell(col int) (string, bool) {
	if col < 0 || col >= len(r.Cells) {
		return "", false
	}
	return r.Cells[col], true
}

// RawSheet is the tabular input produced by a file reader.
type RawSheet struct {
	// Headers is nil when the source has no header row.
	Headers []string

	Rows []Row

	// Metadata carries source-system hints used for profile lookup.
	Metadata map[string]string
}

// Metadata keys used for profile lookup.
const (
	MetaSystem          = "system"
	MetaDocumentType    = "document_type"
	MetaDocumentSubtype = "document_subtype"
	MetaSourceFile      = "source_file"
)

// ColumnCount returns the widest of the header row and all data rows.
func (s *RawSheet) ColumnCount() int {
	if s == nil {
		return 0
	}
	n := len(s.Headers)
	for _, r := range s.Rows {
		if len(r.Cells) > n {
			n = len(r.Cells)
		}
	}
	return n
}

// Header returns the header of a column, or "" when there is none.
func (s *RawSheet) Header(col int) string {
	if s == nil || col < 0 || col >= len(s.Headers) {
		return ""
	}
	return s.Headers[col]
}

// =============================================================================
// MAPPING
// =============================================================================

// Method records how a column mapping was produced.
type Method string

const (
	MethodExact    Method = "exact"
	MethodSynonym  Method = "synonym"
	MethodPattern  Method = "pattern"
	MethodPosition Method = "position"
	MethodManual   Method = "manual"
)

// ColumnMapping binds one source column to one target field.
type ColumnMapping struct {
	SourceColumn int     `yaml:"source_column"`
	SourceHeader string  `yaml:"source_header,omitempty"`
	TargetField  string  `yaml:"target_field"`
	Confidence   float64 `yaml:"confidence"`
	Method       Method  `yaml:"method"`
}

// =============================================================================
// TRANSFORM OUTPUT
// =============================================================================

// TransformResult is the outcome of canonicalizing one cell.
type TransformResult struct {
	Value   string
	Changed bool
	Warning string
}

// FieldValue is one entry of a transformed row.
type FieldValue struct {
	Field string
	Value string
}

// Values is an ordered field name to canonical value association. A field
// that is not in the list is absent, which differs from an empty value.
type Values []FieldValue

// Get returns the value of a field and whether it is present.
func (v Values) Get(field string) (string, bool) {
	for _, fv := range v {
		if fv.Field == field {
			return fv.Value, true
		}
	}
	return "", false
}

// Map flattens the values; absent fields are simply missing keys.
func (v Values) Map() map[string]string {
	m := make(map[string]string, len(v))
	for _, fv := range v {
		m[fv.Field] = fv.Value
	}
	return m
}

// TransformedRow is one canonical record.
type TransformedRow struct {
	Index    int
	Values   Values
	Warnings []string
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Severity of a pipeline issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Stage of the pipeline that raised an issue.
type Stage string

const (
	StageParse     Stage = "parse"
	StageMap       Stage = "map"
	StageTransform Stage = "transform"
	StageValidate  Stage = "validate"
)

// Issue is a single diagnostic produced by a run.
type Issue struct {
	Severity Severity
	Stage    Stage
	Message  string

	// Row is the source row index, nil for sheet-level issues.
	Row *int

	// Field is the target field name, empty for row- or sheet-level issues.
	Field string
}

// RowIssue builds an issue tied to a row and field.
func RowIssue(sev Severity, stage Stage, row int, field, msg string) Issue {
	return Issue{Severity: sev, Stage: stage, Message: msg, Row: &row, Field: field}
}

// String implements fmt.Stringer.
func (i Issue) String() string {
	loc := ""
	if i.Row != nil {
		loc = fmt.Sprintf(" row %d", *i.Row)
	}
	if i.Field != "" {
		loc += fmt.Sprintf(" field '%s'", i.Field)
	}
	return fmt.Sprintf("[%s/%s]%s: %s", i.Severity, i.Stage, loc, i.Message)
}

// MappingSource tells which selection rule produced the mapping of a run.
type MappingSource string

const (
	SourceExplicit MappingSource = "explicit"
	SourceProfile  MappingSource = "profile"
	SourceAuto     MappingSource = "auto"
)

// Result is the complete output of a pipeline run.
type Result struct {
	Rows          []TransformedRow
	Issues        []Issue
	Mapping       MappingResult
	MappingSource MappingSource

	// ProfileName is set when MappingSource is SourceProfile.
	ProfileName string

	Sheet   *RawSheet
	Catalog *Catalog
}

// Count returns the number of issues with the given severity.
func (r *Result) Count(sev Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether the run produced any error issue.
func (r *Result) HasErrors() bool {
	return r.Count(SeverityError) > 0
}
