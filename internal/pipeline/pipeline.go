// =============================================================================
// Accounting Export Mapper - Pipeline
// =============================================================================
//
// This module drives one sheet through the stages:
//
//   parse (done by the caller) -> map -> transform -> validate
//
// FATAL CONDITIONS:
//   Only two problems stop a run early: a sheet without data rows, and a
//   mapping without entries. Both yield a result with exactly one error issue
//   and no rows.
//
// EVERYTHING ELSE:
//   Every other problem becomes an Issue and processing continues through
//   every row and stage. Run never panics and never returns an error; it
//   always returns a complete Result.
//
// MAPPING SELECTION (highest first):
//   1. An explicit mapping passed in Options.
//   2. A registered profile whose key equals the sheet metadata.
//   3. The heuristic auto-mapper.
//
// The pipeline does no I/O and holds no mutable state, so one Pipeline can
// serve concurrent runs as long as the registry and catalogs are not
// modified.
//
// =============================================================================

package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/jpk-mapper/internal/mapping"
	"github.com/ginjaninja78/jpk-mapper/internal/profile"
	"github.com/ginjaninja78/jpk-mapper/internal/transform"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
	"github.com/ginjaninja78/jpk-mapper/internal/validation"
)

// Options control a single run.
type Options struct {
	// Mapping, when non-nil, bypasses profile lookup and auto-mapping.
	Mapping *types.MappingResult

	// SkipValidation disables the validation stage.
	SkipValidation bool

	// Transform is passed to every value transformer.
	Transform transform.Options
}

// Pipeline runs sheets against catalogs.
type Pipeline struct {
	profiles *profile.Registry
}

// New creates a pipeline. profiles may be nil, which disables profile
// lookup.
func New(profiles *profile.Registry) *Pipeline {
	return &Pipeline{profiles: profiles}
}

// Run maps, transforms and validates a sheet.
//
// PARAMETERS:
//   - sheet: The parsed input. A nil sheet is treated as empty.
//   - catalog: The target field catalog.
//   - opts: Run options.
//
// RETURNS:
//   - The result. Never nil.
func (p *Pipeline) Run(sheet *types.RawSheet, catalog *types.Catalog, opts Options) (result *types.Result) {
	result = &types.Result{Sheet: sheet, Catalog: catalog, Rows: []types.TransformedRow{}}

	defer func() {
		if r := recover(); r != nil {
			result.Rows = []types.TransformedRow{}
			result.Issues = append(result.Issues, types.Issue{
				Severity: types.SeverityError,
				Stage:    types.StageTransform,
				Message:  fmt.Sprintf("internal error: %v", r),
			})
		}
	}()

	// =========================================================================
	// STAGE 1: INPUT CHECK
	// =========================================================================

	if sheet == nil || len(sheet.Rows) == 0 {
		result.Issues = append(result.Issues, types.Issue{
			Severity: types.SeverityError,
			Stage:    types.StageParse,
			Message:  "sheet has no data rows",
		})
		return result
	}
	if catalog == nil || len(catalog.Fields) == 0 {
		result.Issues = append(result.Issues, types.Issue{
			Severity: types.SeverityError,
			Stage:    types.StageMap,
			Message:  "catalog has no fields",
		})
		return result
	}

	// =========================================================================
	// STAGE 2: MAPPING
	// =========================================================================

	p.selectMapping(sheet, catalog, opts, result)
	if result.Mapping.Empty() {
		result.Issues = append(result.Issues, types.Issue{
			Severity: types.SeverityError,
			Stage:    types.StageMap,
			Message:  fmt.Sprintf("no column could be mapped to catalog '%s'", catalog.Subtype),
		})
		return result
	}
	result.Issues = append(result.Issues, mappingIssues(result.Mapping, catalog)...)

	// =========================================================================
	// STAGE 3: TRANSFORM
	// =========================================================================

	result.Rows = make([]types.TransformedRow, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		transformed, issues := transformRow(row, result.Mapping, catalog, opts.Transform)
		result.Rows = append(result.Rows, transformed)
		result.Issues = append(result.Issues, issues...)
	}

	// =========================================================================
	// STAGE 4: VALIDATION
	// =========================================================================

	if !opts.SkipValidation {
		result.Issues = append(result.Issues, validation.Validate(result.Rows, catalog, result.Mapping)...)
	}

	return result
}

// selectMapping applies the precedence rules and records which source won.
func (p *Pipeline) selectMapping(sheet *types.RawSheet, catalog *types.Catalog, opts Options, result *types.Result) {
	var msg string

	switch prof, found := p.profiles.Lookup(sheet.Metadata); {
	case opts.Mapping != nil:
		result.Mapping = *opts.Mapping
		result.MappingSource = types.SourceExplicit
		msg = fmt.Sprintf("using explicit mapping with %d column(s)", len(result.Mapping.Mappings))

	case found:
		result.Mapping = mapping.ApplyPositionalMapping(sheet.ColumnCount(), prof.Columns, catalog)
		result.MappingSource = types.SourceProfile
		result.ProfileName = prof.Name
		msg = fmt.Sprintf("using profile '%s' with %d column(s)", prof.Name, len(result.Mapping.Mappings))

	default:
		result.Mapping = mapping.AutoMap(sheet, catalog)
		result.MappingSource = types.SourceAuto
		msg = fmt.Sprintf("auto-mapped %d column(s)", len(result.Mapping.Mappings))
	}

	result.Issues = append(result.Issues, types.Issue{
		Severity: types.SeverityInfo,
		Stage:    types.StageMap,
		Message:  msg,
	})
}

// mappingIssues reports unmapped optional fields and unmapped columns.
// Unmapped required fields are left to the validation stage.
func mappingIssues(m types.MappingResult, catalog *types.Catalog) []types.Issue {
	var issues []types.Issue

	var optional []string
	for _, name := range m.UnmappedFields {
		if def, ok := catalog.Field(name); ok && !def.Required {
			optional = append(optional, name)
		}
	}
	if len(optional) > 0 {
		issues = append(issues, types.Issue{
			Severity: types.SeverityWarning,
			Stage:    types.StageMap,
			Message:  fmt.Sprintf("optional fields without a column: %s", strings.Join(optional, ", ")),
		})
	}

	if len(m.UnmappedColumns) > 0 {
		cols := make([]string, len(m.UnmappedColumns))
		for i, c := range m.UnmappedColumns {
			cols[i] = strconv.Itoa(c)
		}
		issues = append(issues, types.Issue{
			Severity: types.SeverityInfo,
			Stage:    types.StageMap,
			Message:  fmt.Sprintf("columns not mapped: %s", strings.Join(cols, ", ")),
		})
	}

	return issues
}

// transformRow canonicalizes the mapped cells of one row. A mapped column
// the row does not reach produces no value at all.
func transformRow(row types.Row, m types.MappingResult, catalog *types.Catalog, opts transform.Options) (types.TransformedRow, []types.Issue) {
	out := types.TransformedRow{Index: row.Index, Values: types.Values{}}
	var issues []types.Issue

	for _, cm := range m.Mappings {
		raw, ok := row.Cell(cm.SourceColumn)
		if !ok {
			continue
		}
		fieldType := types.FieldString
		if def, known := catalog.Field(cm.TargetField); known {
			fieldType = def.Type
		}

		res := transform.Transform(fieldType, raw, opts)
		out.Values = append(out.Values, types.FieldValue{Field: cm.TargetField, Value: res.Value})
		if res.Warning != "" {
			out.Warnings = append(out.Warnings, res.Warning)
			issues = append(issues, types.RowIssue(types.SeverityWarning, types.StageTransform, row.Index, cm.TargetField, res.Warning))
		}
	}

	return out, issues
}
