// =============================================================================
// Accounting Export Mapper - Automatic Column Mapping
// =============================================================================
//
// AutoMap proposes a column -> field assignment for an unknown export.
//
// ALGORITHM:
//   Phase 1 (headers): every non-empty header is scored against every field
//   with MatchHeader. Viable candidates are sorted by confidence, highest
//   first, keeping generation order for ties, and claimed greedily: a
//   candidate is skipped when its column or its field is already taken.
//
//   Phase 2 (types): each column left over is typed with InferType. Every
//   left-over field of the same declared type becomes a candidate at a fixed
//   confidence of 0.4, always below a header match, and the same greedy
//   claim runs again.
//
// The greedy scan is part of the contract. Swapping it for an optimal
// matching would change which column wins on ties.
//
// =============================================================================

package mapping

import (
	"sort"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// candidate is a proposed pairing awaiting the greedy claim.
type candidate struct {
	column     int
	field      string
	confidence float64
	method     types.Method
}

// claims tracks columns and fields already taken.
type claims struct {
	columns map[int]bool
	fields  map[string]bool
	result  []types.ColumnMapping
}

func newClaims() *claims {
	return &claims{columns: map[int]bool{}, fields: map[string]bool{}}
}

// claim sorts candidates by confidence (stable) and takes every candidate
// whose column and field are both still free.
func (c *claims) claim(sheet *types.RawSheet, candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})
	for _, cand := range candidates {
		if c.columns[cand.column] || c.fields[cand.field] {
			continue
		}
		c.columns[cand.column] = true
		c.fields[cand.field] = true
		c.result = append(c.result, types.ColumnMapping{
			SourceColumn: cand.column,
			SourceHeader: sheet.Header(cand.column),
			TargetField:  cand.field,
			Confidence:   cand.confidence,
			Method:       cand.method,
		})
	}
}

// AutoMap builds a mapping for sheet against catalog using header and type
// heuristics. Identical inputs always give identical output.
func AutoMap(sheet *types.RawSheet, catalog *types.Catalog) types.MappingResult {
	columnCount := sheet.ColumnCount()
	fieldNames := catalog.Names()

	if columnCount == 0 || len(fieldNames) == 0 {
		return types.NewMappingResult(nil, columnCount, fieldNames)
	}

	c := newClaims()

	// =========================================================================
	// PHASE 1: HEADERS
	// =========================================================================

	if len(sheet.Headers) > 0 {
		var candidates []candidate
		for col, header := range sheet.Headers {
			if header == "" {
				continue
			}
			for _, field := range catalog.Fields {
				conf, method := MatchHeader(header, field)
				if conf > ViableThreshold {
					candidates = append(candidates, candidate{col, field.Name, conf, method})
				}
			}
		}
		c.claim(sheet, candidates)
	}

	// =========================================================================
	// PHASE 2: VALUE TYPES
	// =========================================================================

	var candidates []candidate
	for col := 0; col < columnCount; col++ {
		if c.columns[col] {
			continue
		}
		inferred, ok := InferType(columnValues(sheet, col))
		if !ok {
			continue
		}
		for _, field := range catalog.Fields {
			if c.fields[field.Name] || field.Type != inferred {
				continue
			}
			candidates = append(candidates, candidate{col, field.Name, ConfidenceType, types.MethodPattern})
		}
	}
	c.claim(sheet, candidates)

	return types.NewMappingResult(c.result, columnCount, fieldNames)
}

// ApplyPositionalMapping builds a mapping from a fixed column -> field table,
// as used by hand-verified profiles. Out-of-range columns and field names not
// in the catalog are skipped without error. Columns are visited in ascending
// order, so when two columns name the same field the lower one wins.
func ApplyPositionalMapping(columnCount int, positions map[int]string, catalog *types.Catalog) types.MappingResult {
	cols := make([]int, 0, len(positions))
	for col := range positions {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	taken := map[string]bool{}
	var mappings []types.ColumnMapping
	for _, col := range cols {
		name := positions[col]
		if col < 0 || col >= columnCount {
			continue
		}
		if _, ok := catalog.Field(name); !ok || taken[name] {
			continue
		}
		taken[name] = true
		mappings = append(mappings, types.ColumnMapping{
			SourceColumn: col,
			TargetField:  name,
			Confidence:   1.0,
			Method:       types.MethodPosition,
		})
	}
	return types.NewMappingResult(mappings, columnCount, catalog.Names())
}
