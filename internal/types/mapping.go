package types

import "sort"

// MappingResult is a bijective partial matching between source columns and
// target fields. Mapped and unmapped columns partition [0, ColumnCount);
// mapped and unmapped fields partition the catalog.
type MappingResult struct {
	Mappings        []ColumnMapping
	UnmappedFields  []string
	UnmappedColumns []int
	ColumnCount     int

	// fields is the catalog order used to recompute UnmappedFields on edits.
	fields []string
}

// NewMappingResult sorts mappings by source column and derives both
// unmapped sets. Callers are expected to pass a bijective set of mappings.
func NewMappingResult(mappings []ColumnMapping, columnCount int, fields []string) MappingResult {
	sorted := make([]ColumnMapping, len(mappings))
	copy(sorted, mappings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SourceColumn < sorted[j].SourceColumn
	})

	usedCols := make(map[int]bool, len(sorted))
	usedFields := make(map[string]bool, len(sorted))
	for _, m := range sorted {
		usedCols[m.SourceColumn] = true
		usedFields[m.TargetField] = true
	}

	unmappedCols := []int{}
	for c := 0; c < columnCount; c++ {
		if !usedCols[c] {
			unmappedCols = append(unmappedCols, c)
		}
	}
	unmappedFields := []string{}
	for _, f := range fields {
		if !usedFields[f] {
			unmappedFields = append(unmappedFields, f)
		}
	}

	return MappingResult{
		Mappings:        sorted,
		UnmappedFields:  unmappedFields,
		UnmappedColumns: unmappedCols,
		ColumnCount:     columnCount,
		fields:          append([]string(nil), fields...),
	}
}

// Empty reports whether the result maps nothing.
func (r MappingResult) Empty() bool {
	return len(r.Mappings) == 0
}

// ForField returns the mapping targeting a field.
func (r MappingResult) ForField(field string) (ColumnMapping, bool) {
	for _, m := range r.Mappings {
		if m.TargetField == field {
			return m, true
		}
	}
	return ColumnMapping{}, false
}

// ForColumn returns the mapping reading a source column.
func (r MappingResult) ForColumn(col int) (ColumnMapping, bool) {
	for _, m := range r.Mappings {
		if m.SourceColumn == col {
			return m, true
		}
	}
	return ColumnMapping{}, false
}

// WithMapping returns a copy with m added. Any existing entry that reads the
// same column or targets the same field is dropped first.
func (r MappingResult) WithMapping(m ColumnMapping) MappingResult {
	if m.Method == "" {
		m.Method = MethodManual
	}
	if m.Confidence == 0 {
		m.Confidence = 1.0
	}
	kept := make([]ColumnMapping, 0, len(r.Mappings)+1)
	for _, existing := range r.Mappings {
		if existing.SourceColumn == m.SourceColumn || existing.TargetField == m.TargetField {
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, m)

	cols := r.ColumnCount
	if m.SourceColumn >= cols {
		cols = m.SourceColumn + 1
	}
	return NewMappingResult(kept, cols, r.fieldOrder(m.TargetField))
}

// WithoutColumn returns a copy with the mapping of col removed.
func (r MappingResult) WithoutColumn(col int) MappingResult {
	kept := make([]ColumnMapping, 0, len(r.Mappings))
	for _, existing := range r.Mappings {
		if existing.SourceColumn != col {
			kept = append(kept, existing)
		}
	}
	return NewMappingResult(kept, r.ColumnCount, r.fieldOrder(""))
}

// fieldOrder returns the catalog order, rebuilding it from the current sets
// when the result was not created through NewMappingResult.
func (r MappingResult) fieldOrder(extra string) []string {
	order := r.fields
	if order == nil {
		order = append(order, r.UnmappedFields...)
		for _, m := range r.Mappings {
			order = append(order, m.TargetField)
		}
	}
	if extra == "" {
		return order
	}
	for _, f := range order {
		if f == extra {
			return order
		}
	}
	return append(append([]string(nil), order...), extra)
}
