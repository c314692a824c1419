package xlsxparser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// ErrSheetNotFound is returned when the requested worksheet does not exist.
var ErrSheetNotFound = errors.New("worksheet not found")

// ParseSheet reads an exported worksheet as a RawSheet.
//
// PARAMETERS:
//   - filePath: The path to the XLSX export.
//   - sheetName: The worksheet to read. Empty selects the first sheet.
//   - headerRows: Number of header rows; several are merged per column,
//     zero means the sheet has no header.
//
// RETURNS:
//   - The raw sheet. Cells are returned as excelize formats them.
//   - An error if the file or the sheet cannot be read.
func ParseSheet(filePath, sheetName string, headerRows int) (*types.RawSheet, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheetName, filepath.Base(filePath))
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	sheet := &types.RawSheet{
		Metadata: map[string]string{types.MetaSourceFile: filepath.Base(filePath)},
		Rows:     []types.Row{},
	}

	if headerRows > len(rows) {
		headerRows = len(rows)
	}
	if headerRows > 0 {
		sheet.Headers = mergeHeaders(rows[:headerRows])
	}

	for i := headerRows; i < len(rows); i++ {
		if isRowEmpty(rows[i]) {
			continue
		}
		cells := make([]string, len(rows[i]))
		copy(cells, rows[i])
		sheet.Rows = append(sheet.Rows, types.Row{Index: i + 1, Cells: cells})
	}

	return sheet, nil
}

// mergeHeaders joins the non-empty parts of each column across several
// header rows with a space.
func mergeHeaders(headerRows [][]string) []string {
	width := 0
	for _, r := range headerRows {
		if len(r) > width {
			width = len(r)
		}
	}

	headers := make([]string, width)
	for col := 0; col < width; col++ {
		var parts []string
		for _, r := range headerRows {
			if col < len(r) {
				if v := strings.TrimSpace(r[col]); v != "" {
					parts = append(parts, v)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}
	return headers
}
