// =============================================================================
// Accounting Export Mapper - CSV Parser Module
// =============================================================================
//
// This module reads CSV exports of accounting systems into a RawSheet. It
// handles:
//   - Different delimiters (semicolon, comma, pipe, tab)
//   - Multi-line headers, merged per column
//   - Files without a header row
//   - UTF-8 (with or without BOM), Windows-1250 and ISO-8859-2 input
//   - Rows of uneven length
//
// Cells are returned as read; trimming and canonicalization belong to the
// transform stage. Completely empty rows are skipped.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/jpk-mapper/internal/config"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// ErrEmptyFile is returned for a file without any record.
var ErrEmptyFile = errors.New("CSV file is empty")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into a RawSheet.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings of the matching source.
//
// RETURNS:
//   - The raw sheet, with the file name in its metadata.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.CSVSettings) (*types.RawSheet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	sheet, err := ParseReader(file, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filePath), err)
	}
	sheet.Metadata[types.MetaSourceFile] = filepath.Base(filePath)
	return sheet, nil
}

// ParseReader reads CSV content from r.
//
// PARSING PROCESS:
//   1. Decode the input to UTF-8 according to settings.Encoding
//   2. Configure the CSV reader with the delimiter ("auto" sniffs it)
//   3. Merge the header rows
//   4. Collect the data rows with the 1-based line they start on
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.RawSheet, error) {
	decoded, err := decode(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(settings.Delimiter, "auto") {
		data, err := io.ReadAll(decoded)
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		settings.Delimiter = SniffDelimiter(data)
		decoded = bytes.NewReader(data)
	}

	csvReader := csv.NewReader(decoded)
	configureReader(csvReader, settings)

	allRows, lines, err := readRecords(csvReader)
	if err != nil {
		return nil, err
	}
	if len(allRows) == 0 {
		return nil, ErrEmptyFile
	}

	headerRows := settings.HeaderRows
	if settings.NoHeader || headerRows < 0 {
		headerRows = 0
	}
	if headerRows > len(allRows) {
		headerRows = len(allRows)
	}

	sheet := &types.RawSheet{
		Rows:     []types.Row{},
		Metadata: map[string]string{},
	}
	if headerRows > 0 {
		sheet.Headers = extractHeaders(allRows[:headerRows])
	}

	for i := headerRows; i < len(allRows); i++ {
		if isRowEmpty(allRows[i]) {
			continue
		}
		sheet.Rows = append(sheet.Rows, types.Row{Index: lines[i], Cells: allRows[i]})
	}

	return sheet, nil
}

// readRecords reads every record together with the physical line it starts
// on. Blank lines and quoted line breaks make the two differ.
func readRecords(reader *csv.Reader) ([][]string, []int, error) {
	var records [][]string
	var lines []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return records, lines, nil
}

// configureReader applies the delimiter and relaxes the quoting rules that
// accounting exports routinely break.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ",", "comma":
		reader.Comma = ','
	case "", ";", "semicolon":
		reader.Comma = ';'
	default:
		reader.Comma = []rune(settings.Delimiter)[0]
	}

	// Exports often end summary lines early.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// decode wraps r so that it yields UTF-8.
func decode(r io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8":
		// BOMOverride strips a UTF-8 BOM and falls back to the nop decoder.
		return transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder())), nil
	case "windows-1250", "cp1250", "win1250":
		enc = charmap.Windows1250
	case "iso-8859-2", "latin2", "latin-2":
		enc = charmap.ISO8859_2
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return transform.NewReader(bufio.NewReader(r), enc.NewDecoder()), nil
}

// extractHeaders merges one or more header rows.
//
// MULTI-LINE HEADER HANDLING:
//
//	Row 1: "Kwota", "",    "Data"
//	Row 2: "netto", "VAT", ""
//	Result: "Kwota netto", "VAT", "Data"
//
// Empty headers stay empty so that the mapper skips them.
func extractHeaders(headerRows [][]string) []string {
	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}
	return headers
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// DELIMITER DETECTION
// =============================================================================

// candidateDelimiters are tried in order by SniffDelimiter.
var candidateDelimiters = []byte{';', ',', '\t', '|'}

// SniffDelimiter guesses the delimiter from the first line of sample. The
// candidate occurring most often wins; ties go to the earlier candidate and
// a line without any candidate yields ";".
func SniffDelimiter(sample []byte) string {
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}
	best, bestCount := byte(';'), 0
	for _, d := range candidateDelimiters {
		if n := bytes.Count(sample, []byte{d}); n > bestCount {
			best, bestCount = d, n
		}
	}
	return string([]byte{best})
}
