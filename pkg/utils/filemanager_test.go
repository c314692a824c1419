package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	require.NoError(t, os.MkdirAll(fm.InputDir, 0755))
	require.NoError(t, os.MkdirAll(fm.OutputDir, 0755))
	return fm
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	touch(t, filepath.Join(fm.InputDir, "b.xlsx"), "")
	touch(t, filepath.Join(fm.InputDir, "a.csv"), "")
	touch(t, filepath.Join(fm.InputDir, "notes.txt"), "")
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "dir.csv"), 0755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a.csv"),
		filepath.Join(fm.InputDir, "b.xlsx"),
	}, files)

	files, err = fm.DiscoverInputFiles("*.txt", "*.txt")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = fm.DiscoverInputFiles("[")
	assert.Error(t, err)
}

func TestArchive(t *testing.T) {
	fm := newTestManager(t)
	input := filepath.Join(fm.InputDir, "optima.csv")
	output := filepath.Join(fm.OutputDir, "sales.xml")
	touch(t, input, "a;b\n")
	touch(t, output, "<Root/>")

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "optima.csv"), archived)
	assert.NoFileExists(t, input)
	assert.FileExists(t, archived)

	archived, err = fm.ArchiveOutputFile(output)
	require.NoError(t, err)
	assert.FileExists(t, output)
	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Equal(t, "<Root/>", string(data))
}

func TestArchive_TimestampSubdirs(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true
	input := filepath.Join(fm.InputDir, "x.csv")
	touch(t, input, "")

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	now := time.Now()
	assert.Contains(t, archived, filepath.Join(now.Format("2006"), now.Format("01")))
}

func TestArchive_Disabled(t *testing.T) {
	fm := newTestManager(t)
	fm.ArchiveOnSuccess = false
	input := filepath.Join(fm.InputDir, "x.csv")
	touch(t, input, "")

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.Equal(t, input, archived)
	assert.FileExists(t, input)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{subtype}_{source}_{uuid}.xml", map[string]string{
		"subtype": "sales",
		"source":  "optima/sprzedaz",
	})
	assert.Regexp(t, regexp.MustCompile(`^sales_optima_sprzedaz_[0-9a-f-]{36}\.xml$`), name)

	name = GenerateOutputFileName("{timestamp}", nil)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}\.xml$`), name)

	assert.NotEqual(t,
		GenerateOutputFileName("{uuid}", nil),
		GenerateOutputFileName("{uuid}", nil))
}

func TestSourceAndReportNames(t *testing.T) {
	assert.Equal(t, "optima_2026_01", SourceName("/in/optima_2026_01.csv"))
	assert.Equal(t, "sales_1_issues.txt", ReportFileName("/out/sales_1.xml"))
}

func TestWriteIssueReport(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteIssueReport(nil, dir, "none.txt")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.NoFileExists(t, filepath.Join(dir, "none.txt"))

	issues := []types.Issue{
		{Severity: types.SeverityInfo, Stage: types.StageMap, Message: "auto-mapped 3 column(s)"},
		types.RowIssue(types.SeverityError, types.StageValidate, 4, "NrKontrahenta", "invalid NIP checksum"),
	}
	path, err = WriteIssueReport(issues, dir, "sales_issues.txt")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Errors: 1  Warnings: 0  Info: 1")
	assert.Contains(t, text, "Issue #2\n  Severity:  error\n  Stage:     validate\n  Row:       4\n  Field:     NrKontrahenta\n  Message:   invalid NIP checksum\n")
	assert.Contains(t, text, "End of Issue Report")
}

func TestWriteSummaryLog(t *testing.T) {
	start := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)
	summary := ProcessingSummary{
		RunID:           "run-1",
		StartTime:       start,
		EndTime:         start.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalRows:       10,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "a.csv", OutputFile: "a.xml", Rows: 10}},
		FailedFilesList: []FailedFileInfo{{InputFile: "b.csv", ErrorMessage: "sheet has no data rows"}},
	}

	path, err := WriteSummaryLog(summary, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "processing_summary_20260115_143000.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Run ID:         run-1")
	assert.Contains(t, text, "Duration:       2s")
	assert.Contains(t, text, "File:   b.csv")
	assert.Contains(t, text, "Error:  sheet has no data rows")
}
