package converter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/jpk-mapper/internal/config"
	"github.com/ginjaninja78/jpk-mapper/internal/metrics"
	"github.com/ginjaninja78/jpk-mapper/internal/profile"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

const salesCSV = "Lp.;NIP;Nabywca;Nr faktury;Data wystawienia;Netto 23%;VAT 23%\n" +
	"1;526-104-08-28;ACME Sp. z o.o.;FV/1/2026;15.01.2026;1 000,00;230,00\n" +
	"2;PL 5261040828;Żółw S.A.;FV/2/2026;16.01.2026;100,5;23,12\n"

func testSetup(t *testing.T) (*config.MainConfig, []*config.SourceConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultMainConfig()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "output_archive")
	cfg.OutputNameFormat = "{subtype}_{source}_{uuid}.xml"
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0755))
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0755))

	sources := []*config.SourceConfig{{
		Name:                 "optima",
		System:               "optima",
		DocumentType:         "JPK_V7M",
		DocumentSubtype:      "sales",
		FileMatchingPatterns: []string{"optima_*.csv"},
		CSVSettings:          config.CSVSettings{Delimiter: ";", HeaderRows: 1, Encoding: "UTF-8"},
	}}
	return cfg, sources
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_Success(t *testing.T) {
	cfg, sources := testSetup(t)
	cfg.Archive = true
	m := metrics.New()
	conv := New(cfg, Options{Sources: sources, Metrics: m})

	input := writeInput(t, cfg.InputDir, "optima_2026_01.csv", salesCSV)
	result := conv.Run(input)

	require.True(t, result.Success, "issues: %v", result.Issues)
	assert.NoError(t, result.Error)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "optima", result.Source)
	assert.Equal(t, 2, result.Stats.Rows)
	assert.Equal(t, 0, result.Stats.Errors)
	assert.Equal(t, types.SourceAuto, result.Stats.MappingSource)
	assert.True(t, strings.HasPrefix(filepath.Base(result.OutputFile), "sales_optima_2026_01_"))

	data, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, "<NrKontrahenta>5261040828</NrKontrahenta>")
	assert.Contains(t, doc, "<DataWystawienia>2026-01-15</DataWystawienia>")
	assert.Contains(t, doc, "<K_19>1000.00</K_19>")
	assert.Contains(t, doc, "<K_19>100.50</K_19>")
	assert.Contains(t, doc, "<NazwaKontrahenta>Żółw S.A.</NazwaKontrahenta>")
	assert.Contains(t, doc, `<Record n="2">`)

	// Info issues always produce a report next to the document.
	assert.FileExists(t, result.ReportFile)
	assert.True(t, strings.HasSuffix(result.ReportFile, "_issues.txt"))

	assert.NoFileExists(t, input)
	assert.FileExists(t, filepath.Join(cfg.InputArchiveDir, "optima_2026_01.csv"))
	assert.FileExists(t, filepath.Join(cfg.OutputArchiveDir, filepath.Base(result.OutputFile)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesTotal.WithLabelValues("sales", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsTotal.WithLabelValues("sales")))
}

func TestRun_ValidationErrorsWriteNoDocument(t *testing.T) {
	cfg, sources := testSetup(t)
	cfg.Archive = true
	conv := New(cfg, Options{Sources: sources})

	content := "NIP;Nabywca;Nr faktury;Data wystawienia\n" +
		"5261040829;ACME;FV/1;2026-01-15\n"
	input := writeInput(t, cfg.InputDir, "optima_bad.csv", content)
	result := conv.Run(input)

	assert.False(t, result.Success)
	assert.Error(t, result.Error)
	assert.Empty(t, result.OutputFile)
	assert.Greater(t, result.Stats.Errors, 0)
	assert.Equal(t, "optima_bad_issues.txt", filepath.Base(result.ReportFile))
	assert.FileExists(t, input)

	report, err := os.ReadFile(result.ReportFile)
	require.NoError(t, err)
	assert.Contains(t, string(report), "NrKontrahenta")
}

func TestRun_Profile(t *testing.T) {
	cfg, sources := testSetup(t)
	sources[0].CSVSettings.NoHeader = true
	sources[0].CSVSettings.HeaderRows = 0

	profiles, err := profile.NewRegistry(profile.Profile{
		Name:            "optima-sales",
		System:          "optima",
		DocumentType:    "JPK_V7M",
		DocumentSubtype: "sales",
		Columns:         map[int]string{0: "DowodSprzedazy", 1: "NazwaKontrahenta", 2: "DataWystawienia"},
	})
	require.NoError(t, err)
	conv := New(cfg, Options{Sources: sources, Profiles: profiles})

	input := writeInput(t, cfg.InputDir, "optima_noheader.csv", "FV/9;ACME;2026-01-20\n")
	result := conv.Run(input)

	require.True(t, result.Success, "issues: %v", result.Issues)
	assert.Equal(t, types.SourceProfile, result.Stats.MappingSource)
	assert.Equal(t, "optima-sales", result.Stats.ProfileName)
}

func TestRun_Failures(t *testing.T) {
	cfg, sources := testSetup(t)
	m := metrics.New()
	conv := New(cfg, Options{Sources: sources, Metrics: m})

	t.Run("no source", func(t *testing.T) {
		result := conv.Run(writeInput(t, cfg.InputDir, "other.csv", salesCSV))
		assert.False(t, result.Success)
		assert.ErrorContains(t, result.Error, "no source configuration")
		require.Len(t, result.Issues, 1)
		assert.Equal(t, types.StageParse, result.Issues[0].Stage)
		assert.FileExists(t, filepath.Join(cfg.OutputDir, "other_issues.txt"))
	})

	t.Run("empty file", func(t *testing.T) {
		result := conv.Run(writeInput(t, cfg.InputDir, "optima_empty.csv", ""))
		assert.False(t, result.Success)
		assert.ErrorContains(t, result.Error, "failed to read input")
	})

	t.Run("header only", func(t *testing.T) {
		result := conv.Run(writeInput(t, cfg.InputDir, "optima_header.csv", "NIP;Nabywca\n"))
		assert.False(t, result.Success)
		assert.Equal(t, 0, result.Stats.Rows)
		assert.Contains(t, result.Issues[0].Message, "no data rows")
	})

	t.Run("unknown subtype", func(t *testing.T) {
		other := *sources[0]
		other.DocumentSubtype = "inventory"
		c := New(cfg, Options{Sources: []*config.SourceConfig{&other}})
		result := c.Run(writeInput(t, cfg.InputDir, "optima_inv.csv", salesCSV))
		assert.ErrorContains(t, result.Error, "no catalog")
	})

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.FilesTotal.WithLabelValues("sales", "failed")), 2.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesTotal.WithLabelValues("unknown", "failed")))
}

func TestReadSheet(t *testing.T) {
	_, sources := testSetup(t)
	dir := t.TempDir()

	sheet, err := ReadSheet(writeInput(t, dir, "a.csv", "a;b\n1;2\n"), sources[0])
	require.NoError(t, err)
	assert.Equal(t, "optima", sheet.Metadata[types.MetaSystem])
	assert.Equal(t, "sales", sheet.Metadata[types.MetaDocumentSubtype])
	assert.Equal(t, "a.csv", sheet.Metadata[types.MetaSourceFile])

	_, err = ReadSheet(writeInput(t, dir, "a.pdf", ""), sources[0])
	assert.ErrorContains(t, err, "unsupported input format")
}
