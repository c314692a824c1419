// =============================================================================
// Accounting Export Mapper - Converter Module
// =============================================================================
//
// This module orchestrates the conversion of a single export file, from
// reading the file to writing the XML document and its issue report.
//
// CONVERSION PIPELINE:
//   1. Find the source configuration matching the file name
//   2. Read the file (CSV or XLSX) into a raw sheet
//   3. Select the catalog of the source document subtype
//   4. Map, transform and validate the sheet (internal/pipeline)
//   5. Generate and write the XML document
//   6. Write the issue report
//   7. Archive the processed files
//
// CONCURRENCY:
//   A Converter only holds read-only state, so one instance can convert
//   several files concurrently.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/jpk-mapper/internal/catalog"
	"github.com/ginjaninja78/jpk-mapper/internal/config"
	"github.com/ginjaninja78/jpk-mapper/internal/csvparser"
	"github.com/ginjaninja78/jpk-mapper/internal/metrics"
	"github.com/ginjaninja78/jpk-mapper/internal/pipeline"
	"github.com/ginjaninja78/jpk-mapper/internal/profile"
	"github.com/ginjaninja78/jpk-mapper/internal/transform"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
	"github.com/ginjaninja78/jpk-mapper/internal/xlsxparser"
	"github.com/ginjaninja78/jpk-mapper/internal/xmlwriter"
	"github.com/ginjaninja78/jpk-mapper/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// ID identifies this conversion in logs.
	ID string

	// FilePath is the path to the input file that was processed.
	FilePath string

	// Source is the name of the matching source configuration.
	Source string

	// OutputFile is the path to the generated XML file.
	// This is empty if processing failed.
	OutputFile string

	// ReportFile is the path to the issue report, empty when there were no
	// issues.
	ReportFile string

	// Success is true when rows were produced and no error issue was raised.
	Success bool

	// Error summarizes why processing failed. Nil on success.
	Error error

	// Issues are all diagnostics of the conversion.
	Issues []types.Issue

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// Rows is the number of records written.
	Rows int

	// Errors and Warnings count issues by severity.
	Errors   int
	Warnings int

	// MappingSource tells how the column mapping was chosen.
	MappingSource types.MappingSource

	// ProfileName is set when a profile provided the mapping.
	ProfileName string

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter converts export files according to the loaded configuration.
type Converter struct {
	mainConfig *config.MainConfig
	sources    []*config.SourceConfig
	catalogs   *catalog.Registry
	pipeline   *pipeline.Pipeline
	files      *utils.FileManager
	xmlOptions xmlwriter.GenerateOptions
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Options holds the collaborators of a Converter. Logger and Metrics are
// optional.
type Options struct {
	Sources  []*config.SourceConfig
	Catalogs *catalog.Registry
	Profiles *profile.Registry
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	// XML overrides the default document layout.
	XML *xmlwriter.GenerateOptions
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - mainConfig: The main application configuration.
//   - opts: Sources, catalogs, profiles and the ambient logger and metrics.
func New(mainConfig *config.MainConfig, opts Options) *Converter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	catalogs := opts.Catalogs
	if catalogs == nil {
		catalogs = catalog.Builtin()
	}
	xmlOptions := xmlwriter.DefaultGenerateOptions()
	if opts.XML != nil {
		xmlOptions = *opts.XML
	}

	files := utils.NewFileManager(
		mainConfig.InputDir,
		mainConfig.OutputDir,
		mainConfig.InputArchiveDir,
		mainConfig.OutputArchiveDir,
	)
	files.ArchiveOnSuccess = mainConfig.Archive

	return &Converter{
		mainConfig: mainConfig,
		sources:    opts.Sources,
		catalogs:   catalogs,
		pipeline:   pipeline.New(opts.Profiles),
		files:      files,
		xmlOptions: xmlOptions,
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// Files returns the file manager shared by all conversions.
func (c *Converter) Files() *utils.FileManager {
	return c.files
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for one file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing.
//
// Failures before the pipeline (no matching source, unreadable file, no
// catalog) become a single error issue, so every failed file still gets an
// issue report.
func (c *Converter) Run(filePath string) (result Result) {
	startTime := time.Now()
	result = Result{
		ID:       uuid.NewString(),
		FilePath: filePath,
	}
	logger := c.logger.With(
		zap.String("conversion_id", result.ID),
		zap.String("file", filepath.Base(filePath)),
	)
	logger.Info("processing file")

	subtype := "unknown"
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	// =========================================================================
	// STEP 1: FIND SOURCE
	// =========================================================================

	source, ok := config.FindSource(c.sources, filePath)
	if !ok {
		c.fail(&result, logger, subtype, startTime, types.StageParse,
			fmt.Sprintf("no source configuration matches file name %s", filepath.Base(filePath)))
		return result
	}
	result.Source = source.Name
	subtype = source.DocumentSubtype
	logger = logger.With(zap.String("source", source.Name), zap.String("subtype", subtype))

	// =========================================================================
	// STEP 2: READ INPUT
	// =========================================================================

	sheet, err := ReadSheet(filePath, source)
	if err != nil {
		c.fail(&result, logger, subtype, startTime, types.StageParse,
			fmt.Sprintf("failed to read input: %v", err))
		return result
	}
	logger.Debug("read input", zap.Int("rows", len(sheet.Rows)), zap.Int("columns", sheet.ColumnCount()))

	// =========================================================================
	// STEP 3: SELECT CATALOG
	// =========================================================================

	cat, ok := c.catalogs.Get(subtype)
	if !ok {
		c.fail(&result, logger, subtype, startTime, types.StageMap,
			fmt.Sprintf("no catalog for document subtype '%s'", subtype))
		return result
	}

	// =========================================================================
	// STEP 4: MAP, TRANSFORM, VALIDATE
	// =========================================================================

	run := c.pipeline.Run(sheet, cat, pipeline.Options{
		SkipValidation: c.mainConfig.SkipValidation,
		Transform: transform.Options{
			DecimalPlaces:    c.mainConfig.DecimalPlaces,
			AllowFutureDates: c.mainConfig.AllowFutureDates,
		},
	})

	result.Issues = run.Issues
	result.Stats.Rows = len(run.Rows)
	result.Stats.Errors = run.Count(types.SeverityError)
	result.Stats.Warnings = run.Count(types.SeverityWarning)
	result.Stats.MappingSource = run.MappingSource
	result.Stats.ProfileName = run.ProfileName
	result.Success = len(run.Rows) > 0 && !run.HasErrors()

	logger.Debug("mapping selected",
		zap.String("mapping_source", string(run.MappingSource)),
		zap.String("profile", run.ProfileName),
		zap.Int("mapped_columns", len(run.Mapping.Mappings)))
	for _, issue := range run.Issues {
		logger.Debug("issue", zap.String("issue", issue.String()))
	}

	// =========================================================================
	// STEP 5: GENERATE AND WRITE XML
	// =========================================================================

	reportName := utils.SourceName(filePath) + "_issues.txt"
	if result.Success {
		outputPath, err := c.writeOutput(run.Rows, cat, source, filePath)
		if err != nil {
			result.Success = false
			result.Issues = append(result.Issues, types.Issue{
				Severity: types.SeverityError,
				Stage:    types.StageTransform,
				Message:  err.Error(),
			})
			result.Stats.Errors++
		} else {
			result.OutputFile = outputPath
			reportName = utils.ReportFileName(outputPath)
		}
	}

	// =========================================================================
	// STEP 6: WRITE ISSUE REPORT
	// =========================================================================

	c.writeReport(&result, logger, reportName)

	if !result.Success {
		result.Error = fmt.Errorf("conversion failed with %d error(s)", result.Stats.Errors)
		logger.Warn("conversion failed",
			zap.Int("rows", result.Stats.Rows),
			zap.Int("errors", result.Stats.Errors),
			zap.Int("warnings", result.Stats.Warnings),
			zap.String("report", result.ReportFile))
		c.metrics.ObserveFile(subtype, false, time.Since(startTime), run)
		return result
	}

	// =========================================================================
	// STEP 7: ARCHIVE FILES
	// =========================================================================

	if c.files.ArchiveOnSuccess {
		if err := c.archiveFiles(filePath, result.OutputFile); err != nil {
			// The document is already written; archiving is best effort.
			logger.Warn("failed to archive files", zap.Error(err))
		}
	}

	logger.Info("file converted",
		zap.String("output", result.OutputFile),
		zap.Int("rows", result.Stats.Rows),
		zap.Int("warnings", result.Stats.Warnings),
		zap.String("mapping_source", string(result.Stats.MappingSource)))
	c.metrics.ObserveFile(subtype, true, time.Since(startTime), run)

	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// ReadSheet reads a CSV or XLSX export with the settings of its source.
// XLSX inputs honour the header row count of the CSV settings.
func ReadSheet(filePath string, source *config.SourceConfig) (*types.RawSheet, error) {
	var sheet *types.RawSheet
	var err error

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv", ".txt":
		sheet, err = csvparser.Parse(filePath, source.CSVSettings)
	case ".xlsx", ".xlsm":
		sheet, err = xlsxparser.ParseSheet(filePath, source.Sheet, source.CSVSettings.HeaderRows)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", filepath.Ext(filePath))
	}
	if err != nil {
		return nil, err
	}

	if sheet.Metadata == nil {
		sheet.Metadata = make(map[string]string)
	}
	for k, v := range source.Metadata() {
		if v != "" {
			sheet.Metadata[k] = v
		}
	}
	return sheet, nil
}

// fail records a failure raised before the pipeline ran.
func (c *Converter) fail(result *Result, logger *zap.Logger, subtype string, startTime time.Time, stage types.Stage, msg string) {
	issue := types.Issue{Severity: types.SeverityError, Stage: stage, Message: msg}
	result.Issues = append(result.Issues, issue)
	result.Stats.Errors++
	result.Error = errors.New(msg)

	c.writeReport(result, logger, utils.SourceName(result.FilePath)+"_issues.txt")

	logger.Warn("conversion failed", zap.String("reason", msg), zap.String("report", result.ReportFile))
	c.metrics.ObserveFile(subtype, false, time.Since(startTime), nil)
	c.metrics.ObserveIssues(result.Issues)
}

// writeReport writes the issue report, logging instead of failing on I/O
// errors.
func (c *Converter) writeReport(result *Result, logger *zap.Logger, name string) {
	reportPath, err := utils.WriteIssueReport(result.Issues, c.mainConfig.OutputDir, name)
	if err != nil {
		logger.Error("failed to write issue report", zap.Error(err))
		return
	}
	result.ReportFile = reportPath
}

// writeOutput generates the XML document and writes it to the output
// directory.
func (c *Converter) writeOutput(rows []types.TransformedRow, cat *types.Catalog, source *config.SourceConfig, filePath string) (string, error) {
	doc, err := xmlwriter.GenerateWithOptions(rows, cat, c.xmlOptions)
	if err != nil {
		return "", fmt.Errorf("failed to generate XML: %w", err)
	}

	fileName := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, map[string]string{
		"subtype": source.DocumentSubtype,
		"source":  utils.SourceName(filePath),
	})
	outputPath := filepath.Join(c.mainConfig.OutputDir, fileName)

	if err := os.WriteFile(outputPath, doc, 0644); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return outputPath, nil
}

// archiveFiles moves the input to the input archive and copies the
// document to the output archive.
func (c *Converter) archiveFiles(inputPath, outputPath string) error {
	if _, err := c.files.ArchiveInputFile(inputPath); err != nil {
		return fmt.Errorf("failed to archive input file: %w", err)
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		return fmt.Errorf("failed to archive output file: %w", err)
	}
	return nil
}
