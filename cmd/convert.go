// =============================================================================
// Accounting Export Mapper - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which converts every export in the
// input directory.
//
// COMMAND USAGE:
//   jpk-mapper convert [flags]
//
// FLAGS:
//   --file    : Convert only this file
//   --source  : Convert only files matching this source configuration
//
// PROCESSING PIPELINE:
//   1. Load configuration, sources, catalogs and profiles
//   2. Discover CSV and XLSX files in the input directory
//   3. Convert each file concurrently (at most max_concurrency at a time)
//   4. Write the processing summary and, if configured, the metrics file
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/jpk-mapper/internal/config"
	"github.com/ginjaninja78/jpk-mapper/internal/converter"
	"github.com/ginjaninja78/jpk-mapper/internal/metrics"
	"github.com/ginjaninja78/jpk-mapper/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// inputFile restricts the run to one file.
var inputFile string

// sourceName restricts the run to files of one source.
var sourceName string

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:     "convert",
	Aliases: []string{"process"},
	Short:   "Convert exports in the input directory to XML",
	Long: `The convert command scans the input directory for CSV and XLSX exports,
matches each to a source configuration and converts it to XML records.

Files are converted concurrently. Errors in one file do not affect the others.

On success:
  - The XML document is placed in the output directory
  - An issue report lists warnings and informational notes
  - With archive enabled, the input is moved to the input archive

On error:
  - No document is written
  - The issue report explains what went wrong
  - The input remains in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert()
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&inputFile, "file", "", "Convert only this file")
	convertCmd.Flags().StringVar(&sourceName, "source", "", "Convert only files matching this source configuration")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert() error {
	env, err := loadEnvironment(false)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	runID := uuid.NewString()
	logger := env.logger.With(zap.String("run_id", runID))
	m := metrics.New()

	conv := converter.New(env.config, converter.Options{
		Sources:  env.sources,
		Catalogs: env.catalogs,
		Profiles: env.profiles,
		Logger:   logger,
		Metrics:  m,
	})

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	inputFiles, err := selectInputFiles(conv.Files(), env.sources)
	if err != nil {
		return err
	}
	if len(inputFiles) == 0 {
		logger.Info("no input files found", zap.String("input_dir", env.config.InputDir))
		return nil
	}
	logger.Info("starting conversion", zap.Int("files", len(inputFiles)))

	// =========================================================================
	// STEP 2: CONVERT FILES CONCURRENTLY
	// =========================================================================
	// One goroutine per file, at most max_concurrency at once. Converter.Run
	// reports failures in its Result, so the group never sees an error.

	summary := utils.ProcessingSummary{
		RunID:      runID,
		StartTime:  time.Now(),
		TotalFiles: len(inputFiles),
	}

	var group errgroup.Group
	group.SetLimit(env.config.MaxConcurrency)
	results := make(chan converter.Result, len(inputFiles))

	go func() {
		for _, file := range inputFiles {
			file := file
			group.Go(func() error {
				results <- conv.Run(file)
				return nil
			})
		}
		group.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 3: COLLECT RESULTS
	// =========================================================================

	for result := range results {
		summary.TotalRows += result.Stats.Rows
		summary.ErrorIssues += result.Stats.Errors
		summary.WarningIssues += result.Stats.Warnings

		if result.Success {
			summary.SuccessfulFiles++
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				OutputFile:  result.OutputFile,
				ReportFile:  result.ReportFile,
				Rows:        result.Stats.Rows,
				ProcessTime: result.Stats.ProcessingTime,
			})
			fmt.Printf("  ✓ %s -> %s\n", filepath.Base(result.FilePath), filepath.Base(result.OutputFile))
		} else {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ReportFile:   result.ReportFile,
				ErrorMessage: fmt.Sprintf("%v", result.Error),
			})
			fmt.Printf("  ✗ %s: %v\n", filepath.Base(result.FilePath), result.Error)
		}
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 4: SUMMARY AND METRICS
	// =========================================================================

	summaryPath, err := utils.WriteSummaryLog(summary, env.config.OutputDir)
	if err != nil {
		logger.Error("failed to write summary", zap.Error(err))
	}

	if env.config.MetricsFile != "" {
		if err := m.WriteToFile(env.config.MetricsFile); err != nil {
			logger.Error("failed to write metrics", zap.Error(err))
		}
	}

	logger.Info("conversion complete",
		zap.Int("files", summary.TotalFiles),
		zap.Int("successful", summary.SuccessfulFiles),
		zap.Int("failed", summary.FailedFiles),
		zap.Int("rows", summary.TotalRows),
		zap.String("summary", summaryPath),
		zap.Duration("elapsed", summary.EndTime.Sub(summary.StartTime)))

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed, see the issue reports in %s",
			summary.FailedFiles, summary.TotalFiles, env.config.OutputDir)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// selectInputFiles applies the --file and --source flags.
func selectInputFiles(files *utils.FileManager, sources []*config.SourceConfig) ([]string, error) {
	if inputFile != "" {
		return []string{inputFile}, nil
	}

	if sourceName == "" {
		inputFiles, err := files.DiscoverInputFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to discover input files: %w", err)
		}
		return inputFiles, nil
	}

	for _, source := range sources {
		if source.Name == sourceName {
			inputFiles, err := files.DiscoverInputFiles(source.FileMatchingPatterns...)
			if err != nil {
				return nil, fmt.Errorf("failed to discover input files: %w", err)
			}
			return inputFiles, nil
		}
	}
	return nil, fmt.Errorf("unknown source %q", sourceName)
}
