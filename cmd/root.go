// =============================================================================
// Accounting Export Mapper - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI and the environment
// shared by all subcommands.
//
// COBRA CLI STRUCTURE:
//   rootCmd (jpk-mapper)
//   ├── convertCmd        (jpk-mapper convert)
//   ├── mapCmd            (jpk-mapper map FILE)
//   ├── schemaCmd         (jpk-mapper schema SUBTYPE)
//   ├── validateConfigCmd (jpk-mapper validate-config)
//   └── versionCmd        (jpk-mapper version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/jpk-mapper/internal/catalog"
	"github.com/ginjaninja78/jpk-mapper/internal/config"
	"github.com/ginjaninja78/jpk-mapper/internal/logging"
	"github.com/ginjaninja78/jpk-mapper/internal/profile"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "jpk-mapper",
	Short: "Accounting Export Mapper - Turn accounting exports into JPK records",
	Long: `jpk-mapper reads CSV and XLSX exports of accounting systems, maps their
columns onto a target field catalog, canonicalizes the values and writes
validated XML records with a detailed issue report.

Key Features:
  - Header, synonym and value-based automatic column mapping
  - Column layout profiles per source system and document type
  - Canonical dates, amounts, NIP numbers and country codes
  - Concurrent processing of the input directory
  - Automatic file archival on successful processing

Example Usage:
  jpk-mapper convert                     # Convert all files in the input directory
  jpk-mapper convert --config ./my.yaml  # Use a custom configuration file
  jpk-mapper map export.csv -s sales     # Show how a file would be mapped
  jpk-mapper validate-config             # Check configuration without converting`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED ENVIRONMENT
// =============================================================================

// environment is everything a command needs from the configuration.
type environment struct {
	config   *config.MainConfig
	sources  []*config.SourceConfig
	catalogs *catalog.Registry
	profiles *profile.Registry
	logger   *zap.Logger
}

// loadEnvironment loads the main configuration, the source configurations,
// the catalogs and the profiles, in that order. When optional is set, a
// missing configuration file falls back to the defaults.
func loadEnvironment(optional bool) (*environment, error) {
	var mainConfig *config.MainConfig
	if _, err := os.Stat(cfgFile); optional && os.IsNotExist(err) {
		mainConfig = config.DefaultMainConfig()
	} else {
		mainConfig, err = config.LoadMainConfig(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load main config: %w", err)
		}
	}

	logger, err := newLogger(mainConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	sources, err := config.LoadSourceConfigs(mainConfig.SourcesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load source configs: %w", err)
	}

	catalogs := catalog.Builtin()
	if mainConfig.CatalogsFile != "" {
		loaded, err := config.LoadCatalogs(mainConfig.CatalogsFile)
		if err != nil {
			return nil, err
		}
		catalogs = catalog.NewRegistry(loaded)
	}

	var profiles *profile.Registry
	if mainConfig.ProfilesFile != "" {
		loaded, err := config.LoadProfiles(mainConfig.ProfilesFile, catalogs.Catalogs())
		if err != nil {
			return nil, err
		}
		profiles, err = profile.NewRegistry(loaded...)
		if err != nil {
			return nil, fmt.Errorf("invalid profiles in %s: %w", mainConfig.ProfilesFile, err)
		}
	}

	logger.Debug("configuration loaded",
		zap.String("config", cfgFile),
		zap.Int("sources", len(sources)),
		zap.Strings("catalogs", catalogs.Subtypes()),
		zap.Int("profiles", profiles.Len()))

	return &environment{
		config:   mainConfig,
		sources:  sources,
		catalogs: catalogs,
		profiles: profiles,
		logger:   logger,
	}, nil
}

// newLogger builds the logger from the configuration; --verbose forces
// debug level.
func newLogger(mainConfig *config.MainConfig) (*zap.Logger, error) {
	level := mainConfig.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:       level,
		Format:      mainConfig.LogFormat,
		OutputPath:  mainConfig.LogFile,
		Development: verbose,
	})
}
