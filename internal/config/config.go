// =============================================================================
// Accounting Export Mapper - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the per-source
// configurations.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Source Configs (sources/*.yaml): One file per accounting system export,
//      telling which input files it covers, how to read them and which
//      document they describe
//   3. Catalogs (catalogs_file): Target fields per document subtype
//   4. Profiles (profiles_file): Hand-verified column layouts
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for export files to convert.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated XML documents and issue reports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after a successful conversion.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every generated document.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// SourcesDir contains the per-source configuration files.
	// Default: "./sources"
	SourcesDir string `yaml:"sources_dir"`

	// =========================================================================
	// CATALOG AND PROFILE SETTINGS
	// =========================================================================

	// CatalogsFile is a YAML or XLSX file with the target field catalogs.
	// When empty the built-in catalogs are used.
	CatalogsFile string `yaml:"catalogs_file"`

	// ProfilesFile is a YAML file with column layout profiles.
	// When empty no profiles are registered.
	ProfilesFile string `yaml:"profiles_file"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel: "debug", "info", "warn" or "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat: "json" or "console".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// LogFile is an optional log destination in addition to stderr.
	LogFile string `yaml:"log_file"`

	// MetricsFile, when set, receives the run metrics in Prometheus text
	// format after every convert command.
	MetricsFile string `yaml:"metrics_file"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the output file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {subtype}   - Document subtype of the source
	//   {source}    - Input file name without extension
	// Default: "{subtype}_{uuid}.xml"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files converted at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// DecimalPlaces fixes the number of places of decimal fields.
	// Default: 2
	DecimalPlaces int `yaml:"decimal_places"`

	// AllowFutureDates suppresses the future date warning.
	AllowFutureDates bool `yaml:"allow_future_dates"`

	// SkipValidation disables the validation stage.
	SkipValidation bool `yaml:"skip_validation"`

	// Archive moves converted inputs to InputArchiveDir and copies outputs
	// to OutputArchiveDir.
	Archive bool `yaml:"archive"`
}

// =============================================================================
// SOURCE CONFIGURATION STRUCTURE
// =============================================================================

// SourceConfig describes the exports of one accounting system.
type SourceConfig struct {
	// Name is used in logs and error messages.
	Name string `yaml:"name"`

	// System, DocumentType and DocumentSubtype become the sheet metadata and
	// are the key for profile lookup. DocumentSubtype also selects the
	// catalog.
	System          string `yaml:"system"`
	DocumentType    string `yaml:"document_type"`
	DocumentSubtype string `yaml:"document_subtype"`

	// FileMatchingPatterns are glob patterns matched against the input file
	// name. The first source with a matching pattern is used.
	// Examples:
	//   - "optima_sprzedaz_*.csv"
	//   - "*_zakupy.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// CSVSettings is used for .csv inputs.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Sheet is the worksheet read from .xlsx inputs. Empty means the first.
	Sheet string `yaml:"sheet"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter separates fields. Common values: ";", ",", "\t", "|".
	// "auto" guesses it from the first line.
	// Default: ";"
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multi-row headers are merged
	// column by column.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// NoHeader marks files without a header row. Mapping then relies on
	// values or a profile.
	NoHeader bool `yaml:"no_header"`

	// Encoding of the file: "UTF-8", "windows-1250" or "ISO-8859-2".
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// Matches reports whether fileName matches one of the source patterns.
func (s *SourceConfig) Matches(fileName string) bool {
	base := filepath.Base(fileName)
	for _, pattern := range s.FileMatchingPatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// Metadata returns the sheet metadata the source contributes.
func (s *SourceConfig) Metadata() map[string]string {
	return map[string]string{
		types.MetaSystem:          s.System,
		types.MetaDocumentType:    s.DocumentType,
		types.MetaDocumentSubtype: s.DocumentSubtype,
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultMainConfig returns a configuration with every default applied.
func DefaultMainConfig() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.SourcesDir == "" {
		config.SourcesDir = "./sources"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{subtype}_{uuid}.xml"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.DecimalPlaces <= 0 {
		config.DecimalPlaces = 2
	}
}

// validateMainConfig checks option values and creates missing working
// directories.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", config.LogFormat)
	}
	if !strings.Contains(config.OutputNameFormat, "{uuid}") && !strings.Contains(config.OutputNameFormat, "{timestamp}") {
		return fmt.Errorf("output_name_format %q needs {uuid} or {timestamp} to keep names unique", config.OutputNameFormat)
	}

	dirs := []string{config.InputDir, config.OutputDir}
	if config.Archive {
		dirs = append(dirs, config.InputArchiveDir, config.OutputArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LoadSourceConfigs loads all source configurations from a directory, in
// file name order. A missing directory yields no sources.
//
// PARAMETERS:
//   - sourcesDir: The directory containing source configuration files.
//
// RETURNS:
//   - The source configurations.
//   - An error if any file cannot be read or parsed.
func LoadSourceConfigs(sourcesDir string) ([]*SourceConfig, error) {
	if _, err := os.Stat(sourcesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list source configs: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list source configs: %w", err)
	}
	files = append(files, ymlFiles...)

	var sources []*SourceConfig
	for _, file := range files {
		source, err := loadSourceConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if source.Name == "" {
			source.Name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		sources = append(sources, source)
	}

	return sources, nil
}

// loadSourceConfig loads a single source configuration file.
func loadSourceConfig(filePath string) (*SourceConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source SourceConfig
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applySourceConfigDefaults(&source)

	if source.DocumentSubtype == "" {
		return nil, fmt.Errorf("document_subtype is required")
	}
	if len(source.FileMatchingPatterns) == 0 {
		return nil, fmt.Errorf("file_matching_patterns must not be empty")
	}
	for _, pattern := range source.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", pattern, err)
		}
	}

	return &source, nil
}

// applySourceConfigDefaults sets default values for source configuration.
func applySourceConfigDefaults(source *SourceConfig) {
	if source.CSVSettings.Delimiter == "" {
		source.CSVSettings.Delimiter = ";"
	}
	if source.CSVSettings.Encoding == "" {
		source.CSVSettings.Encoding = "UTF-8"
	}
	if source.CSVSettings.NoHeader {
		source.CSVSettings.HeaderRows = 0
	} else if source.CSVSettings.HeaderRows <= 0 {
		source.CSVSettings.HeaderRows = 1
	}
}

// FindSource returns the first source whose patterns match fileName.
func FindSource(sources []*SourceConfig, fileName string) (*SourceConfig, bool) {
	for _, s := range sources {
		if s.Matches(fileName) {
			return s, true
		}
	}
	return nil, false
}
