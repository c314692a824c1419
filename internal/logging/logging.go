// Package logging builds the zap loggers used by the CLI and the converter.
package logging

import (
	"strings"

	"go.uber.org/zap"
)

// Config holds logging configuration.
type Config struct {
	Level       string            `yaml:"level"`
	Format      string            `yaml:"format"` // "json" or "console"
	OutputPath  string            `yaml:"output_path"`
	Fields      map[string]string `yaml:"fields"`
	Development bool              `yaml:"development"`
}

// New creates a logger writing to stderr and, when OutputPath is set, to
// that file as well. An unknown level falls back to info.
func New(config Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(strings.ToLower(config.Level))
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if strings.EqualFold(config.Format, "json") {
		zapConfig.Encoding = "json"
	} else {
		zapConfig.Encoding = "console"
	}

	zapConfig.OutputPaths = []string{"stderr"}
	if config.OutputPath != "" {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, config.OutputPath)
	}

	if len(config.Fields) > 0 {
		zapConfig.InitialFields = make(map[string]interface{}, len(config.Fields))
		for k, v := range config.Fields {
			zapConfig.InitialFields[k] = v
		}
	}

	return zapConfig.Build()
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
