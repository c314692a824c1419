// Package metrics collects per-run conversion counters and writes them in the
// Prometheus text format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// Metrics holds the collectors of one process. Each instance owns its
// registry so that tests and concurrent runs do not share state.
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal     *prometheus.CounterVec
	RowsTotal      *prometheus.CounterVec
	IssuesTotal    *prometheus.CounterVec
	FileDuration   *prometheus.HistogramVec
	MappingSources *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jpk_mapper_files_total",
				Help: "Total number of processed input files",
			},
			[]string{"subtype", "status"},
		),

		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jpk_mapper_rows_total",
				Help: "Total number of transformed rows",
			},
			[]string{"subtype"},
		),

		IssuesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jpk_mapper_issues_total",
				Help: "Total number of reported issues",
			},
			[]string{"severity", "stage"},
		),

		FileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jpk_mapper_file_duration_seconds",
				Help:    "Time taken to convert one input file",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"subtype"},
		),

		MappingSources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jpk_mapper_mapping_source_total",
				Help: "Number of runs per mapping selection rule",
			},
			[]string{"source"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFile records one converted file. A nil receiver is a no-op.
func (m *Metrics) ObserveFile(subtype string, success bool, duration time.Duration, result *types.Result) {
	if m == nil {
		return
	}

	status := "success"
	if !success {
		status = "failed"
	}
	m.FilesTotal.WithLabelValues(subtype, status).Inc()
	m.FileDuration.WithLabelValues(subtype).Observe(duration.Seconds())

	if result == nil {
		return
	}
	m.RowsTotal.WithLabelValues(subtype).Add(float64(len(result.Rows)))
	if result.MappingSource != "" {
		m.MappingSources.WithLabelValues(string(result.MappingSource)).Inc()
	}
	for _, issue := range result.Issues {
		m.IssuesTotal.WithLabelValues(string(issue.Severity), string(issue.Stage)).Inc()
	}
}

// ObserveIssues counts issues raised outside a pipeline run, such as a
// reader failure.
func (m *Metrics) ObserveIssues(issues []types.Issue) {
	if m == nil {
		return
	}
	for _, issue := range issues {
		m.IssuesTotal.WithLabelValues(string(issue.Severity), string(issue.Stage)).Inc()
	}
}

// WriteToFile writes the current values in the text exposition format.
func (m *Metrics) WriteToFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
