// Package metrics records per-build counters on a private Prometheus registry
// and exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Build is the outcome of one site build as seen by metrics.
type Build struct {
	Loaded     int
	Skipped    int
	Collisions int
	Removed    int
	Pages      int
	DryRun     bool
	Duration   time.Duration
	Sections   map[string]int
}

// Metrics holds the gauges for the most recent build.
type Metrics struct {
	registry *prometheus.Registry

	RecordsLoaded   prometheus.Gauge
	RecordsSkipped  prometheus.Gauge
	Collisions      prometheus.Gauge
	OrphansRemoved  prometheus.Gauge
	PagesWritten    prometheus.Gauge
	BuildDuration   prometheus.Gauge
	LastBuild       prometheus.Gauge
	SectionLectures *prometheus.GaugeVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RecordsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archive_records_loaded",
			Help: "Lecture records loaded and resolved in the last build",
		}),
		RecordsSkipped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archive_records_skipped",
			Help: "Source files skipped because they could not be read or parsed",
		}),
		Collisions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archive_placement_collisions",
			Help: "Placements claimed by more than one record",
		}),
		OrphansRemoved: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archive_orphans_removed",
			Help: "Detail pages deleted because no record placed them",
		}),
		PagesWritten: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archive_pages_written",
			Help: "Files written by the last build",
		}),
		BuildDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archive_build_duration_seconds",
			Help: "Wall time of the last build",
		}),
		LastBuild: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archive_last_build_timestamp_seconds",
			Help: "Unix time the last non dry-run build finished",
		}),
		SectionLectures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "archive_section_lectures",
			Help: "Lectures rendered per section",
		}, []string{"section"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe stores the outcome of a build.
func (m *Metrics) Observe(b Build, finished time.Time) {
	m.RecordsLoaded.Set(float64(b.Loaded))
	m.RecordsSkipped.Set(float64(b.Skipped))
	m.Collisions.Set(float64(b.Collisions))
	m.OrphansRemoved.Set(float64(b.Removed))
	m.PagesWritten.Set(float64(b.Pages))
	m.BuildDuration.Set(b.Duration.Seconds())
	if !b.DryRun {
		m.LastBuild.Set(float64(finished.Unix()))
	}
	m.SectionLectures.Reset()
	for sec, n := range b.Sections {
		m.SectionLectures.WithLabelValues(sec).Set(float64(n))
	}
}

// WriteTextfile writes the registry to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: ensure dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
