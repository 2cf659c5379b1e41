// Package metrics counts per-stage work in Prometheus collectors and dumps
// them to a node-exporter textfile when the stage ends.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Stage holds the collectors of one stage run
type Stage struct {
	name     string
	registry *prometheus.Registry

	processed prometheus.Counter
	skipped   prometheus.Counter
	duration  prometheus.Histogram

	start time.Time
}

// NewStage registers fresh collectors labelled with the stage name
func NewStage(name string) *Stage {
	labels := prometheus.Labels{"stage": name}
	s := &Stage{
		name:     name,
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stage_items_processed_total",
			Help:        "Items a pipeline stage finished.",
			ConstLabels: labels,
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stage_items_skipped_total",
			Help:        "Items a pipeline stage left out.",
			ConstLabels: labels,
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "stage_duration_seconds",
			Help:        "Wall time of a pipeline stage.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 10),
		}),
		start: time.Now(),
	}
	s.registry.MustRegister(s.processed, s.skipped, s.duration)
	return s
}

// Processed adds n finished items
func (s *Stage) Processed(n int) { s.processed.Add(float64(n)) }

// Skipped adds one left-out item
func (s *Stage) Skipped() { s.skipped.Inc() }

// Gatherer exposes the registry
func (s *Stage) Gatherer() prometheus.Gatherer { return s.registry }

// Finish observes the stage duration and, if path is non-empty, writes the
// textfile
func (s *Stage) Finish(path string) error {
	s.duration.Observe(time.Since(s.start).Seconds())
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError("creating metrics directory", err)
	}
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return errors.IOError("writing metrics "+path, err)
	}
	return nil
}
