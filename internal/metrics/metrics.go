// Package metrics keeps maintenance counters in a Prometheus registry and can
// export them to a node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what the maintenance job reports to.
type Recorder interface {
	RecordRun(success bool)
	RecordPruned(kind string, count int64)
	RecordBackupBytes(size int64)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	pruned      *prometheus.CounterVec
	backupBytes prometheus.Gauge
	lastRun     prometheus.Gauge
}

// NewCollector registers the maintenance metrics on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffledger_maintenance_runs_total",
			Help: "Maintenance runs by outcome.",
		}, []string{"outcome"}),
		pruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffledger_pruned_rows_total",
			Help: "Rows removed by retention pruning.",
		}, []string{"kind"}),
		backupBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "staffledger_last_backup_bytes",
			Help: "Size of the most recent backup file.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "staffledger_last_maintenance_timestamp_seconds",
			Help: "Unix time of the most recent maintenance run.",
		}),
	}
	c.registry.MustRegister(c.runs, c.pruned, c.backupBytes, c.lastRun)
	return c
}

func (c *Collector) RecordRun(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.runs.WithLabelValues(outcome).Inc()
	c.lastRun.SetToCurrentTime()
}

func (c *Collector) RecordPruned(kind string, count int64) {
	c.pruned.WithLabelValues(kind).Add(float64(count))
}

func (c *Collector) RecordBackupBytes(size int64) {
	c.backupBytes.Set(float64(size))
}

// Gatherer exposes the registry for tests and exporters.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile writes the current values in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRun(bool)             {}
func (Nop) RecordPruned(string, int64) {}
func (Nop) RecordBackupBytes(int64)    {}
