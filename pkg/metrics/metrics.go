package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Convergence metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acng_converge_runs_total",
			Help: "Total number of convergence runs by recipe and result",
		},
		[]string{"recipe", "result"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "acng_converge_duration_seconds",
			Help:    "Convergence run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "acng_converge_last_run_timestamp_seconds",
			Help: "Unix time the last convergence run finished",
		},
	)

	// Resource metrics
	ResourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acng_resources_total",
			Help: "Total number of converged resources by type, action and status",
		},
		[]string{"type", "action", "status"},
	)

	ResourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acng_resource_duration_seconds",
			Help:    "Time taken to converge a resource in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// Storage metrics
	VolumesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "acng_volumes_total",
			Help: "Total number of volumes known to this host",
		},
	)

	BackupSnapshots = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acng_backup_snapshots",
			Help: "Number of snapshots kept per backup lineage",
		},
		[]string{"lineage"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(ResourcesTotal)
	prometheus.MustRegister(ResourceDuration)
	prometheus.MustRegister(VolumesTotal)
	prometheus.MustRegister(BackupSnapshots)
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// collector format. The write is atomic.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
