// Package metrics exposes Prometheus counters for replication and sync
// cycles. cbtctl is a batch tool, so metrics are written to a textfile for
// node_exporter's textfile collector instead of being served over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cbtkit"

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ReplicatedBytes   prometheus.Counter
	ReplicatedChunks  prometheus.Counter
	ReplicatedRegions prometheus.Counter
	ShortReads        prometheus.Counter
	SyncCycles        *prometheus.CounterVec
	LastSyncTimestamp prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ReplicatedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replicated_bytes_total",
			Help:      "Total bytes copied from source to target image",
		}),
		ReplicatedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replicated_chunks_total",
			Help:      "Total chunk-sized read/write pairs issued",
		}),
		ReplicatedRegions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replicated_regions_total",
			Help:      "Total consolidated regions copied to completion",
		}),
		ShortReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "short_reads_total",
			Help:      "Total reads that returned fewer bytes than requested",
		}),
		SyncCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Total sync cycles by result",
		}, []string{"result"}),
		LastSyncTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last fully successful sync cycle",
		}),
	}
	m.registry.MustRegister(
		m.ReplicatedBytes,
		m.ReplicatedChunks,
		m.ReplicatedRegions,
		m.ShortReads,
		m.SyncCycles,
		m.LastSyncTimestamp,
	)
	return m
}

// Registry returns the registry holding m's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ChunkCopied records one chunk of n bytes.
func (m *Metrics) ChunkCopied(n int) {
	if m == nil {
		return
	}
	m.ReplicatedChunks.Inc()
	m.ReplicatedBytes.Add(float64(n))
}

// RegionCopied records a completed region.
func (m *Metrics) RegionCopied() {
	if m == nil {
		return
	}
	m.ReplicatedRegions.Inc()
}

// ShortRead records a short read.
func (m *Metrics) ShortRead() {
	if m == nil {
		return
	}
	m.ShortReads.Inc()
}

// Cycle results.
const (
	ResultSuccess    = "success"
	ResultUnresolved = "unresolved"
	ResultQueryError = "query_error"
	ResultCopyError  = "copy_error"
)

// CycleFinished records a sync cycle outcome. unixTime is only stored for
// ResultSuccess.
func (m *Metrics) CycleFinished(result string, unixTime float64) {
	if m == nil {
		return
	}
	m.SyncCycles.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		m.LastSyncTimestamp.Set(unixTime)
	}
}

// WriteTextfile writes the current values in text exposition format to path.
// A nil receiver or empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
