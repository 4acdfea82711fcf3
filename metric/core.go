package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains every RecordManager component's Prometheus metrics (§4.L).
type Metrics struct {
	// Update Buffer (A)
	BufferPendingDocs  prometheus.Gauge
	BufferPendingBytes prometheus.Gauge
	BufferFlushesTotal prometheus.Counter

	// Solr Client (B)
	SolrRequestsTotal   *prometheus.CounterVec
	SolrRetriesTotal    prometheus.Counter
	SolrRequestDuration prometheus.Histogram

	// Cluster Monitor (C)
	ClusterState          prometheus.Gauge
	ClusterProbeDuration  prometheus.Histogram

	// Merge Engine (G)
	MergeGroupsTotal *prometheus.CounterVec

	// Indexing Coordinator (I)
	RecordsProcessedTotal prometheus.Counter
	CommitTotal           prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all RecordManager metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		BufferPendingDocs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recordmanager",
			Subsystem: "buffer",
			Name:      "pending_docs",
			Help:      "Documents currently buffered, not yet flushed to Solr",
		}),
		BufferPendingBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recordmanager",
			Subsystem: "buffer",
			Name:      "pending_bytes",
			Help:      "Serialized size in bytes of the currently buffered documents",
		}),
		BufferFlushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recordmanager",
			Subsystem: "buffer",
			Name:      "flushes_total",
			Help:      "Total number of buffer flushes sent to Solr",
		}),

		SolrRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recordmanager",
				Subsystem: "solr",
				Name:      "requests_total",
				Help:      "Total Solr HTTP requests by outcome status",
			},
			[]string{"status"},
		),
		SolrRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recordmanager",
			Subsystem: "solr",
			Name:      "retries_total",
			Help:      "Total Solr request retry attempts",
		}),
		SolrRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recordmanager",
			Subsystem: "solr",
			Name:      "request_duration_seconds",
			Help:      "Solr HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		ClusterState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recordmanager",
			Subsystem: "cluster",
			Name:      "state",
			Help:      "Cluster state classification (0=ok, 1=degraded, 2=error)",
		}),
		ClusterProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recordmanager",
			Subsystem: "cluster",
			Name:      "probe_duration_seconds",
			Help:      "Cluster state probe duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		MergeGroupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recordmanager",
				Subsystem: "merge",
				Name:      "groups_total",
				Help:      "Total dedup groups processed by merge outcome",
			},
			[]string{"outcome"},
		),

		RecordsProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recordmanager",
			Subsystem: "coordinator",
			Name:      "records_processed_total",
			Help:      "Total records indexed across both streams",
		}),
		CommitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recordmanager",
			Subsystem: "coordinator",
			Name:      "commit_total",
			Help:      "Total Solr commits issued",
		}),
	}
}

// RecordBufferState updates the buffer's pending docs/bytes gauges.
func (m *Metrics) RecordBufferState(docs, bytes int) {
	m.BufferPendingDocs.Set(float64(docs))
	m.BufferPendingBytes.Set(float64(bytes))
}

// RecordBufferFlush increments the buffer flush counter.
func (m *Metrics) RecordBufferFlush() {
	m.BufferFlushesTotal.Inc()
}

// RecordSolrRequest records a completed Solr HTTP request.
func (m *Metrics) RecordSolrRequest(status string, duration time.Duration, retries int) {
	m.SolrRequestsTotal.WithLabelValues(status).Inc()
	m.SolrRequestDuration.Observe(duration.Seconds())
	if retries > 0 {
		m.SolrRetriesTotal.Add(float64(retries))
	}
}

// RecordClusterState records the latest cluster classification (0/1/2) and
// probe duration.
func (m *Metrics) RecordClusterState(state int, duration time.Duration) {
	m.ClusterState.Set(float64(state))
	m.ClusterProbeDuration.Observe(duration.Seconds())
}

// RecordMergeOutcome increments the merge-outcome counter ("single",
// "merged", or "deleted").
func (m *Metrics) RecordMergeOutcome(outcome string) {
	m.MergeGroupsTotal.WithLabelValues(outcome).Inc()
}

// RecordIndexed increments the records-processed counter by n.
func (m *Metrics) RecordIndexed(n int) {
	m.RecordsProcessedTotal.Add(float64(n))
}

// RecordCommit increments the commit counter.
func (m *Metrics) RecordCommit() {
	m.CommitTotal.Inc()
}
