// Package metric provides Prometheus-based metrics collection and an HTTP
// server for RecordManager observability.
//
// The package offers a centralized metrics registry managing both the core
// RecordManager metrics (buffer depth, Solr request outcomes, cluster state,
// merge outcomes, indexing throughput) and ad-hoc component-specific metrics
// registered through the MetricsRegistrar interface. It includes an HTTP
// server exposing metrics in Prometheus format for monitoring integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: RecordManager-level metrics automatically registered (Metrics type)
//  2. Component Registry: Extensible registration for component-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with a health check (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// component concerns (worker pool queue depth, custom gauges) while
// providing a unified metrics endpoint for monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core RecordManager metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordBufferState(120, 48_000)
//	coreMetrics.RecordSolrRequest("ok", 85*time.Millisecond, 0)
//
// The metrics server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at
// http://localhost:9090/health.
//
// # Core Metrics
//
// The package automatically registers metrics tracking:
//
//   - Update Buffer: buffer_pending_docs, buffer_pending_bytes, buffer_flushes_total
//   - Solr Client: solr_requests_total{status}, solr_retries_total, solr_request_duration_seconds
//   - Cluster Monitor: cluster_state (0=ok, 1=degraded, 2=error), cluster_probe_duration_seconds
//   - Merge Engine: merge_groups_total{outcome}
//   - Indexing Coordinator: coordinator_records_processed_total, coordinator_commit_total
//
// Access core metrics through the registry:
//
//	coreMetrics := registry.CoreMetrics()
//
//	// Buffer state
//	coreMetrics.RecordBufferState(docsPending, bytesPending)
//	coreMetrics.RecordBufferFlush()
//
//	// Solr requests
//	coreMetrics.RecordSolrRequest("ok", elapsed, retryCount)
//
//	// Cluster probes
//	coreMetrics.RecordClusterState(0, probeElapsed)
//
//	// Merge outcomes
//	coreMetrics.RecordMergeOutcome("merged")
//
//	// Coordinator throughput
//	coreMetrics.RecordIndexed(len(batch))
//	coreMetrics.RecordCommit()
//
// # Component-Specific Metrics
//
// Components can register custom metrics through the registry:
//
//	// Register a counter
//	requestCounter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "records_indexed_total",
//	    Help: "Total number of records indexed",
//	})
//	err := registry.RegisterCounter("record-stream", "records_indexed_total", requestCounter)
//
//	// Register a gauge
//	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
//	    Name: "queue_depth",
//	    Help: "Number of dedup groups waiting on the overflow queue",
//	})
//	err = registry.RegisterGauge("queue-collection", "queue_depth", queueDepth)
//
//	// Register a histogram
//	mergeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
//	    Name:    "merge_duration_seconds",
//	    Help:    "Time spent merging a dedup group",
//	    Buckets: prometheus.DefBuckets,
//	})
//	err = registry.RegisterHistogram("merge-engine", "merge_duration_seconds", mergeDuration)
//
// # Vector Metrics with Labels
//
// Register metrics with labels for multi-dimensional data:
//
//	// Counter with labels
//	solrRequestsVec := prometheus.NewCounterVec(
//	    prometheus.CounterOpts{
//	        Name: "solr_requests_total",
//	        Help: "Total Solr requests by core and status",
//	    },
//	    []string{"core", "status"},
//	)
//	err := registry.RegisterCounterVec("solr-client", "solr_requests_total", solrRequestsVec)
//
//	// Use the metric with specific label values
//	solrRequestsVec.WithLabelValues("biblio", "ok").Inc()
//	solrRequestsVec.WithLabelValues("biblio", "error").Inc()
//
// # HTTP Server
//
// The metrics server provides three endpoints:
//
//   - GET / - HTML page with links to metrics and health endpoints
//   - GET /metrics - Prometheus-formatted metrics (default path, configurable)
//   - GET /health - plain-text health check response
//
// Server configuration:
//
//	// Default configuration (port 9090, path /metrics)
//	server := metric.NewServer(0, "", registry)
//
//	// Custom configuration
//	server := metric.NewServer(8080, "/prometheus", registry)
//
//	// Start server (blocking)
//	if err := server.Start(); err != nil {
//	    log.Fatalf("Failed to start metrics server: %v", err)
//	}
//
//	// Stop server (in another goroutine)
//	if err := server.Stop(); err != nil {
//	    log.Printf("Error stopping server: %v", err)
//	}
//
// # Prometheus Integration
//
// The package uses the official Prometheus Go client library and exposes
// metrics in OpenMetrics format. Configure Prometheus to scrape the endpoint:
//
//	# prometheus.yml
//	scrape_configs:
//	  - job_name: 'recordmanager'
//	    static_configs:
//	      - targets: ['localhost:9090']
//	    metrics_path: '/metrics'
//	    scrape_interval: 15s
//
// All core metrics use the namespace "recordmanager" and a subsystem per
// component:
//   - recordmanager_buffer_pending_docs
//   - recordmanager_solr_requests_total{status="..."}
//   - recordmanager_cluster_state
//   - recordmanager_merge_groups_total{outcome="..."}
//   - recordmanager_coordinator_records_processed_total
//
// Component-specific metrics use the metric name as provided during
// registration.
//
// # MetricsRegistrar Interface
//
// Components implement against the MetricsRegistrar interface for
// dependency injection:
//
//	type QueueCollection struct {
//	    metrics metric.MetricsRegistrar
//	}
//
//	func NewQueueCollection(metrics metric.MetricsRegistrar) *QueueCollection {
//	    depth := prometheus.NewGauge(prometheus.GaugeOpts{
//	        Name: "queue_depth",
//	        Help: "Groups waiting in the overflow queue",
//	    })
//	    metrics.RegisterGauge("queue-collection", "queue_depth", depth)
//
//	    return &QueueCollection{metrics: metrics}
//	}
//
// This enables testing with mock registrars and provides loose coupling.
//
// # Thread Safety
//
// All registry operations are thread-safe:
//   - Registration methods use mutex protection
//   - Metric recording is lock-free (Prometheus guarantee)
//   - CoreMetrics() returns a thread-safe shared instance
//   - PrometheusRegistry() is safe for concurrent access
//
// # Error Handling
//
// Registration methods return errors for:
//
//   - Duplicate registration: attempting to register the same metric name twice
//   - Prometheus conflicts: internal Prometheus registration failures
//
// The Server.Start() method returns errors for:
//
//   - Server already running
//   - Nil registry
//   - HTTP server failures (port in use, permission denied)
//
// # Design Decisions
//
// Centralized Registry: chose a centralized registry over distributed
// collectors to ensure a consistent metric namespace, prevent duplication,
// and enable runtime metric discovery.
//
// Core vs Component Metrics: separated pipeline-level metrics (core) from
// component-specific metrics to distinguish overall indexing health from an
// individual component's internals.
//
// Prometheus Direct Integration: used the official Prometheus client rather
// than an abstraction, to leverage native features and stay compatible with
// the Prometheus ecosystem.
//
// No inbound TLS: the metrics server listens on plain HTTP. RecordManager
// runs as an internal batch pipeline with no externally reachable listener,
// so the debug port is expected to sit behind network-level access control
// rather than terminate TLS itself.
package metric
