package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global metrics, registered on the default registry through promauto.

var (
	// 1. HTTP Requests Total (Counter)
	// Counts how many requests arrive, labeled by method, route pattern and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// 2. HTTP Request Duration (Histogram)
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kektorgraph_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// 3. Clustering Runs (Counter)
	// Labeled by terminal state: converged, max_iterations_reached or failed.
	ClusteringRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorgraph_clustering_runs_total",
			Help: "Total number of clustering runs by terminal state",
		},
		[]string{"state"},
	)

	// 4. Iterations per run (Histogram)
	ClusteringIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kektorgraph_clustering_iterations",
			Help:    "Number of Lloyd iterations executed per clustering run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11),
		},
	)

	// 5. Centroid movement of the latest iteration (Gauge)
	CentroidMovement = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kektorgraph_centroid_movement",
			Help: "Summed centroid displacement of the most recent iteration",
		},
	)

	// 6. Empty clusters (Counter)
	EmptyClusters = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kektorgraph_empty_clusters_total",
			Help: "Total number of empty cluster events handled during centroid updates",
		},
	)

	// 7. Stage Duration (Histogram)
	// Wall time of pipeline stages: "embed" and "cluster".
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kektorgraph_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"stage"},
	)

	// 8. Graph Nodes (Gauge)
	// Size of the most recently processed graph.
	GraphNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kektorgraph_graph_nodes",
			Help: "Number of nodes in the most recently clustered graph",
		},
	)
)
