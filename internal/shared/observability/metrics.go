package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "compgraph_parsing_seconds",
		Help:    "Time spent extracting declarations from one source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ScanFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compgraph_scan_files_total",
		Help: "Files visited by the scanner, by outcome (parsed, empty, failed, cached).",
	}, []string{"outcome"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "compgraph_graph_nodes_total",
		Help: "Total number of nodes in the component graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "compgraph_graph_edges_total",
		Help: "Total number of edges in the component graph.",
	})

	RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "compgraph_rebuild_seconds",
		Help:    "Time spent on a full scan and graph rebuild.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compgraph_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ParseCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compgraph_parse_cache_hits_total",
		Help: "Parse results served from the content-addressed cache.",
	})
)
