package timeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/d60-Lab/home-timeline/internal/timeline")

var (
	fanoutInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_fanout_inserts_total",
		Help: "Timeline entries written by fan-out",
	}, []string{"type"})

	fanoutReblogSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeline_fanout_reblog_skips_total",
		Help: "Reblogs not re-inserted because the original is already near the top",
	})

	filteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_filtered_viewers_total",
		Help: "Viewers removed by each visibility filter stage",
	}, []string{"stage"})

	readsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_reads_total",
		Help: "Posts served per read source",
	}, []string{"source"})

	rebuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timeline_rebuild_duration_seconds",
		Help:    "Duration of full timeline rebuilds",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	relationOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_relation_ops_total",
		Help: "Merge/unmerge/purge operations and the entries they touched",
	}, []string{"op"})

	cleanupDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeline_cleanup_deleted_total",
		Help: "Timelines deleted for inactive accounts",
	})

	notifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeline_notify_failures_total",
		Help: "Live update batches that failed to publish",
	})
)
