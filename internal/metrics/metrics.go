package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Parser metrics
	EventsParsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calstats_events_parsed_total",
			Help: "Canonical events produced by the calendar parser",
		},
	)

	RecordsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calstats_parse_skipped_total",
			Help: "VEVENT records skipped because they could not be interpreted",
		},
	)

	RecurrenceTruncated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calstats_recurrence_truncated_total",
			Help: "Recurring events whose expansion hit the occurrence cap",
		},
	)

	// Feed metrics
	FeedFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calstats_feed_fetches_total",
			Help: "Feed fetch attempts by result (ok, cache, error)",
		},
		[]string{"result"},
	)

	// Ingestion metrics
	SourcesImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calstats_sources_imported_total",
			Help: "Calendar files accepted by the ingestion layer",
		},
	)

	DecisionsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calstats_decisions_applied_total",
			Help: "Review decisions committed, by kind (remap, removal)",
		},
		[]string{"kind"},
	)

	CachedEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "calstats_cached_events",
			Help: "Number of canonical events currently held in the event cache",
		},
	)

	// API metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calstats_api_requests_total",
			Help: "API requests by route and status code",
		},
		[]string{"route", "code"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calstats_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	StatsCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calstats_stats_cache_hits_total",
			Help: "Activity stats served from the memo",
		},
	)

	StatsCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calstats_stats_cache_misses_total",
			Help: "Activity stats computed on demand",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsParsed,
		RecordsSkipped,
		RecurrenceTruncated,
		FeedFetches,
		SourcesImported,
		DecisionsApplied,
		CachedEvents,
		RequestsTotal,
		RequestDuration,
		StatsCacheHits,
		StatsCacheMisses,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
