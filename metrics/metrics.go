package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Record outcomes used as the "outcome" label of RecordsTotal.
const (
	OutcomeFound        = "found"
	OutcomeExcluded     = "excluded"
	OutcomeNoOverlap    = "no_overlap"
	OutcomeNotEvaluated = "not_evaluated"
)

var (
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_analyses_total",
		Help: "Total analyses by outcome (ok, empty_target, invalid_target, not_found)",
	}, []string{"outcome"})
	AnalysisDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "overlap_analysis_duration_ms",
		Help:    "Whole analysis duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
	RecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_records_total",
		Help: "Layer records processed by layer and outcome",
	}, []string{"layer", "outcome"})
	LayerDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "overlap_layer_duration_ms",
		Help:    "Per-layer processing duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 5000},
	}, []string{"layer"})
	LayerLoadFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlap_layer_load_failures_total",
		Help: "Layer loads that failed and were treated as empty",
	}, []string{"layer"})
	ParseCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_parse_cache_hits_total",
		Help: "Geometry parse cache hits",
	})
	ParseCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_parse_cache_misses_total",
		Help: "Geometry parse cache misses",
	})
	BoundsRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_bounds_rejections_total",
		Help: "Pairs rejected by the bounding box test",
	})
	ReportCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_report_cache_hits_total",
		Help: "Report cache hits",
	})
	ReportCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlap_report_cache_misses_total",
		Help: "Report cache misses",
	})
)

func init() {
	prometheus.MustRegister(AnalysesTotal)
	prometheus.MustRegister(AnalysisDurationMs)
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(LayerDurationMs)
	prometheus.MustRegister(LayerLoadFailuresTotal)
	prometheus.MustRegister(ParseCacheHitsTotal)
	prometheus.MustRegister(ParseCacheMissesTotal)
	prometheus.MustRegister(BoundsRejectionsTotal)
	prometheus.MustRegister(ReportCacheHitsTotal)
	prometheus.MustRegister(ReportCacheMissesTotal)
}

func Handler() http.Handler { return promhttp.Handler() }
