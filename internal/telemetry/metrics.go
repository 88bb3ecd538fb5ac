package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsCreated      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "recipe_jobs_created_total", Help: "Jobs created by kind"}, []string{"kind"})
	JobsCompleted    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "recipe_jobs_completed_total", Help: "Jobs completed by kind"}, []string{"kind"})
	JobsFailed       = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "recipe_jobs_failed_total", Help: "Jobs failed by kind"}, []string{"kind"})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "recipe_rate_limit_rejects_total", Help: "Requests rejected by rate limiter"})
	CacheHits        = prometheus.NewCounter(prometheus.CounterOpts{Name: "recipe_generation_cache_hits_total", Help: "Recipe generations served from cache"})
	ImagesUploaded   = prometheus.NewCounter(prometheus.CounterOpts{Name: "recipe_images_uploaded_total", Help: "Recipe images stored"})
	InFlightGauge    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "recipe_jobs_inflight", Help: "Jobs currently being processed"})
	RequestDuration  = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipe_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsCreated,
			JobsCompleted,
			JobsFailed,
			RateLimitRejects,
			CacheHits,
			ImagesUploaded,
			InFlightGauge,
			RequestDuration,
		)
	})
	return promhttp.Handler()
}
