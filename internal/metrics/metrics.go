// Package metrics exposes Prometheus collectors for the dashboard.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_render_duration_seconds",
			Help:    "Duration of filter and aggregate runs in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"surface"}, // "api", "sse", "cli"
	)

	RenderedRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_rendered_rows",
			Help:    "Number of dataset rows in the filtered set per render",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_dataset_rows",
			Help: "Number of rows in the loaded dataset",
		},
	)

	DatasetLoadDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_dataset_load_duration_seconds",
			Help: "Duration of the last dataset load in seconds",
		},
	)

	DatasetParseFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_dataset_parse_fallbacks_total",
			Help: "Number of loads that needed the semicolon fallback parse",
		},
	)

	DatasetFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_dataset_fetches_total",
			Help: "Remote dataset downloads by outcome",
		},
		[]string{"outcome"}, // "success", "error"
	)
)

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordRender(surface string, rows int, duration time.Duration) {
	RenderDuration.WithLabelValues(surface).Observe(duration.Seconds())
	RenderedRows.Observe(float64(rows))
}

func RecordDatasetLoad(rows int, duration time.Duration, fallback bool) {
	DatasetRows.Set(float64(rows))
	DatasetLoadDuration.Set(duration.Seconds())
	if fallback {
		DatasetParseFallbacks.Inc()
	}
}

func RecordFetch(err error) {
	if err != nil {
		DatasetFetches.WithLabelValues("error").Inc()
		return
	}
	DatasetFetches.WithLabelValues("success").Inc()
}
