package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AnalyzeOutcomes     *prometheus.CounterVec
	SampleDuration      prometheus.Histogram
}

func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicefit_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicefit_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		AnalyzeOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicefit_analyze_outcomes_total",
			Help: "Analyze results by outcome code (ok, mock or an error code)",
		}, []string{"outcome"}),
		SampleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicefit_sample_duration_seconds",
			Help:    "Duration of analyzed voice samples",
			Buckets: []float64{1, 3, 5, 8, 12, 16, 20, 30},
		}),
	}
}

func (m *metrics) observeRequest(route, method string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
