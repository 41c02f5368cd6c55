// Package metrics exposes Prometheus instruments for scans and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds all scamdar instruments.
type Recorder struct {
	ScansTotal      *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	Scores          prometheus.Histogram
	InFlight        prometheus.Gauge
	HTTPRequests    *prometheus.CounterVec
	HTTPRequestTime *prometheus.HistogramVec
}

// New registers the instruments with reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scamdar_scans_total",
			Help: "Total number of scans by outcome and failing stage.",
		}, []string{"outcome", "stage"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scamdar_scan_duration_seconds",
			Help:    "Duration of complete scans.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		Scores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scamdar_scan_score",
			Help:    "Distribution of successful scan scores.",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "scamdar_scans_in_flight",
			Help: "Number of scans currently running.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scamdar_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scamdar_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ScanSucceeded records a scored scan.
func (r *Recorder) ScanSucceeded(score int, took time.Duration) {
	if r == nil {
		return
	}
	r.ScansTotal.WithLabelValues("success", "").Inc()
	r.Scores.Observe(float64(score))
	r.ScanDuration.Observe(took.Seconds())
}

// ScanFailed records a scan that failed at stage.
func (r *Recorder) ScanFailed(stage string, took time.Duration) {
	if r == nil {
		return
	}
	r.ScansTotal.WithLabelValues("failure", stage).Inc()
	r.ScanDuration.Observe(took.Seconds())
}

// Begin marks a scan as running and returns the matching end call.
func (r *Recorder) Begin() func() {
	if r == nil {
		return func() {}
	}
	r.InFlight.Inc()
	return r.InFlight.Dec
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(method, route string, status int, took time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestTime.WithLabelValues(method, route).Observe(took.Seconds())
}
