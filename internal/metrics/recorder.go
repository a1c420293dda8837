// Package metrics exports pipeline telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder captures telemetry for uploads and transcodes.
type Recorder interface {
	ObserveTranscode(category string, duration time.Duration, err error)
	ObserveUpload(outcome string)
}

type PrometheusRecorder struct {
	transcodeDuration *prometheus.HistogramVec
	transcodeFailures *prometheus.CounterVec
	uploads           *prometheus.CounterVec
}

// NewPrometheusRecorder registers the pipeline collectors on reg, reusing
// collectors that are already registered.
func NewPrometheusRecorder(namespace string, reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if namespace == "" {
		namespace = "rnchatmedia"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &PrometheusRecorder{
		transcodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Latency of transcoder invocations by category.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"category"}),
		transcodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_failures_total",
			Help:      "Count of failed transcoder invocations by category.",
		}, []string{"category"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Count of upload requests by outcome.",
		}, []string{"outcome"}),
	}

	var err error
	if r.transcodeDuration, err = register(reg, r.transcodeDuration); err != nil {
		return nil, err
	}
	if r.transcodeFailures, err = register(reg, r.transcodeFailures); err != nil {
		return nil, err
	}
	if r.uploads, err = register(reg, r.uploads); err != nil {
		return nil, err
	}

	return r, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return collector, fmt.Errorf("register pipeline metric: %w", err)
}

func (r *PrometheusRecorder) ObserveTranscode(category string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.transcodeDuration.WithLabelValues(category).Observe(duration.Seconds())
	if err != nil {
		r.transcodeFailures.WithLabelValues(category).Inc()
	}
}

func (r *PrometheusRecorder) ObserveUpload(outcome string) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome).Inc()
}

type nopRecorder struct{}

func (nopRecorder) ObserveTranscode(string, time.Duration, error) {}

func (nopRecorder) ObserveUpload(string) {}

// Nop returns a Recorder that drops everything.
func Nop() Recorder {
	return nopRecorder{}
}
