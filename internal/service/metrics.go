package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the viewing-pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	violations     *prometheus.CounterVec
	sessions       *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	uploadsPending prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docviewer_scan_violations_total",
				Help: "Documents rejected by the content scanner, by rule.",
			},
			[]string{"rule"},
		),
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docviewer_sessions_total",
				Help: "Viewing session creation attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docviewer_uploads_total",
				Help: "Background source uploads, by outcome.",
			},
			[]string{"outcome"},
		),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docviewer_upload_duration_seconds",
			Help:    "Duration of background source uploads.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		uploadsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docviewer_uploads_pending",
			Help: "Background uploads scheduled but not finished.",
		}),
	}

	for _, c := range []prometheus.Collector{m.violations, m.sessions, m.uploads, m.uploadDuration, m.uploadsPending} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) violation(rule string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(rule).Inc()
}

func (m *Metrics) session(outcome string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) uploadScheduled() {
	if m == nil {
		return
	}
	m.uploadsPending.Inc()
}

func (m *Metrics) uploadFinished(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.uploadsPending.Dec()
	m.uploads.WithLabelValues(outcome).Inc()
	m.uploadDuration.Observe(took.Seconds())
}
