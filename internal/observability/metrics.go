// Package observability exposes the engine's prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the selection engine's prometheus collectors. A nil *Metrics
// is valid and all record methods become no-ops, so wiring metrics stays
// optional in tests.
type Metrics struct {
	selectionsTotal     *prometheus.CounterVec
	detectionFallbacks  *prometheus.CounterVec
	classifierFailures  *prometheus.CounterVec
	classifierDetection *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine collectors on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		selectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prefsel_selections_total",
			Help: "Number of persisted selections by domain and input type.",
		}, []string{"domain", "input_type"}),
		detectionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prefsel_detection_fallbacks_total",
			Help: "Number of detections that resolved to the configured default entity.",
		}, []string{"domain"}),
		classifierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prefsel_classifier_failures_total",
			Help: "Number of failed boundary calls to the classification capability.",
		}, []string{"domain"}),
		classifierDetection: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prefsel_detected_entities",
			Help:    "Distribution of entity counts detected per voice utterance.",
			Buckets: []float64{0, 1, 2, 3, 5, 8},
		}, []string{"domain"}),
	}

	for _, c := range []prometheus.Collector{
		m.selectionsTotal,
		m.detectionFallbacks,
		m.classifierFailures,
		m.classifierDetection,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordSelection counts one persisted selection.
func (m *Metrics) RecordSelection(domain, inputType string) {
	if m == nil {
		return
	}
	m.selectionsTotal.WithLabelValues(domain, inputType).Inc()
}

// RecordFallback counts one fallback to the default entity.
func (m *Metrics) RecordFallback(domain string) {
	if m == nil {
		return
	}
	m.detectionFallbacks.WithLabelValues(domain).Inc()
}

// RecordClassifierFailure counts one failed classifier boundary call.
func (m *Metrics) RecordClassifierFailure(domain string) {
	if m == nil {
		return
	}
	m.classifierFailures.WithLabelValues(domain).Inc()
}

// RecordDetectionSize observes how many entities one utterance resolved to.
func (m *Metrics) RecordDetectionSize(domain string, count int) {
	if m == nil {
		return
	}
	m.classifierDetection.WithLabelValues(domain).Observe(float64(count))
}
