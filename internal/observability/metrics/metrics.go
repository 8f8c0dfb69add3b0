package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoiceMetrics exposes counters/histograms for the voice webhook flow.
type VoiceMetrics struct {
	toolCallsTotal    *prometheus.CounterVec
	toolLatency       *prometheus.HistogramVec
	bookingStepsTotal *prometheus.CounterVec
	signatureRejected *prometheus.CounterVec
}

func NewVoiceMetrics(reg prometheus.Registerer) *VoiceMetrics {
	m := &VoiceMetrics{
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudgreet",
			Subsystem: "voice",
			Name:      "tool_calls_total",
			Help:      "Total voice webhook tool calls by tool and response status",
		}, []string{"tool", "status"}),
		toolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cloudgreet",
			Subsystem: "voice",
			Name:      "tool_latency_seconds",
			Help:      "Latency of voice webhook tool handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		bookingStepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudgreet",
			Subsystem: "booking",
			Name:      "steps_total",
			Help:      "Best-effort booking steps by step and outcome",
		}, []string{"step", "outcome"}),
		signatureRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudgreet",
			Subsystem: "voice",
			Name:      "signature_rejected_total",
			Help:      "Webhook requests rejected by signature verification",
		}, []string{"reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.toolCallsTotal, m.toolLatency, m.bookingStepsTotal, m.signatureRejected)
	return m
}

func (m *VoiceMetrics) ObserveToolCall(tool string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, statusClass(status)).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(seconds)
}

func (m *VoiceMetrics) ObserveBookingStep(step, outcome string) {
	if m == nil {
		return
	}
	m.bookingStepsTotal.WithLabelValues(step, outcome).Inc()
}

func (m *VoiceMetrics) ObserveSignatureRejected(reason string) {
	if m == nil {
		return
	}
	m.signatureRejected.WithLabelValues(reason).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 200 && status < 300:
		return "2xx"
	default:
		return "other"
	}
}
