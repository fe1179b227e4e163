package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records progress of webhook events through the intake pipeline.
type PipelineMetrics struct {
	received          *prometheus.CounterVec
	ignored           *prometheus.CounterVec
	duplicate         *prometheus.CounterVec
	handlerFailure    *prometheus.CounterVec
	ledgerUnavailable *prometheus.CounterVec
	emailSent         *prometheus.CounterVec
	emailFailed       *prometheus.CounterVec
	handleDuration    *prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook events that passed signature verification.",
	}, []string{"type"})
	ignored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_ignored",
		Help: "Webhook events acknowledged without action.",
	}, []string{"type"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Webhook events dropped by the deduplication ledger.",
	}, []string{"type"})
	handlerFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_handler_failures",
		Help: "Webhook events whose handler returned an error.",
	}, []string{"type"})
	ledgerUnavailable := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_ledger_unavailable",
		Help: "Ledger claims that failed open because the store was unreachable.",
	}, []string{"claim"})
	emailSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent",
		Help: "Emails handed to the delivery provider.",
	}, []string{"template"})
	emailFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_failed",
		Help: "Emails the delivery provider rejected.",
	}, []string{"template"})
	handleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handle_duration_seconds",
		Help:    "Duration of webhook event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	reg.MustRegister(received, ignored, duplicate, handlerFailure, ledgerUnavailable, emailSent, emailFailed, handleDuration)
	return &PipelineMetrics{
		received:          received,
		ignored:           ignored,
		duplicate:         duplicate,
		handlerFailure:    handlerFailure,
		ledgerUnavailable: ledgerUnavailable,
		emailSent:         emailSent,
		emailFailed:       emailFailed,
		handleDuration:    handleDuration,
	}
}

// IncReceived counts a verified inbound event.
func (p *PipelineMetrics) IncReceived(eventType string) {
	if p == nil || p.received == nil {
		return
	}
	p.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncIgnored counts an event acknowledged without action.
func (p *PipelineMetrics) IncIgnored(eventType string) {
	if p == nil || p.ignored == nil {
		return
	}
	p.ignored.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate counts an event dropped as already processed.
func (p *PipelineMetrics) IncDuplicate(eventType string) {
	if p == nil || p.duplicate == nil {
		return
	}
	p.duplicate.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncHandlerFailure counts a handler error swallowed at the dispatch boundary.
func (p *PipelineMetrics) IncHandlerFailure(eventType string) {
	if p == nil || p.handlerFailure == nil {
		return
	}
	p.handlerFailure.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncLedgerUnavailable counts a claim that failed open.
func (p *PipelineMetrics) IncLedgerUnavailable(claim string) {
	if p == nil || p.ledgerUnavailable == nil {
		return
	}
	p.ledgerUnavailable.WithLabelValues(normalizeLabel(claim)).Inc()
}

// IncEmailSent counts a successful handoff to the email provider.
func (p *PipelineMetrics) IncEmailSent(template string) {
	if p == nil || p.emailSent == nil {
		return
	}
	p.emailSent.WithLabelValues(normalizeLabel(template)).Inc()
}

// IncEmailFailed counts a rejected email send.
func (p *PipelineMetrics) IncEmailFailed(template string) {
	if p == nil || p.emailFailed == nil {
		return
	}
	p.emailFailed.WithLabelValues(normalizeLabel(template)).Inc()
}

// ObserveHandleDuration records how long an event handler ran.
func (p *PipelineMetrics) ObserveHandleDuration(eventType string, duration time.Duration) {
	if p == nil || p.handleDuration == nil {
		return
	}
	p.handleDuration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
