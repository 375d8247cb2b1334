package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Webhook processing outcomes.
const (
	WebhookOutcomeProcessed  = "processed"
	WebhookOutcomeNoop       = "noop"
	WebhookOutcomeDuplicate  = "duplicate"
	WebhookOutcomeUnresolved = "unresolved"
	WebhookOutcomeMalformed  = "malformed"
	WebhookOutcomeError      = "error"
)

// LicenseMetrics records webhook and license-check activity.
type LicenseMetrics struct {
	webhookEvents *prometheus.CounterVec
	licenseChecks *prometheus.CounterVec
	sweepExpiries prometheus.Counter
}

// NewLicenseMetrics registers the license metrics on the provided registerer.
func NewLicenseMetrics(reg prometheus.Registerer) *LicenseMetrics {
	if reg == nil {
		return &LicenseMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paddle_webhook_events_total",
		Help: "Paddle webhook deliveries by processing outcome.",
	}, []string{"outcome"})
	licenseChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "license_checks_total",
		Help: "License status checks by resulting license.",
	}, []string{"license"})
	sweepExpiries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "license_sweep_expirations_total",
		Help: "Premium licenses expired by the status-check sweep.",
	})
	reg.MustRegister(webhookEvents, licenseChecks, sweepExpiries)
	return &LicenseMetrics{
		webhookEvents: webhookEvents,
		licenseChecks: licenseChecks,
		sweepExpiries: sweepExpiries,
	}
}

// IncWebhookEvent counts a webhook delivery with the given outcome.
func (m *LicenseMetrics) IncWebhookEvent(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncLicenseCheck counts a status check that resolved to the given license.
func (m *LicenseMetrics) IncLicenseCheck(license string) {
	if m == nil || m.licenseChecks == nil {
		return
	}
	m.licenseChecks.WithLabelValues(normalizeLabel(license)).Inc()
}

// IncSweepExpiry counts a record expired by the poll-time sweep.
func (m *LicenseMetrics) IncSweepExpiry() {
	if m == nil || m.sweepExpiries == nil {
		return
	}
	m.sweepExpiries.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
