package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics counts the entitlement engine's externally visible outcomes.
type EngineMetrics struct {
	claims       *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
	achievements prometheus.Counter
}

// NewEngineMetrics registers the engine counters on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_claims_total",
		Help: "Coupon claim attempts by outcome.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_billing_events_total",
		Help: "Billing provider webhook events by result.",
	}, []string{"result"})
	achievements := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_rewards_granted_total",
		Help: "One-time rewards granted by the achievement evaluator.",
	})
	reg.MustRegister(claims, webhooks, achievements)
	return &EngineMetrics{
		claims:       claims,
		webhooks:     webhooks,
		achievements: achievements,
	}
}

// IncClaim records a claim attempt outcome (granted, quota_exceeded, insufficient_points, error).
func (m *EngineMetrics) IncClaim(outcome string) {
	if m == nil || m.claims == nil {
		return
	}
	m.claims.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhook records a billing event result (applied, duplicate, stale, ignored, dropped, error).
func (m *EngineMetrics) IncWebhook(result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncReward records one granted reward.
func (m *EngineMetrics) IncReward() {
	if m == nil || m.achievements == nil {
		return
	}
	m.achievements.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
