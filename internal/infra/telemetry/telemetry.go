package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arklim/commerce-platform-verify/internal/infra/config"
)

// Provider holds the engine-level counters. HTTP request metrics live in
// the transport middleware; these track verification outcomes only.
type Provider struct {
	codesIssued     *prometheus.CounterVec
	confirmOutcomes *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// Attach registers the engine counters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	codesIssued := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verify",
		Name:      "codes_issued_total",
		Help:      "One-time codes issued, by verification kind",
	}, []string{"kind"})

	confirmOutcomes := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verify",
		Name:      "confirmations_total",
		Help:      "Confirmation attempts, by outcome",
	}, []string{"outcome"})

	rateLimited := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verify",
		Name:      "rate_limited_total",
		Help:      "Issuance requests rejected by the rate limiter, by kind",
	}, []string{"kind"})

	return &Provider{
		codesIssued:     codesIssued,
		confirmOutcomes: confirmOutcomes,
		rateLimited:     rateLimited,
	}, nil
}

// CodeIssued records a successfully issued code for the given kind.
func (p *Provider) CodeIssued(kind string) {
	if p == nil {
		return
	}
	p.codesIssued.WithLabelValues(kind).Inc()
}

// ConfirmOutcome records the outcome of a confirmation attempt
// (verified, code_mismatch, expired, attempts_exceeded, invalid_token).
func (p *Provider) ConfirmOutcome(outcome string) {
	if p == nil {
		return
	}
	p.confirmOutcomes.WithLabelValues(outcome).Inc()
}

// RateLimited records an issuance request rejected by the rate limiter.
func (p *Provider) RateLimited(kind string) {
	if p == nil {
		return
	}
	p.rateLimited.WithLabelValues(kind).Inc()
}
