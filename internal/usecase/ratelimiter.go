package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
	"github.com/arklim/commerce-platform-verify/internal/infra/config"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter enforces per-(identifier, kind) request ceilings inside a
// rolling window, escalating to a hard block once the ceiling is reached.
//
// Storage failures fail open: during an infrastructure outage legitimate
// users keep receiving codes. This is a deliberate availability-over-security
// trade-off carried from the original product, not a silent bug.
type RateLimiter struct {
	cfg    *config.AppConfig
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
	window time.Duration
}

// NewRateLimiter constructs a RateLimiter.
func NewRateLimiter(cfg *config.AppConfig, store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	window := domain.RateLimitWindow
	if cfg != nil && cfg.Verification.WindowDuration > 0 {
		window = cfg.Verification.WindowDuration
	}

	return &RateLimiter{
		cfg:    cfg,
		store:  store,
		logger: logger,
		now:    time.Now,
		window: window,
	}
}

// WithClock allows tests to override the clock used by the limiter.
func (l *RateLimiter) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

// Window returns the rolling window length in effect.
func (l *RateLimiter) Window() time.Duration {
	return l.window
}

// Ceiling returns the maximum start-requests per window for a kind,
// honoring configuration overrides.
func (l *RateLimiter) Ceiling(kind domain.Kind) int {
	if l.cfg != nil {
		if override, ok := l.cfg.Verification.Kinds[string(kind)]; ok && override.Ceiling > 0 {
			return override.Ceiling
		}
	}
	return kind.RequestCeiling()
}

// Check reports whether a start-request for the identifier is allowed. When
// the ceiling has been reached the record is promoted to blocked and the
// decision carries the retry-after deadline.
func (l *RateLimiter) Check(ctx context.Context, identifier string, kind domain.Kind) Decision {
	if l.store == nil {
		return Decision{Allowed: true}
	}

	now := l.now().UTC()

	record, err := l.store.CurrentWindow(ctx, identifier, kind, l.window, now)
	if err != nil {
		l.logger.Warn("rate limit lookup failed, failing open",
			zap.String("kind", string(kind)), zap.Error(err))
		return Decision{Allowed: true}
	}

	if record == nil {
		return Decision{Allowed: true}
	}

	if record.Blocked(now) {
		return Decision{RetryAfter: record.BlockedUntil.Sub(now)}
	}

	if record.AttemptCount >= l.Ceiling(kind) {
		blockedUntil := record.WindowStart.Add(l.window)
		if err := l.store.SetBlockedUntil(ctx, identifier, kind, blockedUntil); err != nil {
			l.logger.Warn("rate limit block persist failed",
				zap.String("kind", string(kind)), zap.Error(err))
		}
		retryAfter := blockedUntil.Sub(now)
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return Decision{RetryAfter: retryAfter}
	}

	return Decision{Allowed: true}
}

// Record counts a successful dispatch against the identifier's window.
// Called only after the gateway reported success.
func (l *RateLimiter) Record(ctx context.Context, identifier string, kind domain.Kind) {
	if l.store == nil {
		return
	}

	if _, err := l.store.IncrementAttempt(ctx, identifier, kind, l.window, l.now().UTC()); err != nil {
		l.logger.Warn("rate limit record failed",
			zap.String("kind", string(kind)), zap.Error(err))
	}
}
