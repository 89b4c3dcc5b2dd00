package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/infra/config"
)

func TestRateLimiter_Check_AllowsWithoutWindow(t *testing.T) {
	store := &rateLimitStoreMock{}
	limiter := NewRateLimiter(&config.AppConfig{}, store, nil)

	decision := limiter.Check(context.Background(), "john.doe@example.com", domain.KindEmailRegistration)
	if !decision.Allowed {
		t.Fatalf("expected allow with no existing window")
	}
}

func TestRateLimiter_Check_AllowsBelowCeiling(t *testing.T) {
	fixed := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	store := &rateLimitStoreMock{record: &domain.RateLimitRecord{
		Identifier:   "john.doe@example.com",
		Kind:         domain.KindEmailRegistration,
		WindowStart:  fixed.Add(-30 * time.Minute),
		AttemptCount: domain.KindEmailRegistration.RequestCeiling() - 1,
	}}
	limiter := NewRateLimiter(&config.AppConfig{}, store, nil)
	limiter.WithClock(func() time.Time { return fixed })

	decision := limiter.Check(context.Background(), "john.doe@example.com", domain.KindEmailRegistration)
	if !decision.Allowed {
		t.Fatalf("expected allow below ceiling")
	}
	if store.blockedUntil != nil {
		t.Fatalf("expected no block below ceiling")
	}
}

func TestRateLimiter_Check_BlocksAtCeiling(t *testing.T) {
	fixed := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	windowStart := fixed.Add(-15 * time.Minute)
	store := &rateLimitStoreMock{record: &domain.RateLimitRecord{
		Identifier:   "+12065550123",
		Kind:         domain.KindPhoneRegistration,
		WindowStart:  windowStart,
		AttemptCount: domain.KindPhoneRegistration.RequestCeiling(),
	}}
	limiter := NewRateLimiter(&config.AppConfig{}, store, nil)
	limiter.WithClock(func() time.Time { return fixed })

	decision := limiter.Check(context.Background(), "+12065550123", domain.KindPhoneRegistration)
	if decision.Allowed {
		t.Fatalf("expected block at ceiling")
	}
	if want := 45 * time.Minute; decision.RetryAfter != want {
		t.Fatalf("expected retry after %v, got %v", want, decision.RetryAfter)
	}
	if store.blockedUntil == nil || !store.blockedUntil.Equal(windowStart.Add(time.Hour)) {
		t.Fatalf("expected block persisted until window end, got %v", store.blockedUntil)
	}
}

func TestRateLimiter_Check_RespectsExistingBlock(t *testing.T) {
	fixed := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	blockedUntil := fixed.Add(20 * time.Minute)
	store := &rateLimitStoreMock{record: &domain.RateLimitRecord{
		Identifier:   "john.doe@example.com",
		Kind:         domain.KindPasswordReset,
		WindowStart:  fixed.Add(-40 * time.Minute),
		AttemptCount: 1,
		BlockedUntil: &blockedUntil,
	}}
	limiter := NewRateLimiter(&config.AppConfig{}, store, nil)
	limiter.WithClock(func() time.Time { return fixed })

	decision := limiter.Check(context.Background(), "john.doe@example.com", domain.KindPasswordReset)
	if decision.Allowed {
		t.Fatalf("expected blocked decision")
	}
	if decision.RetryAfter != 20*time.Minute {
		t.Fatalf("expected retry after 20m, got %v", decision.RetryAfter)
	}
}

func TestRateLimiter_Check_FailsOpenOnStoreError(t *testing.T) {
	store := &rateLimitStoreMock{currentErr: errors.New("redis unavailable")}
	limiter := NewRateLimiter(&config.AppConfig{}, store, nil)

	decision := limiter.Check(context.Background(), "john.doe@example.com", domain.KindEmailRegistration)
	if !decision.Allowed {
		t.Fatalf("expected fail-open on storage error")
	}
}

func TestRateLimiter_Ceiling_HonorsOverrides(t *testing.T) {
	cfg := &config.AppConfig{
		Verification: config.VerificationSettings{
			Kinds: map[string]config.KindOverride{
				"phone_change": {Ceiling: 7},
			},
		},
	}
	limiter := NewRateLimiter(cfg, nil, nil)

	if got := limiter.Ceiling(domain.KindPhoneChange); got != 7 {
		t.Fatalf("expected overridden ceiling 7, got %d", got)
	}
	if got := limiter.Ceiling(domain.KindPasswordReset); got != domain.KindPasswordReset.RequestCeiling() {
		t.Fatalf("expected default ceiling, got %d", got)
	}
}

func TestRateLimiter_WindowFromConfig(t *testing.T) {
	cfg := &config.AppConfig{
		Verification: config.VerificationSettings{WindowDuration: 30 * time.Minute},
	}
	limiter := NewRateLimiter(cfg, nil, nil)

	if limiter.Window() != 30*time.Minute {
		t.Fatalf("expected configured window, got %v", limiter.Window())
	}
}
