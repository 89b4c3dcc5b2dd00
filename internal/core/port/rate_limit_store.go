package port

import (
	"context"
	"time"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
)

// RateLimitStore persists per-(identifier, kind) request windows.
//
// IncrementAttempt must be atomic: concurrent start-requests must not both
// observe the same pre-increment count and bypass the ceiling.
type RateLimitStore interface {
	CurrentWindow(ctx context.Context, identifier string, kind domain.Kind, window time.Duration, reference time.Time) (*domain.RateLimitRecord, error)
	IncrementAttempt(ctx context.Context, identifier string, kind domain.Kind, window time.Duration, at time.Time) (int, error)
	SetBlockedUntil(ctx context.Context, identifier string, kind domain.Kind, until time.Time) error
	DeleteExpiredWindows(ctx context.Context, window time.Duration, reference time.Time) (int, error)
}
