package port

import (
	"context"
	"time"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
)

// TokenRepository manages persisted verification tokens.
//
// IncrementAttemptAndFetch must be atomic per token id: two concurrent
// confirmations must observe distinct attempt counts. The engine increments
// before comparing codes, so exhaustion survives crashes and races.
type TokenRepository interface {
	Create(ctx context.Context, token domain.VerificationToken) error
	GetByTokenHash(ctx context.Context, hash string) (*domain.VerificationToken, error)
	IncrementAttemptAndFetch(ctx context.Context, id string, at time.Time) (int, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, verifiedAt *time.Time, at time.Time) error
	DeleteTerminalBefore(ctx context.Context, failedExpiredBefore, verifiedBefore time.Time, batch int) (int, error)
}
