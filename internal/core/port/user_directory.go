package port

import (
	"context"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
)

// UserDirectory looks up account holders for message personalization only.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
