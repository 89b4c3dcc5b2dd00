package port

import (
	"context"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
)

// DispatchLog records gateway send attempts for support and audit.
// Entries are append-only and never read back by the state machine.
type DispatchLog interface {
	Append(ctx context.Context, record domain.DispatchRecord) error
}
