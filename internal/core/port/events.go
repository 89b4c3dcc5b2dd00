package port

import (
	"context"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
)

// EventPublisher publishes verification lifecycle events to the message bus.
type EventPublisher interface {
	PublishVerificationRequested(ctx context.Context, event domain.VerificationRequestedEvent) error
	PublishVerificationCompleted(ctx context.Context, event domain.VerificationCompletedEvent) error
	PublishVerificationFailed(ctx context.Context, event domain.VerificationFailedEvent) error
	PublishRetentionSwept(ctx context.Context, event domain.RetentionSweptEvent) error
}
