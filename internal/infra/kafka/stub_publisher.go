package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, tokenID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("token_id", tokenID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishVerificationRequested logs verify.code.requested events.
func (p *StubPublisher) PublishVerificationRequested(_ context.Context, event domain.VerificationRequestedEvent) error {
	payload := map[string]any{
		"token_id":           event.TokenID,
		"user_id":            event.UserID,
		"kind":               event.Kind,
		"channel":            event.Channel,
		"masked_destination": event.MaskedDestination,
		"requested_at":       event.RequestedAt,
		"expires_at":         event.ExpiresAt,
		"ip_address":         event.IPAddress,
		"metadata":           event.Metadata,
	}
	p.logEvent("verify.code.requested", event.TokenID, event.RequestedAt, payload)
	return nil
}

// PublishVerificationCompleted logs verify.code.completed events.
func (p *StubPublisher) PublishVerificationCompleted(_ context.Context, event domain.VerificationCompletedEvent) error {
	payload := map[string]any{
		"token_id":     event.TokenID,
		"user_id":      event.UserID,
		"kind":         event.Kind,
		"completed_at": event.CompletedAt,
		"attempts":     event.Attempts,
		"metadata":     event.Metadata,
	}
	p.logEvent("verify.code.completed", event.TokenID, event.CompletedAt, payload)
	return nil
}

// PublishVerificationFailed logs verify.code.failed events.
func (p *StubPublisher) PublishVerificationFailed(_ context.Context, event domain.VerificationFailedEvent) error {
	payload := map[string]any{
		"token_id":  event.TokenID,
		"user_id":   event.UserID,
		"kind":      event.Kind,
		"reason":    event.Reason,
		"failed_at": event.FailedAt,
		"attempts":  event.Attempts,
		"metadata":  event.Metadata,
	}
	p.logEvent("verify.code.failed", event.TokenID, event.FailedAt, payload)
	return nil
}

// PublishRetentionSwept logs verify.retention.swept events.
func (p *StubPublisher) PublishRetentionSwept(_ context.Context, event domain.RetentionSweptEvent) error {
	payload := map[string]any{
		"swept_at":                   event.SweptAt,
		"tokens_deleted":             event.TokensDeleted,
		"rate_limit_records_deleted": event.RateLimitRecordsDeleted,
	}
	p.logEvent("verify.retention.swept", "", event.SweptAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
