package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
	"github.com/arklim/commerce-platform-verify/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	TokenID   string           `json:"token_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, tokenID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		TokenID:   tokenID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishVerificationRequested publishes verify.code.requested events.
func (p *EventPublisher) PublishVerificationRequested(ctx context.Context, event domain.VerificationRequestedEvent) error {
	payload := struct {
		TokenID           string         `json:"token_id"`
		UserID            *string        `json:"user_id,omitempty"`
		Kind              string         `json:"kind"`
		Channel           string         `json:"channel"`
		MaskedDestination string         `json:"masked_destination,omitempty"`
		RequestedAt       time.Time      `json:"requested_at"`
		ExpiresAt         time.Time      `json:"expires_at"`
		IPAddress         *string        `json:"ip_address,omitempty"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		TokenID:           event.TokenID,
		UserID:            event.UserID,
		Kind:              string(event.Kind),
		Channel:           string(event.Channel),
		MaskedDestination: event.MaskedDestination,
		RequestedAt:       event.RequestedAt.UTC(),
		ExpiresAt:         event.ExpiresAt.UTC(),
		IPAddress:         event.IPAddress,
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "verify.code.requested", event.TokenID, event.RequestedAt, payload)
}

// PublishVerificationCompleted publishes verify.code.completed events.
func (p *EventPublisher) PublishVerificationCompleted(ctx context.Context, event domain.VerificationCompletedEvent) error {
	payload := struct {
		TokenID     string         `json:"token_id"`
		UserID      *string        `json:"user_id,omitempty"`
		Kind        string         `json:"kind"`
		CompletedAt time.Time      `json:"completed_at"`
		Attempts    int            `json:"attempts"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		TokenID:     event.TokenID,
		UserID:      event.UserID,
		Kind:        string(event.Kind),
		CompletedAt: event.CompletedAt.UTC(),
		Attempts:    event.Attempts,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "verify.code.completed", event.TokenID, event.CompletedAt, payload)
}

// PublishVerificationFailed publishes verify.code.failed events.
func (p *EventPublisher) PublishVerificationFailed(ctx context.Context, event domain.VerificationFailedEvent) error {
	payload := struct {
		TokenID  string         `json:"token_id"`
		UserID   *string        `json:"user_id,omitempty"`
		Kind     string         `json:"kind"`
		Reason   string         `json:"reason"`
		FailedAt time.Time      `json:"failed_at"`
		Attempts int            `json:"attempts"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		TokenID:  event.TokenID,
		UserID:   event.UserID,
		Kind:     string(event.Kind),
		Reason:   event.Reason,
		FailedAt: event.FailedAt.UTC(),
		Attempts: event.Attempts,
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, "verify.code.failed", event.TokenID, event.FailedAt, payload)
}

// PublishRetentionSwept publishes verify.retention.swept events.
func (p *EventPublisher) PublishRetentionSwept(ctx context.Context, event domain.RetentionSweptEvent) error {
	payload := struct {
		SweptAt                 time.Time `json:"swept_at"`
		TokensDeleted           int       `json:"tokens_deleted"`
		RateLimitRecordsDeleted int       `json:"rate_limit_records_deleted"`
	}{
		SweptAt:                 event.SweptAt.UTC(),
		TokensDeleted:           event.TokensDeleted,
		RateLimitRecordsDeleted: event.RateLimitRecordsDeleted,
	}

	return p.publish(ctx, event.EventID, "verify.retention.swept", "", event.SweptAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
