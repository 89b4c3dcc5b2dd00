package domain

import "time"

// VerificationRequestedEvent represents the payload for verify.code.requested messages.
type VerificationRequestedEvent struct {
	EventID           string
	TokenID           string
	UserID            *string
	Kind              Kind
	Channel           Channel
	MaskedDestination string
	RequestedAt       time.Time
	ExpiresAt         time.Time
	IPAddress         *string
	Metadata          map[string]any
}

// VerificationCompletedEvent represents the payload for verify.code.completed messages.
type VerificationCompletedEvent struct {
	EventID     string
	TokenID     string
	UserID      *string
	Kind        Kind
	CompletedAt time.Time
	Attempts    int
	Metadata    map[string]any
}

// VerificationFailedEvent represents the payload for verify.code.failed
// messages, emitted when a token reaches a terminal failure state.
type VerificationFailedEvent struct {
	EventID  string
	TokenID  string
	UserID   *string
	Kind     Kind
	Reason   string
	FailedAt time.Time
	Attempts int
	Metadata map[string]any
}

// RetentionSweptEvent represents the payload for verify.retention.swept messages.
type RetentionSweptEvent struct {
	EventID                 string
	SweptAt                 time.Time
	TokensDeleted           int
	RateLimitRecordsDeleted int
}
