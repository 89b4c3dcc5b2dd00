package domain

import "time"

// DispatchStatus enumerates delivery outcomes recorded in the dispatch log.
type DispatchStatus string

const (
	DispatchStatusSent   DispatchStatus = "sent"
	DispatchStatusFailed DispatchStatus = "failed"
)

// DispatchOutcome is the result reported by a channel gateway send.
type DispatchOutcome struct {
	Success    bool
	ProviderID *string
	Error      *string
	Cost       *string
}

// DispatchRecord is an append-only audit entry for one gateway send. It is
// never mutated and never feeds back into the token state machine.
type DispatchRecord struct {
	ID          string
	TokenID     string
	Kind        Kind
	Channel     Channel
	Destination string
	Status      DispatchStatus
	ProviderID  *string
	Error       *string
	Cost        *string
	CreatedAt   time.Time
}
