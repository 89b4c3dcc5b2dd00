package domain

import "time"

// RateLimitRecord tracks start-requests for one (identifier, kind) pair
// inside a rolling window. At most one active record exists per pair.
type RateLimitRecord struct {
	Identifier   string
	Kind         Kind
	WindowStart  time.Time
	AttemptCount int
	BlockedUntil *time.Time
}

// Blocked reports whether a hard block is in effect at the given time.
func (r RateLimitRecord) Blocked(at time.Time) bool {
	return r.BlockedUntil != nil && r.BlockedUntil.After(at)
}

// WindowExpired reports whether the record's counting window has closed.
func (r RateLimitRecord) WindowExpired(window time.Duration, at time.Time) bool {
	return !r.WindowStart.Add(window).After(at)
}
