package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidToken indicates the supplied token is unknown or malformed.
	// Callers should present it identically to ErrExpired so responses do
	// not leak which case applies.
	ErrInvalidToken = errors.New("verification token invalid")
	// ErrExpired indicates the token's deadline has passed.
	ErrExpired = errors.New("verification token expired")
	// ErrAlreadyCompleted indicates the token was already consumed; a second
	// confirm with the right code does not re-succeed.
	ErrAlreadyCompleted = errors.New("verification already completed")
	// ErrAttemptsExceeded indicates the attempt budget is exhausted.
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
	// ErrDispatchFailed indicates the code could not be delivered; the caller
	// may safely retry startVerification, which issues a fresh token.
	ErrDispatchFailed = errors.New("verification dispatch failed")
)

// RateLimitedError is returned when the request ceiling for an identifier has
// been reached inside the current window.
type RateLimitedError struct {
	Kind       string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Kind, e.RetryAfter)
}

// CodeMismatchError is returned when the submitted code does not match.
// AttemptsRemaining supports caller UX ("2 attempts left").
type CodeMismatchError struct {
	AttemptsRemaining int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("verification code mismatch, %d attempts remaining", e.AttemptsRemaining)
}
