package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/commerce-platform-verify/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports liveness for the service.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports the status of each backing dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// StartVerificationRequest defines the payload to issue a one-time code.
type StartVerificationRequest struct {
	Kind   string `json:"kind" binding:"required"`
	UserID string `json:"user_id"`
	Email  string `json:"email" binding:"omitempty,email"`
	Phone  string `json:"phone"`
}

// StartVerificationResponse describes a freshly issued verification.
type StartVerificationResponse struct {
	TokenID           string  `json:"token_id"`
	Delivery          string  `json:"delivery"`
	MaskedDestination string  `json:"masked_destination,omitempty"`
	ExpiresAt         string  `json:"expires_at"`
	DevToken          *string `json:"dev_token,omitempty"`
	DevCode           *string `json:"dev_code,omitempty"`
}

// ConfirmVerificationRequest defines the payload to redeem a code.
type ConfirmVerificationRequest struct {
	Token string `json:"token" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// ConfirmVerificationResponse describes a successful confirmation.
type ConfirmVerificationResponse struct {
	TokenID    string  `json:"token_id"`
	UserID     *string `json:"user_id,omitempty"`
	Kind       string  `json:"kind"`
	VerifiedAt string  `json:"verified_at"`
}

// CodeMismatchResponse is returned when the submitted code does not match
// and attempts remain.
type CodeMismatchResponse struct {
	Error             string `json:"error"`
	AttemptsRemaining int    `json:"attempts_remaining"`
	TraceID           string `json:"trace_id,omitempty"`
}

// SweepResponse summarizes one retention sweep run.
type SweepResponse struct {
	TokensDeleted           int `json:"tokens_deleted"`
	RateLimitRecordsDeleted int `json:"rate_limit_records_deleted"`
}
