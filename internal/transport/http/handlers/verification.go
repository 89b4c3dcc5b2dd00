package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/infra/telemetry"
	"github.com/arklim/commerce-platform-verify/internal/transport/http/middleware"
	"github.com/arklim/commerce-platform-verify/internal/usecase"
)

// VerificationHandler exposes endpoints for issuing and confirming one-time codes.
type VerificationHandler struct {
	service   *usecase.VerificationService
	telemetry *telemetry.Provider
	isDev     bool
}

func NewVerificationHandler(service *usecase.VerificationService, tel *telemetry.Provider, isDev bool) *VerificationHandler {
	return &VerificationHandler{
		service:   service,
		telemetry: tel,
		isDev:     isDev,
	}
}

// RegisterRoutes binds verification endpoints.
func (h *VerificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Start)
	r.POST("/confirm", h.Confirm)
}

// Start issues a new verification token and dispatches its code.
func (h *VerificationHandler) Start(c *gin.Context) {
	var req StartVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	kind := domain.Kind(strings.TrimSpace(req.Kind))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unsupported verification kind"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	input := usecase.StartVerificationInput{
		Kind:      kind,
		UserID:    strings.TrimSpace(req.UserID),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		IP:        reqCtx.IP,
		UserAgent: reqCtx.UserAgent,
	}

	result, err := h.service.StartVerification(c.Request.Context(), input)
	if err != nil {
		var rateErr *usecase.RateLimitedError
		if errors.As(err, &rateErr) {
			h.telemetry.RateLimited(string(kind))
			retryAfter := int(rateErr.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many verification requests"))
			return
		}

		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrDestinationRequired, Status: http.StatusBadRequest, Message: "destination is required for this verification kind"},
			{Err: domain.ErrKindChannelMismatch, Status: http.StatusBadRequest, Message: "destination does not match verification kind"},
			{Err: usecase.ErrDispatchFailed, Status: http.StatusBadGateway, Message: "failed to deliver verification code"},
		}, http.StatusInternalServerError, "failed to start verification")
		return
	}

	h.telemetry.CodeIssued(string(kind))

	resp := StartVerificationResponse{
		TokenID:           result.TokenID,
		Delivery:          string(result.Delivery),
		MaskedDestination: result.MaskedDestination,
		ExpiresAt:         result.ExpiresAt.UTC().Format(time.RFC3339),
	}

	// SECURITY: raw tokens and codes are only exposed in development mode.
	// In production they travel via the dispatch channel only.
	if h.isDev {
		if token := strings.TrimSpace(result.Token); token != "" {
			resp.DevToken = &token
		}
		if code := strings.TrimSpace(result.Code); code != "" {
			resp.DevCode = &code
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// Confirm redeems a verification token with the human-entered code.
func (h *VerificationHandler) Confirm(c *gin.Context) {
	var req ConfirmVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirmation payload"))
		return
	}

	result, err := h.service.ConfirmVerification(c.Request.Context(), strings.TrimSpace(req.Token), strings.TrimSpace(req.Code))
	if err != nil {
		h.telemetry.ConfirmOutcome(confirmOutcomeLabel(err))

		var mismatchErr *usecase.CodeMismatchError
		if errors.As(err, &mismatchErr) {
			c.JSON(http.StatusBadRequest, CodeMismatchResponse{
				Error:             "verification code is invalid",
				AttemptsRemaining: mismatchErr.AttemptsRemaining,
				TraceID:           middleware.GetTraceID(c),
			})
			return
		}

		// Invalid and expired tokens produce the same response so callers
		// cannot distinguish which tokens exist.
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidToken, Status: http.StatusGone, Message: "verification token is invalid or expired"},
			{Err: usecase.ErrExpired, Status: http.StatusGone, Message: "verification token is invalid or expired"},
			{Err: usecase.ErrAlreadyCompleted, Status: http.StatusConflict, Message: "verification already completed"},
			{Err: usecase.ErrAttemptsExceeded, Status: http.StatusGone, Message: "verification attempts exceeded"},
		}, http.StatusInternalServerError, "failed to confirm verification")
		return
	}

	h.telemetry.ConfirmOutcome("verified")

	c.JSON(http.StatusOK, ConfirmVerificationResponse{
		TokenID:    result.TokenID,
		UserID:     result.UserID,
		Kind:       string(result.Kind),
		VerifiedAt: result.VerifiedAt.UTC().Format(time.RFC3339),
	})
}

func confirmOutcomeLabel(err error) string {
	var mismatchErr *usecase.CodeMismatchError
	switch {
	case errors.As(err, &mismatchErr):
		return "code_mismatch"
	case errors.Is(err, usecase.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, usecase.ErrExpired):
		return "expired"
	case errors.Is(err, usecase.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, usecase.ErrAttemptsExceeded):
		return "attempts_exceeded"
	default:
		return "error"
	}
}
