package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
	"github.com/arklim/commerce-platform-verify/internal/infra/config"
	"github.com/arklim/commerce-platform-verify/internal/infra/logger"
	"github.com/arklim/commerce-platform-verify/internal/infra/security"
)

const (
	tokenByteLength        = 32
	numericCodeLength      = 4
	alphanumericCodeLength = 6

	defaultDispatchTimeout = 5 * time.Second

	failReasonExpired   = "expired"
	failReasonExhausted = "attempts_exceeded"
)

// VerificationService orchestrates code issuance and confirmation. It is
// stateless between calls; all state lives in the token store and the
// rate-limit store.
type VerificationService struct {
	cfg             *config.AppConfig
	tokens          port.TokenRepository
	limiter         *RateLimiter
	gateway         port.ChannelGateway
	dispatchLog     port.DispatchLog
	users           port.UserDirectory
	events          port.EventPublisher
	logger          *zap.Logger
	now             func() time.Time
	dispatchTimeout time.Duration
}

// StartVerificationInput captures a request to issue a verification code.
type StartVerificationInput struct {
	Kind      domain.Kind
	UserID    string
	Email     string
	Phone     string
	IP        string
	UserAgent string
}

// StartVerificationResult is handed back to the caller: the bearer token
// addresses the later confirmation call, the code is what the human retypes.
type StartVerificationResult struct {
	TokenID           string
	Token             string
	Code              string
	Delivery          domain.Channel
	MaskedDestination string
	ExpiresAt         time.Time
}

// ConfirmVerificationResult describes a successful confirmation.
type ConfirmVerificationResult struct {
	TokenID    string
	UserID     *string
	Kind       domain.Kind
	VerifiedAt time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(cfg *config.AppConfig, tokens port.TokenRepository, limiter *RateLimiter, gateway port.ChannelGateway, dispatchLog port.DispatchLog, users port.UserDirectory, events port.EventPublisher, log *zap.Logger) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}

	timeout := defaultDispatchTimeout
	if cfg != nil && cfg.Verification.DispatchTimeout > 0 {
		timeout = cfg.Verification.DispatchTimeout
	}

	return &VerificationService{
		cfg:             cfg,
		tokens:          tokens,
		limiter:         limiter,
		gateway:         gateway,
		dispatchLog:     dispatchLog,
		users:           users,
		events:          events,
		logger:          log,
		now:             time.Now,
		dispatchTimeout: timeout,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *VerificationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// TTLFor returns the token lifetime for a kind, honoring config overrides.
func (s *VerificationService) TTLFor(kind domain.Kind) time.Duration {
	if s.cfg != nil {
		if override, ok := s.cfg.Verification.Kinds[string(kind)]; ok && override.TTL > 0 {
			return override.TTL
		}
	}
	return kind.TTL()
}

// MaxAttemptsFor returns the confirmation attempt budget for a kind.
func (s *VerificationService) MaxAttemptsFor(kind domain.Kind) int {
	if s.cfg != nil {
		if override, ok := s.cfg.Verification.Kinds[string(kind)]; ok && override.MaxAttempts > 0 {
			return override.MaxAttempts
		}
	}
	return kind.MaxAttempts()
}

// StartVerification gates the request through the rate limiter, persists a
// pending token, and dispatches the code over the kind's channel. A dispatch
// failure leaves the token row pending but unreachable; retrying issues a
// fresh token and the old one expires naturally.
func (s *VerificationService) StartVerification(ctx context.Context, input StartVerificationInput) (*StartVerificationResult, error) {
	if s.tokens == nil || s.gateway == nil {
		return nil, errors.New("verification service not configured")
	}

	kind := input.Kind
	if !kind.Valid() {
		return nil, domain.ErrUnknownKind
	}

	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)

	var destination string
	switch kind.Channel() {
	case domain.ChannelEmail:
		destination = email
	case domain.ChannelSMS:
		destination = phone
	}
	if destination == "" {
		return nil, domain.ErrDestinationRequired
	}

	identifier := rateLimitIdentifier(destination, input.IP, kind)

	if decision := s.limiter.Check(ctx, identifier, kind); !decision.Allowed {
		s.logger.Info("start verification rate limited",
			zap.String("kind", string(kind)),
			zap.String("identifier", maskIdentifier(kind, identifier)),
			zap.Duration("retry_after", decision.RetryAfter))
		return nil, &RateLimitedError{Kind: string(kind), RetryAfter: decision.RetryAfter}
	}

	raw, err := security.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	code, err := generateCode(kind)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.TTLFor(kind))
	maxAttempts := s.MaxAttemptsFor(kind)
	id := uuid.NewString()

	var token domain.VerificationToken
	if kind.Channel() == domain.ChannelEmail {
		token, err = domain.NewEmailVerification(id, kind, destination, security.HashToken(raw), code, maxAttempts, now, expiresAt)
	} else {
		token, err = domain.NewPhoneVerification(id, kind, destination, security.HashToken(raw), code, maxAttempts, now, expiresAt)
	}
	if err != nil {
		return nil, err
	}

	if userID := strings.TrimSpace(input.UserID); userID != "" {
		token.UserID = &userID
	}
	token.IP = stringPtrOrNil(input.IP)
	token.UserAgent = stringPtrOrNil(input.UserAgent)

	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store verification token: %w", err)
	}

	outcome := s.dispatch(ctx, token, destination, code)
	s.appendDispatchRecord(ctx, token, destination, outcome)

	if !outcome.Success {
		s.logger.Warn("verification dispatch failed",
			zap.String("kind", string(kind)),
			zap.String("destination", maskIdentifier(kind, destination)),
			zap.Stringp("provider_error", outcome.Error))
		return nil, ErrDispatchFailed
	}

	s.limiter.Record(ctx, identifier, kind)
	s.publishRequestedEvent(ctx, token, destination, input.IP)

	return &StartVerificationResult{
		TokenID:           token.ID,
		Token:             raw,
		Code:              code,
		Delivery:          kind.Channel(),
		MaskedDestination: maskIdentifier(kind, destination),
		ExpiresAt:         expiresAt,
	}, nil
}

// ConfirmVerification validates a submitted code against the token it was
// issued for and advances the token's state machine.
//
// The attempt counter is incremented and persisted before the code is
// compared, so a crash between comparison and persistence can never grant
// extra retries, and two concurrent confirmations observe distinct counts.
func (s *VerificationService) ConfirmVerification(ctx context.Context, rawToken, code string) (*ConfirmVerificationResult, error) {
	if s.tokens == nil {
		return nil, errors.New("verification service not configured")
	}

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	token, err := s.tokens.GetByTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}

	now := s.now().UTC()

	if token.IsExpired(now) {
		if token.Status == domain.StatusPending {
			if err := s.tokens.UpdateStatus(ctx, token.ID, domain.StatusExpired, nil, now); err != nil {
				return nil, fmt.Errorf("expire verification token: %w", err)
			}
			s.publishFailedEvent(ctx, *token, failReasonExpired, now, token.AttemptCount)
		}
		return nil, ErrExpired
	}

	if token.Status == domain.StatusVerified {
		return nil, ErrAlreadyCompleted
	}
	if token.Status == domain.StatusFailed {
		return nil, ErrAttemptsExceeded
	}

	if token.AttemptsExhausted() {
		if err := s.tokens.UpdateStatus(ctx, token.ID, domain.StatusFailed, nil, now); err != nil {
			return nil, fmt.Errorf("fail verification token: %w", err)
		}
		s.publishFailedEvent(ctx, *token, failReasonExhausted, now, token.AttemptCount)
		return nil, ErrAttemptsExceeded
	}

	attempts, err := s.tokens.IncrementAttemptAndFetch(ctx, token.ID, now)
	if err != nil {
		return nil, fmt.Errorf("increment verification attempts: %w", err)
	}

	if !security.ConstantTimeEquals(code, token.Code) {
		if attempts >= token.MaxAttempts {
			if err := s.tokens.UpdateStatus(ctx, token.ID, domain.StatusFailed, nil, now); err != nil {
				return nil, fmt.Errorf("fail verification token: %w", err)
			}
			s.publishFailedEvent(ctx, *token, failReasonExhausted, now, attempts)
			return nil, ErrAttemptsExceeded
		}
		return nil, &CodeMismatchError{AttemptsRemaining: token.MaxAttempts - attempts}
	}

	verifiedAt := now
	if err := s.tokens.UpdateStatus(ctx, token.ID, domain.StatusVerified, &verifiedAt, now); err != nil {
		return nil, fmt.Errorf("complete verification token: %w", err)
	}

	s.publishCompletedEvent(ctx, *token, verifiedAt, attempts)

	return &ConfirmVerificationResult{
		TokenID:    token.ID,
		UserID:     token.UserID,
		Kind:       token.Kind,
		VerifiedAt: verifiedAt,
	}, nil
}

func (s *VerificationService) dispatch(ctx context.Context, token domain.VerificationToken, destination, code string) domain.DispatchOutcome {
	sendCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	if token.Kind.Channel() == domain.ChannelSMS {
		return s.gateway.SendSMSCode(sendCtx, destination, code, token.Kind)
	}

	tpl := port.EmailTemplateContext{
		ExpiresIn: token.ExpiresAt.Sub(token.CreatedAt).String(),
	}
	if s.users != nil && token.UserID != nil {
		if user, err := s.users.FindByID(sendCtx, *token.UserID); err == nil && user != nil {
			tpl.RecipientName = user.Name
		} else if err != nil && !isNotFound(err) {
			s.logger.Warn("user directory lookup failed", zap.Error(err))
		}
	}

	return s.gateway.SendEmailCode(sendCtx, destination, code, token.Kind, tpl)
}

func (s *VerificationService) appendDispatchRecord(ctx context.Context, token domain.VerificationToken, destination string, outcome domain.DispatchOutcome) {
	if s.dispatchLog == nil {
		return
	}

	status := domain.DispatchStatusSent
	if !outcome.Success {
		status = domain.DispatchStatusFailed
	}

	record := domain.DispatchRecord{
		ID:          uuid.NewString(),
		TokenID:     token.ID,
		Kind:        token.Kind,
		Channel:     token.Kind.Channel(),
		Destination: destination,
		Status:      status,
		ProviderID:  outcome.ProviderID,
		Error:       outcome.Error,
		Cost:        outcome.Cost,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.dispatchLog.Append(ctx, record); err != nil {
		s.logger.Warn("append dispatch record failed",
			zap.String("token_id", token.ID), zap.Error(err))
	}
}

func (s *VerificationService) publishRequestedEvent(ctx context.Context, token domain.VerificationToken, destination, ip string) {
	if s.events == nil {
		return
	}

	event := domain.VerificationRequestedEvent{
		EventID:           uuid.NewString(),
		TokenID:           token.ID,
		UserID:            token.UserID,
		Kind:              token.Kind,
		Channel:           token.Kind.Channel(),
		MaskedDestination: maskIdentifier(token.Kind, destination),
		RequestedAt:       token.CreatedAt,
		ExpiresAt:         token.ExpiresAt,
		IPAddress:         stringPtrOrNil(ip),
	}

	if err := s.events.PublishVerificationRequested(ctx, event); err != nil {
		s.logger.Warn("publish verification requested failed",
			zap.String("token_id", token.ID), zap.Error(err))
	}
}

func (s *VerificationService) publishCompletedEvent(ctx context.Context, token domain.VerificationToken, at time.Time, attempts int) {
	if s.events == nil {
		return
	}

	event := domain.VerificationCompletedEvent{
		EventID:     uuid.NewString(),
		TokenID:     token.ID,
		UserID:      token.UserID,
		Kind:        token.Kind,
		CompletedAt: at,
		Attempts:    attempts,
	}

	if err := s.events.PublishVerificationCompleted(ctx, event); err != nil {
		s.logger.Warn("publish verification completed failed",
			zap.String("token_id", token.ID), zap.Error(err))
	}
}

func (s *VerificationService) publishFailedEvent(ctx context.Context, token domain.VerificationToken, reason string, at time.Time, attempts int) {
	if s.events == nil {
		return
	}

	event := domain.VerificationFailedEvent{
		EventID:  uuid.NewString(),
		TokenID:  token.ID,
		UserID:   token.UserID,
		Kind:     token.Kind,
		Reason:   reason,
		FailedAt: at,
		Attempts: attempts,
	}

	if err := s.events.PublishVerificationFailed(ctx, event); err != nil {
		s.logger.Warn("publish verification failed event failed",
			zap.String("token_id", token.ID), zap.Error(err))
	}
}

func generateCode(kind domain.Kind) (string, error) {
	if kind.Channel() == domain.ChannelSMS {
		return security.GenerateNumericCode(numericCodeLength)
	}
	return security.GenerateAlphanumericCode(alphanumericCodeLength)
}

// rateLimitIdentifier scopes throttling to the destination when one is
// present, falling back to an ip:kind composite for unauthenticated contexts.
func rateLimitIdentifier(destination, ip string, kind domain.Kind) string {
	if destination != "" {
		return destination
	}
	return fmt.Sprintf("ip:%s:%s", strings.TrimSpace(ip), kind)
}

func maskIdentifier(kind domain.Kind, value string) string {
	switch kind.Channel() {
	case domain.ChannelSMS:
		return logger.MaskPhone(value)
	default:
		return logger.MaskEmail(value)
	}
}

func stringPtrOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
