package usecase

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
	"github.com/arklim/commerce-platform-verify/internal/infra/config"
)

const (
	defaultSweepInterval  = 24 * time.Hour
	defaultSweepBatchSize = 500
)

// SweepResult summarizes one reaping pass.
type SweepResult struct {
	TokensDeleted           int
	RateLimitRecordsDeleted int
}

// RetentionSweeper reaps terminal tokens past their retention horizon and
// rate-limit windows that have closed. It deletes in small batches so it
// never holds long-lived locks that could starve live traffic. A missed or
// failed sweep only delays storage reclamation; the next run catches up.
type RetentionSweeper struct {
	tokens     port.TokenRepository
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time

	interval          time.Duration
	batchSize         int
	terminalRetention time.Duration
	verifiedRetention time.Duration
	window            time.Duration
}

// NewRetentionSweeper constructs a RetentionSweeper from retention settings.
func NewRetentionSweeper(cfg *config.AppConfig, tokens port.TokenRepository, rateLimits port.RateLimitStore, events port.EventPublisher, log *zap.Logger) *RetentionSweeper {
	if log == nil {
		log = zap.NewNop()
	}

	sweeper := &RetentionSweeper{
		tokens:            tokens,
		rateLimits:        rateLimits,
		events:            events,
		logger:            log,
		now:               time.Now,
		interval:          defaultSweepInterval,
		batchSize:         defaultSweepBatchSize,
		terminalRetention: domain.TerminalRetention,
		verifiedRetention: domain.VerifiedRetention,
		window:            domain.RateLimitWindow,
	}

	if cfg != nil {
		if cfg.Retention.SweepInterval > 0 {
			sweeper.interval = cfg.Retention.SweepInterval
		}
		if cfg.Retention.SweepBatchSize > 0 {
			sweeper.batchSize = cfg.Retention.SweepBatchSize
		}
		if cfg.Retention.TerminalRetention > 0 {
			sweeper.terminalRetention = cfg.Retention.TerminalRetention
		}
		if cfg.Retention.VerifiedRetention > 0 {
			sweeper.verifiedRetention = cfg.Retention.VerifiedRetention
		}
		if cfg.Verification.WindowDuration > 0 {
			sweeper.window = cfg.Verification.WindowDuration
		}
	}

	return sweeper
}

// WithClock allows tests to override the clock used by the sweeper.
func (s *RetentionSweeper) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// SweepExpired deletes tokens and rate-limit windows past retention and
// reports how many rows each pass removed. Running it twice in a row with no
// new data deletes nothing on the second run.
func (s *RetentionSweeper) SweepExpired(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := s.now().UTC()

	if s.tokens != nil {
		failedExpiredBefore := now.Add(-s.terminalRetention)
		verifiedBefore := now.Add(-s.verifiedRetention)

		for {
			deleted, err := s.tokens.DeleteTerminalBefore(ctx, failedExpiredBefore, verifiedBefore, s.batchSize)
			if err != nil {
				return result, fmt.Errorf("delete terminal tokens: %w", err)
			}
			result.TokensDeleted += deleted
			if deleted < s.batchSize {
				break
			}
		}
	}

	if s.rateLimits != nil {
		deleted, err := s.rateLimits.DeleteExpiredWindows(ctx, s.window, now)
		if err != nil {
			return result, fmt.Errorf("delete expired rate limit windows: %w", err)
		}
		result.RateLimitRecordsDeleted = deleted
	}

	s.publishSweptEvent(ctx, now, result)

	return result, nil
}

// Run executes SweepExpired on a fixed interval until the context is
// canceled. Per-run failures are logged and retried on the next tick.
func (s *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("retention sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			result, err := s.SweepExpired(ctx)
			if err != nil {
				s.logger.Warn("retention sweep failed", zap.Error(err))
				continue
			}
			s.logger.Info("retention sweep completed",
				zap.Int("tokens_deleted", result.TokensDeleted),
				zap.Int("rate_limit_records_deleted", result.RateLimitRecordsDeleted))
		}
	}
}

func (s *RetentionSweeper) publishSweptEvent(ctx context.Context, at time.Time, result SweepResult) {
	if s.events == nil {
		return
	}

	event := domain.RetentionSweptEvent{
		EventID:                 uuid.NewString(),
		SweptAt:                 at,
		TokensDeleted:           result.TokensDeleted,
		RateLimitRecordsDeleted: result.RateLimitRecordsDeleted,
	}

	if err := s.events.PublishRetentionSwept(ctx, event); err != nil {
		s.logger.Warn("publish retention swept failed", zap.Error(err))
	}
}
