package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/commerce-platform-verify/internal/infra/config"
)

func TestRetentionSweeper_SweepExpired_DrainsBatches(t *testing.T) {
	cfg := &config.AppConfig{
		Retention: config.RetentionSettings{SweepBatchSize: 2},
	}
	tokens := newTokenRepoMock()
	tokens.deletedPerCall = []int{2, 2, 1}
	store := &rateLimitStoreMock{deletedWindows: 3}
	events := &eventPublisherMock{}

	sweeper := NewRetentionSweeper(cfg, tokens, store, events, nil)
	fixed := time.Date(2025, 11, 3, 4, 0, 0, 0, time.UTC)
	sweeper.WithClock(func() time.Time { return fixed })

	result, err := sweeper.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired returned error: %v", err)
	}
	if result.TokensDeleted != 5 {
		t.Fatalf("expected 5 tokens deleted across batches, got %d", result.TokensDeleted)
	}
	if result.RateLimitRecordsDeleted != 3 {
		t.Fatalf("expected 3 rate limit records deleted, got %d", result.RateLimitRecordsDeleted)
	}
	if tokens.deleteCallCount != 3 {
		t.Fatalf("expected 3 delete batches, got %d", tokens.deleteCallCount)
	}
	if len(events.swept) != 1 {
		t.Fatalf("expected one swept event, got %d", len(events.swept))
	}
	if events.swept[0].TokensDeleted != 5 || events.swept[0].RateLimitRecordsDeleted != 3 {
		t.Fatalf("unexpected swept event payload %+v", events.swept[0])
	}
}

func TestRetentionSweeper_SweepExpired_Idempotent(t *testing.T) {
	tokens := newTokenRepoMock()
	tokens.deletedPerCall = []int{4}
	store := &rateLimitStoreMock{deletedWindows: 2}

	sweeper := NewRetentionSweeper(&config.AppConfig{}, tokens, store, nil, nil)

	first, err := sweeper.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("first sweep returned error: %v", err)
	}
	if first.TokensDeleted != 4 {
		t.Fatalf("expected 4 tokens on first sweep, got %d", first.TokensDeleted)
	}

	store.deletedWindows = 0
	second, err := sweeper.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("second sweep returned error: %v", err)
	}
	if second.TokensDeleted != 0 || second.RateLimitRecordsDeleted != 0 {
		t.Fatalf("expected empty second sweep, got %+v", second)
	}
}

func TestRetentionSweeper_SweepExpired_PropagatesStoreError(t *testing.T) {
	tokens := newTokenRepoMock()
	store := &rateLimitStoreMock{deleteErr: errors.New("redis unavailable")}

	sweeper := NewRetentionSweeper(&config.AppConfig{}, tokens, store, nil, nil)

	if _, err := sweeper.SweepExpired(context.Background()); err == nil {
		t.Fatalf("expected error from rate limit cleanup")
	}
}
