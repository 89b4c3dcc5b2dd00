package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
)

func newTestRepository(t *testing.T) (*RateLimitRepository, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRateLimitRepository(client, "test:rate-limit"), mr
}

func TestRateLimitRepository_CurrentWindow_NoRecord(t *testing.T) {
	repo, _ := newTestRepository(t)

	record, err := repo.CurrentWindow(context.Background(), "a@b.com", domain.KindEmailRegistration, time.Hour, time.Now().UTC())
	if err != nil {
		t.Fatalf("CurrentWindow returned error: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %+v", record)
	}
}

func TestRateLimitRepository_IncrementCreatesWindow(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)

	count, err := repo.IncrementAttempt(ctx, "a@b.com", domain.KindEmailRegistration, time.Hour, now)
	if err != nil {
		t.Fatalf("IncrementAttempt returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	count, err = repo.IncrementAttempt(ctx, "a@b.com", domain.KindEmailRegistration, time.Hour, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("IncrementAttempt returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	record, err := repo.CurrentWindow(ctx, "a@b.com", domain.KindEmailRegistration, time.Hour, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("CurrentWindow returned error: %v", err)
	}
	if record == nil {
		t.Fatalf("expected active window")
	}
	if record.AttemptCount != 2 {
		t.Fatalf("expected 2 attempts, got %d", record.AttemptCount)
	}
	if !record.WindowStart.Equal(now) {
		t.Fatalf("expected window start %v, got %v", now, record.WindowStart)
	}
}

func TestRateLimitRepository_IncrementResetsStaleWindow(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	start := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	if _, err := repo.IncrementAttempt(ctx, "+79991112233", domain.KindLogin2FA, time.Hour, start); err != nil {
		t.Fatalf("IncrementAttempt returned error: %v", err)
	}

	later := start.Add(2 * time.Hour)
	count, err := repo.IncrementAttempt(ctx, "+79991112233", domain.KindLogin2FA, time.Hour, later)
	if err != nil {
		t.Fatalf("IncrementAttempt returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh window count 1, got %d", count)
	}

	record, err := repo.CurrentWindow(ctx, "+79991112233", domain.KindLogin2FA, time.Hour, later)
	if err != nil {
		t.Fatalf("CurrentWindow returned error: %v", err)
	}
	if record == nil || !record.WindowStart.Equal(later) {
		t.Fatalf("expected window restarted at %v, got %+v", later, record)
	}
}

func TestRateLimitRepository_CurrentWindow_IgnoresClosedWindow(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	start := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	if _, err := repo.IncrementAttempt(ctx, "a@b.com", domain.KindPasswordReset, time.Hour, start); err != nil {
		t.Fatalf("IncrementAttempt returned error: %v", err)
	}

	record, err := repo.CurrentWindow(ctx, "a@b.com", domain.KindPasswordReset, time.Hour, start.Add(61*time.Minute))
	if err != nil {
		t.Fatalf("CurrentWindow returned error: %v", err)
	}
	if record != nil {
		t.Fatalf("expected closed window to be ignored, got %+v", record)
	}
}

func TestRateLimitRepository_BlockedWindowSurvivesWindowEnd(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	start := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	if _, err := repo.IncrementAttempt(ctx, "+79991112233", domain.KindPhoneChange, time.Hour, start); err != nil {
		t.Fatalf("IncrementAttempt returned error: %v", err)
	}

	blockedUntil := start.Add(90 * time.Minute)
	if err := repo.SetBlockedUntil(ctx, "+79991112233", domain.KindPhoneChange, blockedUntil); err != nil {
		t.Fatalf("SetBlockedUntil returned error: %v", err)
	}

	record, err := repo.CurrentWindow(ctx, "+79991112233", domain.KindPhoneChange, time.Hour, start.Add(75*time.Minute))
	if err != nil {
		t.Fatalf("CurrentWindow returned error: %v", err)
	}
	if record == nil {
		t.Fatalf("expected blocked record to remain visible")
	}
	if !record.Blocked(start.Add(75 * time.Minute)) {
		t.Fatalf("expected record to report blocked")
	}
	if record.BlockedUntil == nil || !record.BlockedUntil.Equal(blockedUntil) {
		t.Fatalf("expected blocked until %v, got %+v", blockedUntil, record.BlockedUntil)
	}
}

func TestRateLimitRepository_DeleteExpiredWindows(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	start := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	if _, err := repo.IncrementAttempt(ctx, "stale@b.com", domain.KindEmailChange, time.Hour, start); err != nil {
		t.Fatalf("IncrementAttempt returned error: %v", err)
	}
	if _, err := repo.IncrementAttempt(ctx, "fresh@b.com", domain.KindEmailChange, time.Hour, start.Add(90*time.Minute)); err != nil {
		t.Fatalf("IncrementAttempt returned error: %v", err)
	}

	deleted, err := repo.DeleteExpiredWindows(ctx, time.Hour, start.Add(95*time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpiredWindows returned error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted window, got %d", deleted)
	}

	// Second pass with no new data deletes nothing.
	deleted, err = repo.DeleteExpiredWindows(ctx, time.Hour, start.Add(95*time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpiredWindows returned error: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected idempotent sweep, got %d deletions", deleted)
	}

	record, err := repo.CurrentWindow(ctx, "fresh@b.com", domain.KindEmailChange, time.Hour, start.Add(95*time.Minute))
	if err != nil {
		t.Fatalf("CurrentWindow returned error: %v", err)
	}
	if record == nil {
		t.Fatalf("expected fresh window to survive sweep")
	}
}
