package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/repository"
)

func TestTokenRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	createdAt := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	expiresAt := createdAt.Add(24 * time.Hour)
	token, err := domain.NewEmailVerification("tok-1", domain.KindEmailRegistration, "john.doe@example.com", "hash-1", "ABC234", 5, createdAt, expiresAt)
	if err != nil {
		t.Fatalf("build token: %v", err)
	}

	mock.ExpectExec(`INSERT INTO verify\.verification_tokens`).
		WithArgs(
			token.ID,
			token.UserID,
			"email_registration",
			token.DestinationEmail,
			token.DestinationPhone,
			token.TokenHash,
			token.Code,
			"pending",
			token.AttemptCount,
			token.MaxAttempts,
			token.IP,
			token.UserAgent,
			token.CreatedAt,
			token.UpdatedAt,
			token.ExpiresAt,
			token.VerifiedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_GetByTokenHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	createdAt := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	expiresAt := createdAt.Add(10 * time.Minute)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "kind", "destination_email", "destination_phone", "token_hash", "code",
		"status", "attempt_count", "max_attempts", "ip", "user_agent", "created_at", "updated_at",
		"expires_at", "verified_at",
	}).AddRow(
		"tok-1", "user-42", "login_2fa", nil, "+12065550123", "hash-1", "4821",
		"pending", 1, 3, "198.51.100.10", "CLI", createdAt, createdAt,
		expiresAt, nil,
	)

	mock.ExpectQuery(`SELECT .+ FROM verify\.verification_tokens WHERE token_hash = \$1`).
		WithArgs("hash-1").
		WillReturnRows(rows)

	token, err := repo.GetByTokenHash(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("GetByTokenHash returned error: %v", err)
	}

	if token.ID != "tok-1" {
		t.Fatalf("unexpected id %s", token.ID)
	}
	if token.Kind != domain.KindLogin2FA || token.Status != domain.StatusPending {
		t.Fatalf("unexpected kind/status %s/%s", token.Kind, token.Status)
	}
	if token.UserID == nil || *token.UserID != "user-42" {
		t.Fatalf("expected user id mapped")
	}
	if token.DestinationPhone == nil || *token.DestinationPhone != "+12065550123" {
		t.Fatalf("expected phone destination mapped")
	}
	if token.DestinationEmail != nil {
		t.Fatalf("expected nil email destination")
	}
	if token.AttemptCount != 1 || token.MaxAttempts != 3 {
		t.Fatalf("unexpected attempt counters %d/%d", token.AttemptCount, token.MaxAttempts)
	}
	if token.VerifiedAt != nil {
		t.Fatalf("expected nil verified_at")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_GetByTokenHash_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM verify\.verification_tokens`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByTokenHash(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenRepository_IncrementAttemptAndFetch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	at := time.Date(2025, 11, 3, 9, 5, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"attempt_count"}).AddRow(2)

	mock.ExpectQuery(`UPDATE verify\.verification_tokens SET attempt_count = attempt_count \+ 1`).
		WithArgs(at, "tok-1").
		WillReturnRows(rows)

	attempts, err := repo.IncrementAttemptAndFetch(context.Background(), "tok-1", at)
	if err != nil {
		t.Fatalf("IncrementAttemptAndFetch returned error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected post-increment count 2, got %d", attempts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_UpdateStatus_PendingGuard(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	at := time.Date(2025, 11, 3, 9, 5, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE verify\.verification_tokens SET status = \$1`).
		WithArgs("failed", (*time.Time)(nil), at, "tok-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), "tok-1", domain.StatusFailed, nil, at)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound when token is no longer pending, got %v", err)
	}
}

func TestTokenRepository_UpdateStatus_Verified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	at := time.Date(2025, 11, 3, 9, 5, 0, 0, time.UTC)
	verifiedAt := at

	mock.ExpectExec(`UPDATE verify\.verification_tokens SET status = \$1`).
		WithArgs("verified", &verifiedAt, at, "tok-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateStatus(context.Background(), "tok-1", domain.StatusVerified, &verifiedAt, at); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteTerminalBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	failedExpiredBefore := time.Date(2025, 10, 27, 0, 0, 0, 0, time.UTC)
	verifiedBefore := time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM verify\.verification_tokens`).
		WithArgs(failedExpiredBefore, verifiedBefore, 500).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	deleted, err := repo.DeleteTerminalBefore(context.Background(), failedExpiredBefore, verifiedBefore, 500)
	if err != nil {
		t.Fatalf("DeleteTerminalBefore returned error: %v", err)
	}
	if deleted != 42 {
		t.Fatalf("expected 42 deleted, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
