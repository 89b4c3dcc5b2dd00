package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
	"github.com/arklim/commerce-platform-verify/internal/repository"
)

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a new token repository.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	return &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new verification token record.
func (r *TokenRepository) Create(ctx context.Context, token domain.VerificationToken) error {
	stmt, args, err := r.builder.Insert("verify.verification_tokens").
		Columns(
			"id",
			"user_id",
			"kind",
			"destination_email",
			"destination_phone",
			"token_hash",
			"code",
			"status",
			"attempt_count",
			"max_attempts",
			"ip",
			"user_agent",
			"created_at",
			"updated_at",
			"expires_at",
			"verified_at",
		).
		Values(
			token.ID,
			token.UserID,
			string(token.Kind),
			token.DestinationEmail,
			token.DestinationPhone,
			token.TokenHash,
			token.Code,
			string(token.Status),
			token.AttemptCount,
			token.MaxAttempts,
			token.IP,
			token.UserAgent,
			token.CreatedAt,
			token.UpdatedAt,
			token.ExpiresAt,
			token.VerifiedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert verification token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert verification token: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a verification token by the hash of its bearer token.
func (r *TokenRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.VerificationToken, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"user_id",
		"kind",
		"destination_email",
		"destination_phone",
		"token_hash",
		"code",
		"status",
		"attempt_count",
		"max_attempts",
		"ip",
		"user_agent",
		"created_at",
		"updated_at",
		"expires_at",
		"verified_at",
	).
		From("verify.verification_tokens").
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select verification token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		token      domain.VerificationToken
		kind       string
		status     string
		userID     sql.NullString
		email      sql.NullString
		phone      sql.NullString
		ip         sql.NullString
		userAgent  sql.NullString
		verifiedAt sql.NullTime
	)

	if err := row.Scan(
		&token.ID,
		&userID,
		&kind,
		&email,
		&phone,
		&token.TokenHash,
		&token.Code,
		&status,
		&token.AttemptCount,
		&token.MaxAttempts,
		&ip,
		&userAgent,
		&token.CreatedAt,
		&token.UpdatedAt,
		&token.ExpiresAt,
		&verifiedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification token: %w", err)
	}

	token.Kind = domain.Kind(kind)
	token.Status = domain.Status(status)

	if userID.Valid {
		value := userID.String
		token.UserID = &value
	}
	if email.Valid {
		value := email.String
		token.DestinationEmail = &value
	}
	if phone.Valid {
		value := phone.String
		token.DestinationPhone = &value
	}
	if ip.Valid {
		value := ip.String
		token.IP = &value
	}
	if userAgent.Valid {
		value := userAgent.String
		token.UserAgent = &value
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		token.VerifiedAt = &t
	}

	return &token, nil
}

// IncrementAttemptAndFetch bumps the attempt counter in a single statement
// and returns the post-increment value. Concurrent callers are serialized by
// row-level locking, so each observes a distinct count.
func (r *TokenRepository) IncrementAttemptAndFetch(ctx context.Context, id string, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update("verify.verification_tokens").
		Set("attempt_count", squirrel.Expr("attempt_count + 1")).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING attempt_count").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment attempt sql: %w", err)
	}

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment verification attempts: %w", err)
	}

	return attempts, nil
}

// UpdateStatus transitions a pending token to a terminal status. The pending
// guard keeps transitions monotonic even under concurrent confirmations.
func (r *TokenRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, verifiedAt *time.Time, at time.Time) error {
	stmt, args, err := r.builder.Update("verify.verification_tokens").
		Set("status", string(status)).
		Set("verified_at", verifiedAt).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id, "status": string(domain.StatusPending)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update status sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update verification status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteTerminalBefore removes one batch of terminal tokens past retention:
// failed/expired rows whose deadline predates failedExpiredBefore, and
// verified rows whose verification predates verifiedBefore.
func (r *TokenRepository) DeleteTerminalBefore(ctx context.Context, failedExpiredBefore, verifiedBefore time.Time, batch int) (int, error) {
	if batch <= 0 {
		return 0, errors.New("batch must be positive")
	}

	stmt, args, err := r.builder.Delete("verify.verification_tokens").
		Where(squirrel.Expr(
			`id IN (
				SELECT id FROM verify.verification_tokens
				WHERE (status IN ('failed', 'expired') AND expires_at < ?)
				   OR (status = 'verified' AND verified_at < ?)
				LIMIT ?
			)`,
			failedExpiredBefore,
			verifiedBefore,
			batch,
		)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete terminal tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete terminal tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
