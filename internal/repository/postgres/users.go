package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
	"github.com/arklim/commerce-platform-verify/internal/repository"
)

// UserDirectory implements port.UserDirectory against the platform's users
// table. The engine only ever reads from it.
type UserDirectory struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserDirectory constructs a read-only user directory.
func NewUserDirectory(exec pgExecutor) *UserDirectory {
	return &UserDirectory{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindByID fetches the minimal user view used for message personalization.
func (r *UserDirectory) FindByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"name",
		"email",
		"phone",
		"registered_at",
	).
		From("verify.users").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		user  domain.User
		phone sql.NullString
	)

	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &phone, &user.RegisteredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if phone.Valid {
		value := phone.String
		user.Phone = &value
	}

	return &user, nil
}

var _ port.UserDirectory = (*UserDirectory)(nil)
