package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/arklim/commerce-platform-verify/internal/core/domain"
	"github.com/arklim/commerce-platform-verify/internal/core/port"
)

// DispatchLogRepository appends gateway send outcomes to an audit table.
// Rows are written regardless of outcome and never updated or read back by
// the engine.
type DispatchLogRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDispatchLogRepository constructs a new dispatch log repository.
func NewDispatchLogRepository(exec pgExecutor) *DispatchLogRepository {
	return &DispatchLogRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts one dispatch record.
func (r *DispatchLogRepository) Append(ctx context.Context, record domain.DispatchRecord) error {
	stmt, args, err := r.builder.Insert("verify.dispatch_log").
		Columns(
			"id",
			"token_id",
			"kind",
			"channel",
			"destination",
			"status",
			"provider_id",
			"error",
			"cost",
			"created_at",
		).
		Values(
			record.ID,
			record.TokenID,
			string(record.Kind),
			string(record.Channel),
			record.Destination,
			string(record.Status),
			record.ProviderID,
			record.Error,
			record.Cost,
			record.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert dispatch record sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert dispatch record: %w", err)
	}

	return nil
}

var _ port.DispatchLog = (*DispatchLogRepository)(nil)
