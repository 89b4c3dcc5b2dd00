package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Tokens      *TokenRepository
	DispatchLog *DispatchLogRepository
	Users       *UserDirectory
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Tokens:      NewTokenRepository(pool),
		DispatchLog: NewDispatchLogRepository(pool),
		Users:       NewUserDirectory(pool),
	}
}
