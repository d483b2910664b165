package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const createTokensTableSQL = `CREATE TABLE IF NOT EXISTS csrf_tokens (
	id BIGINT PRIMARY KEY,
	token_hash CHAR(64) NOT NULL UNIQUE,
	session_ref TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createTokensExpiryIndexSQL = `CREATE INDEX IF NOT EXISTS csrf_tokens_expires_at_idx
ON csrf_tokens (expires_at)`

const createWatchlistTableSQL = `CREATE TABLE IF NOT EXISTS watchlist_entries (
	id BIGINT PRIMARY KEY,
	user_id TEXT NOT NULL,
	parcel_id TEXT NOT NULL,
	county TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the service's tables at startup if missing. A nil
// pool is tolerated so wiring variants without Postgres still start.
func EnsureSchema(lc fx.Lifecycle, pool *pgxpool.Pool, logger *zap.Logger) {
	if pool == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureSchema(ctx, pool, logger)
		},
	})
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for _, stmt := range []string{createTokensTableSQL, createTokensExpiryIndexSQL, createWatchlistTableSQL} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	if logger != nil {
		logger.Info("schema ensured")
	}
	return nil
}
