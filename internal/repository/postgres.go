package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
)

// Compile-time interface assertions.
var (
	_ TokenStore          = (*PostgresTokenStore)(nil)
	_ WatchlistRepository = (*PostgresWatchlistRepo)(nil)
)

// PostgresTokenStore implements TokenStore on a pgx pool.
type PostgresTokenStore struct {
	db *pgxpool.Pool
}

func NewPostgresTokenStore(pool *pgxpool.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{db: pool}
}

const insertTokenSQL = `INSERT INTO csrf_tokens (id, token_hash, session_ref, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5)`

func (s *PostgresTokenStore) Insert(ctx context.Context, rec domain.CSRFToken) error {
	if _, err := s.db.Exec(ctx, insertTokenSQL, rec.ID, rec.TokenHash, rec.SessionRef, rec.ExpiresAt, rec.CreatedAt); err != nil {
		if unreachable(err) {
			return fmt.Errorf("insert token: %w", ErrUnavailable)
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

const findByHashSQL = `SELECT id, token_hash, session_ref, expires_at, created_at
FROM csrf_tokens
WHERE token_hash = $1
LIMIT 1`

func (s *PostgresTokenStore) FindByHash(ctx context.Context, hash string) (domain.CSRFToken, error) {
	var rec domain.CSRFToken
	err := s.db.QueryRow(ctx, findByHashSQL, hash).Scan(&rec.ID, &rec.TokenHash, &rec.SessionRef, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CSRFToken{}, ErrNotFound
		}
		if unreachable(err) {
			return domain.CSRFToken{}, fmt.Errorf("find token: %w", ErrUnavailable)
		}
		return domain.CSRFToken{}, fmt.Errorf("find token: %w", err)
	}
	return rec, nil
}

func (s *PostgresTokenStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM csrf_tokens WHERE id = $1`, id); err != nil {
		if unreachable(err) {
			return fmt.Errorf("delete token: %w", ErrUnavailable)
		}
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// DELETE ... RETURNING makes the read and the single-use delete one statement.
const consumeByHashSQL = `DELETE FROM csrf_tokens
WHERE token_hash = $1
RETURNING id, token_hash, session_ref, expires_at, created_at`

func (s *PostgresTokenStore) ConsumeByHash(ctx context.Context, hash string) (domain.CSRFToken, error) {
	var rec domain.CSRFToken
	err := s.db.QueryRow(ctx, consumeByHashSQL, hash).Scan(&rec.ID, &rec.TokenHash, &rec.SessionRef, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CSRFToken{}, ErrNotFound
		}
		if unreachable(err) {
			return domain.CSRFToken{}, fmt.Errorf("consume token: %w", ErrUnavailable)
		}
		return domain.CSRFToken{}, fmt.Errorf("consume token: %w", err)
	}
	return rec, nil
}

func (s *PostgresTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM csrf_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		if unreachable(err) {
			return 0, fmt.Errorf("delete expired tokens: %w", ErrUnavailable)
		}
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// unreachable classifies transport-level failures (connection refused, DNS,
// timed-out calls) as distinct from errors the server itself reported.
func unreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}

// PostgresWatchlistRepo implements WatchlistRepository.
type PostgresWatchlistRepo struct {
	db *pgxpool.Pool
}

func NewPostgresWatchlistRepo(pool *pgxpool.Pool) *PostgresWatchlistRepo {
	return &PostgresWatchlistRepo{db: pool}
}

const insertWatchlistSQL = `INSERT INTO watchlist_entries (id, user_id, parcel_id, county, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, parcel_id, county, notes, created_at`

func (r *PostgresWatchlistRepo) Add(ctx context.Context, entry domain.WatchlistEntry) (domain.WatchlistEntry, error) {
	row := r.db.QueryRow(ctx, insertWatchlistSQL, entry.ID, entry.UserID, entry.ParcelID, entry.County, entry.Notes, entry.CreatedAt)
	var inserted domain.WatchlistEntry
	if err := row.Scan(&inserted.ID, &inserted.UserID, &inserted.ParcelID, &inserted.County, &inserted.Notes, &inserted.CreatedAt); err != nil {
		return domain.WatchlistEntry{}, fmt.Errorf("add watchlist entry: %w", err)
	}
	return inserted, nil
}

const listWatchlistSQL = `SELECT id, user_id, parcel_id, county, notes, created_at
FROM watchlist_entries
WHERE user_id = $1
ORDER BY created_at DESC`

func (r *PostgresWatchlistRepo) ListByUser(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	rows, err := r.db.Query(ctx, listWatchlistSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []domain.WatchlistEntry
	for rows.Next() {
		var e domain.WatchlistEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ParcelID, &e.County, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return entries, nil
}

func (r *PostgresWatchlistRepo) Remove(ctx context.Context, userID string, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM watchlist_entries WHERE user_id = $1 AND id = $2`, userID, id); err != nil {
		return fmt.Errorf("remove watchlist entry: %w", err)
	}
	return nil
}
