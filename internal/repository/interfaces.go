package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
)

var (
	// ErrNotFound signals that no live record matches the lookup.
	ErrNotFound = errors.New("token not found")
	// ErrUnavailable signals the backing store could not be reached at all,
	// including timed-out calls. Distinct from a failed write.
	ErrUnavailable = errors.New("token store unavailable")
)

// TokenStore persists single-use anti-forgery token records.
type TokenStore interface {
	// Insert persists a new record. Returns ErrUnavailable when the store is
	// unreachable; any other persistence failure is a wrapped write error.
	Insert(ctx context.Context, rec domain.CSRFToken) error
	// FindByHash returns the live record for the digest, or ErrNotFound.
	FindByHash(ctx context.Context, hash string) (domain.CSRFToken, error)
	// Delete removes a record by id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id int64) error
	// ConsumeByHash atomically removes and returns the record for the digest,
	// so acceptance and single-use consumption are indivisible under
	// concurrent validation of the same token. Returns ErrNotFound when no
	// live record matches.
	ConsumeByHash(ctx context.Context, hash string) (domain.CSRFToken, error)
	// DeleteExpired removes every record whose expiry is at or before now in
	// one bulk statement and returns the count removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// WatchlistRepository persists parcels a user tracks.
type WatchlistRepository interface {
	Add(ctx context.Context, entry domain.WatchlistEntry) (domain.WatchlistEntry, error)
	ListByUser(ctx context.Context, userID string) ([]domain.WatchlistEntry, error)
	Remove(ctx context.Context, userID string, id int64) error
}
