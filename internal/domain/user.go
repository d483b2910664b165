package domain

import "time"

// Identity is the authenticated caller as reported by the identity service.
type Identity struct {
	UserID string
	Role   string
}

// WatchlistEntry tracks a parcel a user follows ahead of a tax deed sale.
type WatchlistEntry struct {
	ID        int64
	UserID    string
	ParcelID  string
	County    string
	Notes     string
	CreatedAt time.Time
}
