package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
	"github.com/rochafa10/DeedFlow-sub010/internal/repository"
)

// RedisTokenStore implements repository.TokenStore on Redis. Records expire
// natively via key TTLs, and GETDEL gives the atomic single-use consumption
// the Postgres store gets from DELETE ... RETURNING.
type RedisTokenStore struct {
	client redis.UniversalClient
}

var _ repository.TokenStore = (*RedisTokenStore)(nil)

// NewRedisTokenStore constructs a Redis-backed token store.
func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

type tokenPayload struct {
	ID         int64     `json:"id"`
	TokenHash  string    `json:"token_hash"`
	SessionRef string    `json:"session_ref,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func hashKey(hash string) string { return "csrf:h:" + hash }
func idKey(id int64) string      { return fmt.Sprintf("csrf:id:%d", id) }

// Insert persists the record under both its digest and its id, each expiring
// with the record.
func (s *RedisTokenStore) Insert(ctx context.Context, rec domain.CSRFToken) error {
	payload, err := json.Marshal(tokenPayload{
		ID:         rec.ID,
		TokenHash:  rec.TokenHash,
		SessionRef: rec.SessionRef,
		ExpiresAt:  rec.ExpiresAt,
		CreatedAt:  rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal token record: %w", err)
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, hashKey(rec.TokenHash), payload, ttl)
	pipe.Set(ctx, idKey(rec.ID), rec.TokenHash, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist token record: %w", repository.ErrUnavailable)
	}
	return nil
}

func (s *RedisTokenStore) FindByHash(ctx context.Context, hash string) (domain.CSRFToken, error) {
	raw, err := s.client.Get(ctx, hashKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CSRFToken{}, repository.ErrNotFound
		}
		return domain.CSRFToken{}, fmt.Errorf("load token record: %w", repository.ErrUnavailable)
	}
	return decodePayload(raw)
}

func (s *RedisTokenStore) Delete(ctx context.Context, id int64) error {
	hash, err := s.client.GetDel(ctx, idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("delete token record: %w", repository.ErrUnavailable)
	}
	if err := s.client.Del(ctx, hashKey(hash)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete token record: %w", repository.ErrUnavailable)
	}
	return nil
}

func (s *RedisTokenStore) ConsumeByHash(ctx context.Context, hash string) (domain.CSRFToken, error) {
	raw, err := s.client.GetDel(ctx, hashKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CSRFToken{}, repository.ErrNotFound
		}
		return domain.CSRFToken{}, fmt.Errorf("consume token record: %w", repository.ErrUnavailable)
	}
	rec, err := decodePayload(raw)
	if err != nil {
		return domain.CSRFToken{}, err
	}
	// The id index is cleanup only; the record itself is already gone.
	_ = s.client.Del(ctx, idKey(rec.ID)).Err()
	return rec, nil
}

// DeleteExpired is satisfied by Redis key TTLs; there is nothing to sweep.
func (s *RedisTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func decodePayload(raw []byte) (domain.CSRFToken, error) {
	var p tokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.CSRFToken{}, fmt.Errorf("decode token record: %w", err)
	}
	return domain.CSRFToken{
		ID:         p.ID,
		TokenHash:  p.TokenHash,
		SessionRef: p.SessionRef,
		ExpiresAt:  p.ExpiresAt,
		CreatedAt:  p.CreatedAt,
	}, nil
}
