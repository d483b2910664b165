package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rochafa10/DeedFlow-sub010/internal/config"
	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
	"github.com/rochafa10/DeedFlow-sub010/internal/metrics"
	"github.com/rochafa10/DeedFlow-sub010/internal/repository"
	"github.com/rochafa10/DeedFlow-sub010/internal/service"
	"github.com/rochafa10/DeedFlow-sub010/internal/token"
)

const testOrigin = "https://app.deedflow.example"

func testConfig() config.Config {
	return config.Config{
		ExpectedOrigin:  testOrigin,
		TokenTTL:        30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		TokenBytes:      32,
		MinTokenLength:  16,
		TokenHeader:     "X-CSRF-Token",
		StoreTimeout:    time.Second,
	}
}

func newTestService(t *testing.T, store repository.TokenStore) *service.CSRFService {
	t.Helper()
	cfg := testConfig()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	m := metrics.New()
	sweeper := service.NewSweeper(store, cfg, zap.NewNop(), m)
	return service.NewCSRFService(store, sweeper, node, cfg, zap.NewNop(), m)
}

func TestIssueThenValidateExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemoryTokenStore()
	svc := newTestService(t, store)

	plaintext, err := svc.Issue(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, plaintext, token.EncodedLength)

	first := svc.Validate(ctx, plaintext)
	require.True(t, first.Valid)
	require.Equal(t, service.ModeStrict, first.Mode)

	second := svc.Validate(ctx, plaintext)
	require.False(t, second.Valid)
	require.Equal(t, service.ReasonTokenNotFound, second.Reason)
}

func TestValidateExpiredTokenReclaimsRecord(t *testing.T) {
	ctx := context.Background()
	store := newMemoryTokenStore()
	svc := newTestService(t, store)

	plaintext, err := token.Generate(32)
	require.NoError(t, err)
	hash := token.Hash(plaintext)
	store.put(domain.CSRFToken{ID: 7, TokenHash: hash, ExpiresAt: time.Now().Add(-time.Minute)})

	result := svc.Validate(ctx, plaintext)
	require.False(t, result.Valid)
	require.Equal(t, service.ReasonTokenExpired, result.Reason)

	_, err = store.FindByHash(ctx, hash)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestValidateMalformedToken(t *testing.T) {
	store := newMemoryTokenStore()
	svc := newTestService(t, store)

	for _, bad := range []string{"", "short", "fifteen-chars-x"} {
		result := svc.Validate(context.Background(), bad)
		require.False(t, result.Valid)
		require.Equal(t, service.ReasonMalformedToken, result.Reason)
	}
}

func TestValidateDegradesWhenStoreUnreachable(t *testing.T) {
	store := newMemoryTokenStore()
	store.consumeErr = repository.ErrUnavailable
	svc := newTestService(t, store)

	plaintext, err := token.Generate(32)
	require.NoError(t, err)

	result := svc.Validate(context.Background(), plaintext)
	require.True(t, result.Valid)
	require.Equal(t, service.ModeDegraded, result.Mode)

	// Malformed input still fails before the store is consulted.
	short := svc.Validate(context.Background(), "short")
	require.False(t, short.Valid)
	require.Equal(t, service.ReasonMalformedToken, short.Reason)
}

func TestIssueFailsHardWhenStoreUnreachable(t *testing.T) {
	store := newMemoryTokenStore()
	store.insertErr = repository.ErrUnavailable
	svc := newTestService(t, store)

	_, err := svc.Issue(context.Background(), "session-1")
	require.ErrorIs(t, err, service.ErrStorageUnavailable)
}

func TestAuthorizeSameSiteEvidence(t *testing.T) {
	ctx := context.Background()
	store := newMemoryTokenStore()
	svc := newTestService(t, store)

	decision := svc.Authorize(ctx, service.GuardRequest{Method: "POST", Origin: testOrigin})
	require.True(t, decision.Allowed)

	plaintext, err := svc.Issue(ctx, "session-1")
	require.NoError(t, err)

	// A foreign Origin denies regardless of any token the request carries.
	decision = svc.Authorize(ctx, service.GuardRequest{Method: "POST", Origin: "https://evil.example", Token: plaintext})
	require.False(t, decision.Allowed)
	require.Equal(t, service.ReasonOriginMismatch, decision.Reason)
	require.NotEmpty(t, decision.Message)
}

func TestAuthorizeMissingSecurityHeaders(t *testing.T) {
	store := newMemoryTokenStore()
	svc := newTestService(t, store)

	decision := svc.Authorize(context.Background(), service.GuardRequest{Method: "POST"})
	require.False(t, decision.Allowed)
	require.Equal(t, service.ReasonMissingSecurityHeaders, decision.Reason)
}

func TestAuthorizeTokenPath(t *testing.T) {
	ctx := context.Background()
	store := newMemoryTokenStore()
	svc := newTestService(t, store)

	plaintext, err := svc.Issue(ctx, "session-1")
	require.NoError(t, err)

	decision := svc.Authorize(ctx, service.GuardRequest{Method: "POST", Token: plaintext})
	require.True(t, decision.Allowed)

	// Replaying the consumed token is rejected.
	replay := svc.Authorize(ctx, service.GuardRequest{Method: "POST", Token: plaintext})
	require.False(t, replay.Allowed)
	require.Equal(t, service.ReasonTokenNotFound, replay.Reason)
}

func TestAuthorizeReadRequestsBypass(t *testing.T) {
	store := newMemoryTokenStore()
	svc := newTestService(t, store)

	decision := svc.Authorize(context.Background(), service.GuardRequest{Method: "GET", Origin: "https://evil.example"})
	require.True(t, decision.Allowed)
}

// memoryTokenStore is an in-memory TokenStore for tests.
type memoryTokenStore struct {
	mu         sync.Mutex
	records    map[string]domain.CSRFToken
	insertErr  error
	consumeErr error
	sweepErr   error
	sweeps     int
}

var _ repository.TokenStore = (*memoryTokenStore)(nil)

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{records: make(map[string]domain.CSRFToken)}
}

func (m *memoryTokenStore) put(rec domain.CSRFToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.TokenHash] = rec
}

func (m *memoryTokenStore) Insert(ctx context.Context, rec domain.CSRFToken) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.put(rec)
	return nil
}

func (m *memoryTokenStore) FindByHash(ctx context.Context, hash string) (domain.CSRFToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[hash]
	if !ok {
		return domain.CSRFToken{}, repository.ErrNotFound
	}
	return rec, nil
}

func (m *memoryTokenStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, rec := range m.records {
		if rec.ID == id {
			delete(m.records, hash)
		}
	}
	return nil
}

func (m *memoryTokenStore) ConsumeByHash(ctx context.Context, hash string) (domain.CSRFToken, error) {
	if m.consumeErr != nil {
		return domain.CSRFToken{}, m.consumeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[hash]
	if !ok {
		return domain.CSRFToken{}, repository.ErrNotFound
	}
	delete(m.records, hash)
	return rec, nil
}

func (m *memoryTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	var deleted int64
	for hash, rec := range m.records {
		if rec.Expired(now) {
			delete(m.records, hash)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memoryTokenStore) sweepCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweeps
}
