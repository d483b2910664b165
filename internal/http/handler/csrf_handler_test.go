package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rochafa10/DeedFlow-sub010/internal/config"
	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
	"github.com/rochafa10/DeedFlow-sub010/internal/http/handler"
	"github.com/rochafa10/DeedFlow-sub010/internal/metrics"
	"github.com/rochafa10/DeedFlow-sub010/internal/repository"
	"github.com/rochafa10/DeedFlow-sub010/internal/service"
	"github.com/rochafa10/DeedFlow-sub010/internal/token"
)

func issueRouter(t *testing.T, store repository.TokenStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		ExpectedOrigin:  "https://app.deedflow.example",
		TokenTTL:        30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		TokenBytes:      32,
		MinTokenLength:  16,
		TokenHeader:     "X-CSRF-Token",
		StoreTimeout:    time.Second,
	}
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	m := metrics.New()
	sweeper := service.NewSweeper(store, cfg, zap.NewNop(), m)
	svc := service.NewCSRFService(store, sweeper, node, cfg, zap.NewNop(), m)
	h := handler.NewCSRFHandler(svc, cfg, zap.NewNop())

	r := gin.New()
	r.POST("/security/csrf", func(c *gin.Context) {
		c.Set("identity", domain.Identity{UserID: "user-1", Role: "investor"})
		c.Next()
	}, h.IssueToken)
	return r
}

func TestIssueTokenResponse(t *testing.T) {
	store := &stubStore{records: make(map[string]domain.CSRFToken)}
	r := issueRouter(t, store)

	req := httptest.NewRequest(http.MethodPost, "/security/csrf", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token     string `json:"token"`
		Header    string `json:"header"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Token, token.EncodedLength)
	require.Equal(t, "X-CSRF-Token", body.Header)
	require.Equal(t, 1800, body.ExpiresIn)

	// Only the digest reaches the store.
	_, plainStored := store.records[body.Token]
	require.False(t, plainStored)
	_, hashStored := store.records[token.Hash(body.Token)]
	require.True(t, hashStored)
}

func TestIssueTokenStorageDown(t *testing.T) {
	store := &stubStore{insertErr: repository.ErrUnavailable}
	r := issueRouter(t, store)

	req := httptest.NewRequest(http.MethodPost, "/security/csrf", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ServiceUnavailable", body.Error)
	require.Equal(t, http.StatusServiceUnavailable, body.Status)
}

// stubStore is a minimal TokenStore for handler tests.
type stubStore struct {
	mu        sync.Mutex
	records   map[string]domain.CSRFToken
	insertErr error
}

var _ repository.TokenStore = (*stubStore)(nil)

func (s *stubStore) Insert(ctx context.Context, rec domain.CSRFToken) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TokenHash] = rec
	return nil
}

func (s *stubStore) FindByHash(ctx context.Context, hash string) (domain.CSRFToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[hash]
	if !ok {
		return domain.CSRFToken{}, repository.ErrNotFound
	}
	return rec, nil
}

func (s *stubStore) Delete(ctx context.Context, id int64) error { return nil }

func (s *stubStore) ConsumeByHash(ctx context.Context, hash string) (domain.CSRFToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[hash]
	if !ok {
		return domain.CSRFToken{}, repository.ErrNotFound
	}
	delete(s.records, hash)
	return rec, nil
}

func (s *stubStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
