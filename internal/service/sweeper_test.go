package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rochafa10/DeedFlow-sub010/internal/domain"
	"github.com/rochafa10/DeedFlow-sub010/internal/metrics"
	"github.com/rochafa10/DeedFlow-sub010/internal/service"
)

func TestSweeperThrottlesWithinInterval(t *testing.T) {
	store := newMemoryTokenStore()
	sweeper := service.NewSweeper(store, testConfig(), zap.NewNop(), metrics.New())

	now := time.Now()
	require.True(t, sweeper.MaybeSweep(now))
	require.False(t, sweeper.MaybeSweep(now.Add(time.Second)))
	require.False(t, sweeper.MaybeSweep(now.Add(4*time.Minute)))

	require.Eventually(t, func() bool { return store.sweepCount() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, sweeper.MaybeSweep(now.Add(5*time.Minute)))
	require.Eventually(t, func() bool { return store.sweepCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSweeperRemovesExpiredRecords(t *testing.T) {
	store := newMemoryTokenStore()
	now := time.Now()
	store.put(domain.CSRFToken{ID: 1, TokenHash: "a", ExpiresAt: now.Add(-time.Minute)})
	store.put(domain.CSRFToken{ID: 2, TokenHash: "b", ExpiresAt: now.Add(time.Hour)})

	sweeper := service.NewSweeper(store, testConfig(), zap.NewNop(), metrics.New())
	require.True(t, sweeper.MaybeSweep(now))
	require.Eventually(t, func() bool { return store.sweepCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err := store.FindByHash(context.Background(), "a")
	require.Error(t, err)
	_, err = store.FindByHash(context.Background(), "b")
	require.NoError(t, err)
}

func TestSweeperRetriesSoonAfterFailure(t *testing.T) {
	store := newMemoryTokenStore()
	store.sweepErr = errors.New("boom")
	sweeper := service.NewSweeper(store, testConfig(), zap.NewNop(), metrics.New())

	now := time.Now()
	require.True(t, sweeper.MaybeSweep(now))
	require.Eventually(t, func() bool { return store.sweepCount() == 1 }, time.Second, 5*time.Millisecond)

	// A failed sweep becomes eligible again after a fraction of the
	// interval, not a full one.
	require.False(t, sweeper.MaybeSweep(now.Add(30*time.Second)))
	require.Eventually(t, func() bool { return sweeper.MaybeSweep(now.Add(time.Minute + time.Second)) }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return store.sweepCount() == 2 }, time.Second, 5*time.Millisecond)
}
