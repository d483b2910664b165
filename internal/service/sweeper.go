package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rochafa10/DeedFlow-sub010/internal/config"
	"github.com/rochafa10/DeedFlow-sub010/internal/metrics"
	"github.com/rochafa10/DeedFlow-sub010/internal/repository"
)

// Sweeper reaps expired token records opportunistically: state-changing
// request traffic triggers it, at most one sweep per interval, and the sweep
// itself runs detached so no request ever waits on it.
type Sweeper struct {
	store      repository.TokenStore
	interval   time.Duration
	retryDelay time.Duration
	timeout    time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics

	// next holds the next eligible sweep time in unix nanoseconds. A single
	// CAS claims the slot, so concurrent callers cannot double-trigger.
	next atomic.Int64
}

// NewSweeper builds a sweeper from the configured cleanup interval. A failed
// sweep becomes eligible again after a fifth of the interval instead of a
// full one.
func NewSweeper(store repository.TokenStore, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) *Sweeper {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Sweeper{
		store:      store,
		interval:   interval,
		retryDelay: interval / 5,
		timeout:    timeout,
		logger:     logger,
		metrics:    m,
	}
}

// MaybeSweep triggers a background sweep if the throttle interval has
// elapsed. It reports whether a sweep was started and never blocks on the
// sweep itself.
func (s *Sweeper) MaybeSweep(now time.Time) bool {
	for {
		next := s.next.Load()
		if now.UnixNano() < next {
			return false
		}
		if s.next.CompareAndSwap(next, now.Add(s.interval).UnixNano()) {
			break
		}
	}

	go s.sweep(now)
	return true
}

func (s *Sweeper) sweep(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	deleted, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		// Make the next attempt come soon rather than a full interval away.
		s.next.Store(now.Add(s.retryDelay).UnixNano())
		s.metrics.RecordCleanup("error", 0)
		s.log().Warn("expired token sweep failed", zap.Error(err))
		return
	}

	s.metrics.RecordCleanup("ok", deleted)
	if deleted > 0 {
		s.log().Info("expired token sweep", zap.Int64("deleted", deleted))
	}
}

func (s *Sweeper) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
