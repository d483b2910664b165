package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/rochafa10/DeedFlow-sub010/internal/adapter/cache"
	"github.com/rochafa10/DeedFlow-sub010/internal/adapter/identity"
	"github.com/rochafa10/DeedFlow-sub010/internal/bootstrap"
	"github.com/rochafa10/DeedFlow-sub010/internal/config"
	httptransport "github.com/rochafa10/DeedFlow-sub010/internal/http"
	"github.com/rochafa10/DeedFlow-sub010/internal/http/handler"
	httpmiddleware "github.com/rochafa10/DeedFlow-sub010/internal/http/middleware"
	"github.com/rochafa10/DeedFlow-sub010/internal/metrics"
	apimiddleware "github.com/rochafa10/DeedFlow-sub010/internal/middleware"
	"github.com/rochafa10/DeedFlow-sub010/internal/repository"
	"github.com/rochafa10/DeedFlow-sub010/internal/server"
	"github.com/rochafa10/DeedFlow-sub010/internal/service"
	"github.com/rochafa10/DeedFlow-sub010/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newRedisClient,
			newMetrics,
			newTokenStore,
			newWatchlistRepository,
			newSweeper,
			newCSRFService,
			newIdentityVerifier,
			newAuthMiddleware,
			newCSRFMiddleware,
			newRateLimiter,
			handler.NewCSRFHandler,
			handler.NewWatchlistHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureSchema, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	if cfg.TokenBackend != "redis" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newMetrics() *metrics.Metrics {
	return metrics.New()
}

func newTokenStore(cfg config.Config, pool *pgxpool.Pool, client redis.UniversalClient) repository.TokenStore {
	if cfg.TokenBackend == "redis" {
		return cache.NewRedisTokenStore(client)
	}
	return repository.NewPostgresTokenStore(pool)
}

func newWatchlistRepository(pool *pgxpool.Pool) repository.WatchlistRepository {
	return repository.NewPostgresWatchlistRepo(pool)
}

func newSweeper(store repository.TokenStore, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) *service.Sweeper {
	return service.NewSweeper(store, cfg, logger, m)
}

func newCSRFService(store repository.TokenStore, sweeper *service.Sweeper, node *snowflake.Node, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) *service.CSRFService {
	return service.NewCSRFService(store, sweeper, node, cfg, logger, m)
}

func newIdentityVerifier(cfg config.Config) identity.Verifier {
	return identity.NewHTTPVerifier(cfg.IdentityURL, nil)
}

func newAuthMiddleware(verifier identity.Verifier) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Verifier: verifier}
}

func newCSRFMiddleware(svc *service.CSRFService, cfg config.Config) *httpmiddleware.CSRF {
	return httpmiddleware.NewCSRF(svc, cfg)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
