// Package app assembles the service components from configuration.
// Both the HTTP server and reviewctl build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	deskgin "github.com/pilab-dev/reviewdesk/api/gin"
	"github.com/pilab-dev/reviewdesk/boltdb"
	"github.com/pilab-dev/reviewdesk/cache"
	rediscache "github.com/pilab-dev/reviewdesk/cache/redis"
	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/pilab-dev/reviewdesk/internal/federation"
	"github.com/pilab-dev/reviewdesk/internal/gbp"
	"github.com/pilab-dev/reviewdesk/internal/generation"
	"github.com/pilab-dev/reviewdesk/internal/ingestion"
	"github.com/pilab-dev/reviewdesk/internal/metrics"
	"github.com/pilab-dev/reviewdesk/internal/retry"
	"github.com/pilab-dev/reviewdesk/internal/reviews"
	"github.com/pilab-dev/reviewdesk/internal/server"
	"github.com/pilab-dev/reviewdesk/log"
	"github.com/pilab-dev/reviewdesk/mongodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "reviewdesk"

// App holds the wired components. Close releases storage and cache
// connections in reverse order of creation.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Tokens    domain.TokenRepository
	Reviews   domain.ReviewRepository
	Google    *federation.Lifecycle
	Registry  *federation.Registry
	Generator *generation.Resilient
	Ingestion *ingestion.Coordinator
	Approvals *reviews.Service
	Metrics   *prometheus.Registry

	health  map[string]deskgin.HealthCheck
	closers []func(context.Context) error
}

// New connects storage and cache and wires the services on top of them.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
		health: map[string]deskgin.HealthCheck{},
	}

	if err := a.openStorage(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	profiles, err := a.openProfileCache(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	policy := retry.NewExternalCallPolicy(cfg.Retry.MaxRetries, cfg.Retry.BaseDelay,
		retry.WithAttemptTimeout(cfg.Retry.AttemptTimeout),
		retry.WithLogger(logger),
	)

	a.Google = federation.NewGoogleLifecycle(cfg.GoogleOAuth, a.Tokens,
		federation.WithProfileCache(profiles),
		federation.WithHTTPClient(httpClient),
		federation.WithRetryPolicy(policy),
		federation.WithLogger(logger),
	)
	a.Registry = federation.NewRegistry(a.Google)

	a.Generator, err = generation.New(cfg.LLM, httpClient, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("reply generator: %w", err)
	}

	source := gbp.NewClient(cfg.ReviewAPI, a.Google,
		gbp.WithHTTPClient(httpClient),
		gbp.WithRetryPolicy(policy),
		gbp.WithLogger(logger),
	)
	opts := []ingestion.Option{ingestion.WithLogger(logger)}
	if cfg.Ingestion.SuggestReplies {
		opts = append(opts, ingestion.WithSuggester(a.Generator))
	}
	a.Ingestion = ingestion.NewCoordinator(source, a.Reviews, opts...)
	a.Approvals = reviews.NewService(a.Reviews, reviews.WithLogger(logger))

	a.Metrics = prometheus.NewRegistry()
	a.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(a.Metrics)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.Config.StorageBackend {
	case config.StorageBolt:
		store, err := boltdb.Open(a.Config.BoltPath)
		if err != nil {
			return fmt.Errorf("open bolt store: %w", err)
		}
		a.Tokens = store.Tokens()
		a.Reviews = store.Reviews()
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		a.health["storage"] = func(context.Context) error { return nil }

	case config.StorageMongoDB:
		if err := mongodb.InitMongoDB(ctx, a.Config.MongoURI, a.Config.MongoDBName); err != nil {
			return fmt.Errorf("connect mongodb: %w", err)
		}
		a.closers = append(a.closers, func(ctx context.Context) error {
			mongodb.CloseMongoDB(ctx)
			return nil
		})

		tokens, err := mongodb.NewTokenRepository(ctx, mongodb.GetDB())
		if err != nil {
			return err
		}
		reviews, err := mongodb.NewReviewRepository(ctx, mongodb.GetDB())
		if err != nil {
			return err
		}
		a.Tokens, a.Reviews = tokens, reviews
		a.health["storage"] = mongodb.Ping

	default:
		return fmt.Errorf("unknown storage backend %q", a.Config.StorageBackend)
	}

	a.Logger.Info(ctx, "Storage initialized", map[string]interface{}{"backend": a.Config.StorageBackend})
	return nil
}

func (a *App) openProfileCache(ctx context.Context) (cache.ProfileCache, error) {
	ttl := a.Config.ProfileCacheTTL

	switch a.Config.CacheBackend {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		a.health["cache"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return rediscache.NewProfileCache(client, redisKeyPrefix, ttl), nil

	default:
		mem := cache.NewMemoryProfileCache(ttl)
		a.closers = append(a.closers, func(context.Context) error {
			mem.Stop()
			return nil
		})
		return mem, nil
	}
}

// Handlers returns the HTTP route groups backed by this App.
func (a *App) Handlers() server.Handlers {
	return server.Handlers{
		OAuth:   deskgin.NewOAuthAPI(a.Registry, a.Config.Dashboard.OAuthRedirectURL),
		Reviews: deskgin.NewReviewAPI(a.Ingestion, a.Approvals, a.Generator),
		Health:  deskgin.HealthHandler(a.health),
		Metrics: promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{}),
	}
}

// Close releases every opened resource.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
