// Package app assembles the infrastructure shared by the api, worker and
// seeder binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/config"
	"github.com/noah-isme/toko-checkout/internal/lock"
	"github.com/noah-isme/toko-checkout/internal/obs"
	"github.com/noah-isme/toko-checkout/internal/ratelimit"
	"github.com/noah-isme/toko-checkout/internal/resilience"
)

// Dependencies enumerates the clients shared across modules. Optional
// backends stay nil when they are not configured.
type Dependencies struct {
	Redis      *redis.Client
	DB         *pgxpool.Pool
	Validator  *validator.Validate
	Limiter    ratelimit.Limiter
	TaskClient *asynq.Client
	Catalog    *catalog.Catalog
}

// Close releases every client that was opened.
func (d *Dependencies) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.TaskClient != nil {
		errs = append(errs, d.TaskClient.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	return errors.Join(errs...)
}

// Options tunes Build.
type Options struct {
	AppName        string
	MetricsEnabled bool
	Logger         zerolog.Logger
}

// Build connects to the configured backends and loads the catalog.
func Build(ctx context.Context, cfg *config.Config, opts Options) (deps *Dependencies, err error) {
	deps = &Dependencies{Validator: validator.New(validator.WithRequiredStructEnabled())}
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	if cfg.RedisURL != "" {
		deps.Redis, err = NewRedis(ctx, cfg.RedisURL, opts.MetricsEnabled, opts.Logger)
		if err != nil {
			return deps, err
		}
	}
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			if err = catalog.Migrate(cfg.DatabaseURL); err != nil {
				return deps, fmt.Errorf("migrate: %w", err)
			}
		}
		deps.DB, err = NewPool(ctx, cfg.DatabaseURL, opts.AppName)
		if err != nil {
			return deps, err
		}
	}

	deps.Limiter, err = ratelimit.NewLimiter(cfg.RateLimit, deps.Redis, ratelimit.DefaultPrefix)
	if err != nil {
		return deps, err
	}

	if cfg.QueueEnabled && cfg.RedisURL != "" {
		deps.TaskClient, err = NewTaskClient(cfg.RedisURL)
		if err != nil {
			return deps, err
		}
	}

	var db catalog.DB
	if deps.DB != nil {
		db = deps.DB
	}
	src, err := CatalogSource(cfg, db, opts.Logger)
	if err != nil {
		return deps, err
	}
	var cache *catalog.Cache
	if cfg.CatalogSource != config.CatalogSourceStatic {
		cache = catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL)
	}
	svcCfg := catalog.ServiceConfig{
		Source: src,
		Cache:  cache,
		Logger: opts.Logger.With().Str("component", "catalog").Logger(),
	}
	if cache.Enabled() {
		svcCfg.Lock = lock.Locker{Client: deps.Redis}
	}
	svc := catalog.NewService(svcCfg)
	deps.Catalog, err = svc.Load(ctx)
	if err != nil {
		return deps, fmt.Errorf("load catalog: %w", err)
	}
	return deps, nil
}

// NewRedis parses url, instruments the client and pings it.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewTaskClient opens an asynq client against the Redis at url.
func NewTaskClient(url string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse queue redis url: %w", err)
	}
	return asynq.NewClient(opt), nil
}

// NewPool opens a traced pgx pool and pings it.
func NewPool(ctx context.Context, url, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	if appName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(pingCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// CatalogSource picks the product source named by CATALOG_SOURCE.
func CatalogSource(cfg *config.Config, db catalog.DB, logger zerolog.Logger) (catalog.Source, error) {
	switch cfg.CatalogSource {
	case config.CatalogSourceStatic, "":
		return catalog.StaticSource{}, nil
	case config.CatalogSourceFile:
		return catalog.FileSource{Path: cfg.CatalogFile}, nil
	case config.CatalogSourcePostgres:
		if db == nil {
			return nil, errors.New("postgres catalog source requires DATABASE_URL")
		}
		return catalog.PGSource{DB: db}, nil
	case config.CatalogSourceHTTP:
		return catalog.HTTPSource{Client: OutboundClient(cfg, "catalog", logger), URL: cfg.CatalogURL}, nil
	default:
		return nil, fmt.Errorf("unsupported catalog source %q", cfg.CatalogSource)
	}
}

// OutboundClient builds a traced HTTP client with retry and a circuit breaker
// for target.
func OutboundClient(cfg *config.Config, target string, logger zerolog.Logger) resilience.HTTPClient {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target:       target,
		MinRequests:  cfg.CircuitMinRequests,
		FailureRatio: cfg.CircuitFailureRatio,
		OpenFor:      cfg.CircuitOpenFor,
	}).WithLogger(logger)
	return resilience.HTTPClient{
		Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     breaker,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      float64(cfg.RetryJitterPercent) / 100,
		Timeout:     cfg.OutboundTimeout,
	}
}
