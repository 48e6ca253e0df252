package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Locker serialises cache refills across replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// ServiceConfig wires a catalog loader.
type ServiceConfig struct {
	Source   Source
	Cache    *Cache
	CacheKey string
	// Lock, when set together with an enabled Cache, lets a single replica
	// query the source on a cache miss while the others wait for its result.
	Lock    Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// Service resolves the product catalog at startup from the configured
// source, going through the Redis cache when one is available.
type Service struct {
	source   Source
	cache    *Cache
	cacheKey string
	lock     Locker
	lockTTL  time.Duration
	logger   zerolog.Logger
}

// NewService constructs a catalog loader. A nil source serves the demo catalog.
func NewService(cfg ServiceConfig) *Service {
	src := cfg.Source
	if src == nil {
		src = StaticSource{}
	}
	key := cfg.CacheKey
	if key == "" {
		key = DefaultCacheKey
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{source: src, cache: cfg.Cache, cacheKey: key, lock: cfg.Lock, lockTTL: ttl, logger: cfg.Logger}
}

// Load returns a validated Catalog. Cache failures are logged and bypassed.
func (s *Service) Load(ctx context.Context) (*Catalog, error) {
	if c, ok := s.fromCache(ctx); ok {
		return c, nil
	}
	if s.lock == nil || !s.cache.Enabled() {
		return s.refill(ctx)
	}
	var out *Catalog
	err := s.lock.WithLock(ctx, s.cacheKey+":lock", s.lockTTL, func(ctx context.Context) error {
		if c, ok := s.fromCache(ctx); ok {
			out = c
			return nil
		}
		c, err := s.refill(ctx)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) fromCache(ctx context.Context) (*Catalog, bool) {
	products, ok, err := s.cache.GetProducts(ctx, s.cacheKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.cacheKey).Msg("catalog cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	c, err := New(products)
	if err != nil || c.Len() == 0 {
		s.logger.Warn().Str("key", s.cacheKey).Msg("discarding invalid cached catalog")
		return nil, false
	}
	s.logger.Debug().Int("products", c.Len()).Msg("catalog loaded from cache")
	return c, true
}

func (s *Service) refill(ctx context.Context) (*Catalog, error) {
	products, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c, err := New(products)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, errors.Join(ErrInvalidCatalog, errors.New("catalog is empty"))
	}
	if err := s.cache.SetProducts(ctx, s.cacheKey, c.Products()); err != nil {
		s.logger.Warn().Err(err).Str("key", s.cacheKey).Msg("catalog cache write failed")
	}
	s.logger.Info().Int("products", c.Len()).Msg("catalog loaded")
	return c, nil
}
