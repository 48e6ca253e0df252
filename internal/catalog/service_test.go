package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/lock"
	"github.com/noah-isme/toko-checkout/internal/resilience"
)

type countingSource struct {
	products []catalog.Product
	err      error
	calls    int
}

func (s *countingSource) Load(context.Context) ([]catalog.Product, error) {
	s.calls++
	return s.products, s.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestServiceLoadCachesProducts(t *testing.T) {
	mr, client := newRedis(t)
	src := &countingSource{products: catalog.DefaultProducts()}
	svc := catalog.NewService(catalog.ServiceConfig{
		Source: src,
		Cache:  catalog.NewCache(client, time.Minute),
		Logger: zerolog.Nop(),
	})

	c, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	require.True(t, mr.Exists(catalog.DefaultCacheKey))

	c, err = svc.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	require.Equal(t, 1, src.calls, "second load should be served from cache")

	mr.FastForward(2 * time.Minute)
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestServiceLoadWithoutCache(t *testing.T) {
	src := &countingSource{products: catalog.DefaultProducts()}
	svc := catalog.NewService(catalog.ServiceConfig{Source: src})
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	_, err = svc.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestServiceLoadErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := catalog.NewService(catalog.ServiceConfig{Source: &countingSource{err: boom}}).Load(context.Background())
	require.ErrorIs(t, err, boom)

	_, err = catalog.NewService(catalog.ServiceConfig{Source: &countingSource{products: []catalog.Product{}}}).Load(context.Background())
	require.ErrorIs(t, err, catalog.ErrInvalidCatalog)
}

func TestServiceIgnoresCorruptCache(t *testing.T) {
	mr, client := newRedis(t)
	require.NoError(t, mr.Set(catalog.DefaultCacheKey, `[{"id":"","name":""}]`))

	src := &countingSource{products: catalog.DefaultProducts()}
	svc := catalog.NewService(catalog.ServiceConfig{Source: src, Cache: catalog.NewCache(client, time.Minute)})
	c, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	require.Equal(t, 1, src.calls)
}

func TestHTTPSourceLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"Produto A","price":19.99},{"id":"2","name":"Produto B","price":39.99}]}`))
	}))
	t.Cleanup(srv.Close)

	src := catalog.HTTPSource{
		Client: resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 2, BaseBackoff: time.Millisecond},
		URL:    srv.URL,
	}
	products, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.EqualValues(t, 3999, products[1].Price)
}

func TestHTTPSourceRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	src := catalog.HTTPSource{Client: resilience.HTTPClient{Client: srv.Client()}, URL: srv.URL}
	_, err := src.Load(context.Background())
	require.Error(t, err)
}

type slowSource struct {
	calls atomic.Int32
}

func (s *slowSource) Load(context.Context) ([]catalog.Product, error) {
	s.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	return catalog.DefaultProducts(), nil
}

func TestServiceLockedRefillHitsSourceOnce(t *testing.T) {
	mr, client := newRedis(t)
	src := &slowSource{}
	newSvc := func() *catalog.Service {
		return catalog.NewService(catalog.ServiceConfig{
			Source: src,
			Cache:  catalog.NewCache(client, time.Minute),
			Lock:   lock.Locker{Client: client, Retry: 2 * time.Millisecond},
		})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := newSvc().Load(context.Background())
			if err == nil && c.Len() != 3 {
				err = errors.New("unexpected catalog size")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, src.calls.Load())
	require.False(t, mr.Exists(catalog.DefaultCacheKey+":lock"))
}
