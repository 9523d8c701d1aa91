// Package fetchcache wraps a report API fetcher with a read-through cache
// keyed by the resolved request URL.
package fetchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/godilite/report-collector/pkg/cache"
	"github.com/godilite/report-collector/pkg/reportapi"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTTL        = 10 * time.Minute
	defaultSetTimeout = 5 * time.Second
	maxJitter         = 15 * time.Second
)

// Cache results reported to the observer.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Fetcher is implemented by *reportapi.Client.
type Fetcher interface {
	Fetch(ctx context.Context, path string, dest any) error
	URL(path string) string
}

// Cached is a Fetcher decorator that is safe for concurrent use.
type Cached struct {
	next     Fetcher
	cache    Cacher
	sf       singleflight.Group
	ttl      time.Duration
	logger   *zap.Logger
	observer func(result string)
}

type Option func(*Cached)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cached) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(fn func(result string)) Option {
	return func(c *Cached) { c.observer = fn }
}

// New wraps next with a read-through cache.
func New(next Fetcher, c Cacher, opts ...Option) *Cached {
	if next == nil {
		panic("nil Fetcher provided to fetchcache.New")
	}
	if c == nil {
		panic("nil Cacher provided to fetchcache.New")
	}
	cached := &Cached{
		next:   next,
		cache:  c,
		ttl:    defaultTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cached)
	}
	cached.logger = cached.logger.Named("fetchcache")
	return cached
}

func (c *Cached) URL(path string) string { return c.next.URL(path) }

// Fetch serves path from the cache, falling back to the wrapped fetcher.
// Only successful responses are cached.
func (c *Cached) Fetch(ctx context.Context, path string, dest any) error {
	key := c.next.URL(path)

	var raw json.RawMessage
	err := c.cache.Get(ctx, key, &raw)
	switch {
	case err == nil:
		c.logger.Debug("cache hit", zap.String("key", key))
		c.observe(ResultHit)
		return unmarshal(key, raw, dest)

	case errors.Is(err, cache.ErrMiss):
		c.logger.Debug("cache miss", zap.String("key", key))
		c.observe(ResultMiss)

	default:
		c.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
		c.observe(ResultError)
	}

	v, err, shared := c.sf.Do(key, func() (any, error) {
		var body json.RawMessage
		if err := c.next.Fetch(ctx, path, &body); err != nil {
			return nil, err
		}
		c.store(key, body)
		return body, nil
	})
	if err != nil {
		return err
	}
	if shared {
		c.logger.Debug("singleflight shared result", zap.String("key", key))
	}

	body, ok := v.(json.RawMessage)
	if !ok {
		return fmt.Errorf("type mismatch for key %q", key)
	}
	return unmarshal(key, body, dest)
}

func (c *Cached) store(key string, body json.RawMessage) {
	setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttl := addTTLJitter(c.ttl)
	if err := c.cache.Set(setCtx, key, body, ttl); err != nil {
		c.logger.Warn("failed to cache response", zap.String("key", key), zap.Error(err))
		return
	}
	c.logger.Debug("response cached", zap.String("key", key), zap.Duration("ttl", ttl))
}

func (c *Cached) observe(result string) {
	if c.observer != nil {
		c.observer(result)
	}
}

func unmarshal(key string, body json.RawMessage, dest any) error {
	if raw, ok := dest.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &reportapi.ParseError{URL: key, Err: err}
	}
	return nil
}

// addTTLJitter shortens the TTL by up to maxJitter so entries written in one
// run do not all expire together. TTLs shorter than twice the jitter are kept.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl < 2*maxJitter {
		return ttl
	}
	return ttl - time.Duration(rand.Int63n(int64(maxJitter)))
}
