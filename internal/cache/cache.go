// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	commonerrors "placeholder-engine/internal/common/errors"
	"placeholder-engine/internal/common/logger"
	"placeholder-engine/internal/models"
)

const keyPrefix = "placeholder:result:"

// entry is the serialized cache record. CachedAt is kept so callers can
// expose result freshness in reports.
type entry struct {
	Value    *models.ResolvedValue `json:"value"`
	CachedAt time.Time             `json:"cachedAt"`
}

// inflight tracks one in-progress resolution so concurrent requests for
// the same content hash share a single execution.
type inflight struct {
	done  chan struct{}
	value *models.ResolvedValue
	err   error
}

// ResultCache stores resolved placeholder values keyed by content hash.
// A cache backend failure never fails a resolution; the lookup degrades
// to a miss and the failure is logged once per call.
type ResultCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger

	mu     sync.Mutex
	flight map[string]*inflight
}

func New(client redis.UniversalClient, ttl time.Duration, log logger.Logger) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "cache"}),
		flight: make(map[string]*inflight),
	}
}

// GetOrResolve returns the cached value for hash, or runs resolve and
// caches its result. Concurrent calls with the same hash are coalesced:
// one caller executes resolve, the rest wait for its outcome. The second
// return value reports whether the value came from the cache. Coalesced
// waiters count as hits: they received a value they did not compute, so
// hit accounting stays deterministic regardless of whether the value was
// already in the backend when they queued.
func (c *ResultCache) GetOrResolve(ctx context.Context, hash string, resolve func(context.Context) (*models.ResolvedValue, error)) (*models.ResolvedValue, bool, error) {
	if value, ok := c.lookup(ctx, hash); ok {
		return value, true, nil
	}

	c.mu.Lock()
	if call, ok := c.flight[hash]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.value, call.value != nil && call.err == nil, call.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	call := &inflight{done: make(chan struct{})}
	c.flight[hash] = call
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.flight, hash)
		c.mu.Unlock()
		close(call.done)
	}()

	// Re-check under coalescing ownership: another process may have
	// populated the key while we queued.
	if value, ok := c.lookup(ctx, hash); ok {
		call.value = value
		return value, true, nil
	}

	value, err := resolve(ctx)
	call.value, call.err = value, err
	if err != nil {
		return nil, false, err
	}

	c.store(ctx, hash, value)
	return value, false, nil
}

// Invalidate removes a single cached result.
func (c *ResultCache) Invalidate(ctx context.Context, hash string) error {
	if err := c.client.Del(ctx, keyPrefix+hash).Err(); err != nil {
		return commonerrors.NewCacheUnavailableError(err)
	}
	return nil
}

func (c *ResultCache) lookup(ctx context.Context, hash string) (*models.ResolvedValue, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+hash).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache lookup failed, treating as miss", map[string]interface{}{
				"hash":  hash,
				"error": err.Error(),
			})
		}
		return nil, false
	}

	var rec entry
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Value == nil {
		return nil, false
	}
	return rec.Value, true
}

func (c *ResultCache) store(ctx context.Context, hash string, value *models.ResolvedValue) {
	raw, err := json.Marshal(entry{Value: value, CachedAt: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+hash, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache store failed", map[string]interface{}{
			"hash":  hash,
			"error": err.Error(),
		})
	}
}
