package store

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Cache is the key-value contract CachedStore needs.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedStore serves FindByID from a read-through cache and evicts a product on every mutation.
// Cache failures are logged and never fail the call.
// A read that overlaps a mutation is not written back, so an evicted entry is never refilled with
// the state from before the mutation.
type CachedStore struct {
	ProductStore
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64 // bumped by every eviction
}

// NewCachedStore wraps next with a read cache whose entries live for ttl.
func NewCachedStore(next ProductStore, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{
		ProductStore: next,
		cache:        cache,
		ttl:          ttl,
		logger:       logger.With("component", "cache"),
	}
}

func cacheKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

func (c *CachedStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	var cached Product
	hit, err := c.cache.Get(ctx, cacheKey(id), &cached)
	if err != nil {
		c.logger.WarnContext(ctx, "Cache read failed", "ID", id, "error", err)
	}
	if hit {
		return &cached, nil
	}

	gen := c.currentGeneration()
	product, err := c.ProductStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, product, gen)
	return product, nil
}

func (c *CachedStore) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// fill caches product unless an eviction happened since gen was read.
func (c *CachedStore) fill(ctx context.Context, product *Product, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.DebugContext(ctx, "Skipping cache fill after concurrent mutation", "ID", product.ID)
		return
	}
	if err := c.cache.Set(ctx, cacheKey(product.ID), product, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "Cache write failed", "ID", product.ID, "error", err)
	}
}

func (c *CachedStore) Update(ctx context.Context, id int64, update ProductUpdate) (*Product, error) {
	product, err := c.ProductStore.Update(ctx, id, update)
	c.evict(ctx, id)
	return product, err
}

func (c *CachedStore) DeleteByID(ctx context.Context, id int64) error {
	err := c.ProductStore.DeleteByID(ctx, id)
	c.evict(ctx, id)
	return err
}

func (c *CachedStore) AdjustStock(ctx context.Context, items []StockAdjustment) ([]Product, error) {
	products, err := c.ProductStore.AdjustStock(ctx, items)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	c.evict(ctx, ids...)
	return products, nil
}

func (c *CachedStore) AppendImage(ctx context.Context, id int64, key string) (*Product, error) {
	product, err := c.ProductStore.AppendImage(ctx, id, key)
	c.evict(ctx, id)
	return product, err
}

func (c *CachedStore) evict(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(id))
	}
	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "Cache eviction failed", "keys", keys, "error", err)
	}
}
