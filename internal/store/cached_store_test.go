package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is an in-process Cache that keeps JSON like the Redis implementation does.
type mapCache struct {
	data    map[string][]byte
	getErr  error
	gets    int
	deletes []string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (m *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.gets++
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
		m.deletes = append(m.deletes, k)
	}
	return nil
}

func newCachedFixture(t *testing.T) (*CachedStore, *InMemoryStore, *mapCache) {
	t.Helper()
	inner := newSeededStore(t,
		Product{ID: 1, Name: "shirt", Size: map[string]int32{"M": 5}},
		Product{ID: 2, Name: "hat", Size: map[string]int32{"S": 1}},
	)
	c := newMapCache()
	return NewCachedStore(inner, c, time.Minute, slog.New(slog.NewJSONHandler(io.Discard, nil))), inner, c
}

func TestCachedStore_FindByIDReadThrough(t *testing.T) {
	// given
	ctx := context.Background()
	cached, inner, c := newCachedFixture(t)

	// when
	first, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, inner.DeleteByID(ctx, 1))
	second, err := cached.FindByID(ctx, 1)

	// then
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
	assert.Contains(t, c.data, "product:1")
}

func TestCachedStore_EvictsOnMutation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(ctx context.Context, s *CachedStore) error
		evicted []string
	}{
		{
			name: "update",
			mutate: func(ctx context.Context, s *CachedStore) error {
				_, err := s.Update(ctx, 1, ProductUpdate{Name: ptr("tee")})
				return err
			},
			evicted: []string{"product:1"},
		},
		{
			name: "adjust stock",
			mutate: func(ctx context.Context, s *CachedStore) error {
				_, err := s.AdjustStock(ctx, []StockAdjustment{
					{ProductID: 2, Spec: map[string]int32{"S": 1}},
					{ProductID: 1, Spec: map[string]int32{"M": 1}},
				})
				return err
			},
			evicted: []string{"product:2", "product:1"},
		},
		{
			name: "append image",
			mutate: func(ctx context.Context, s *CachedStore) error {
				_, err := s.AppendImage(ctx, 1, "a.png")
				return err
			},
			evicted: []string{"product:1"},
		},
		{
			name: "delete",
			mutate: func(ctx context.Context, s *CachedStore) error {
				return s.DeleteByID(ctx, 1)
			},
			evicted: []string{"product:1"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			cached, _, c := newCachedFixture(t)
			_, err := cached.FindByID(ctx, 1)
			require.NoError(t, err)

			// when
			err = tc.mutate(ctx, cached)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.evicted, c.deletes)
			assert.NotContains(t, c.data, "product:1")
		})
	}
}

func TestCachedStore_FailedAdjustmentKeepsCache(t *testing.T) {
	// given
	ctx := context.Background()
	cached, _, c := newCachedFixture(t)

	// when
	_, err := cached.AdjustStock(ctx, []StockAdjustment{{ProductID: 1, Spec: map[string]int32{"M": 50}}})

	// then
	assert.ErrorIs(t, err, perrors.ErrInsufficientStock)
	assert.Empty(t, c.deletes)
}

func TestCachedStore_CacheErrorFallsBackToStore(t *testing.T) {
	// given
	ctx := context.Background()
	cached, _, c := newCachedFixture(t)
	c.getErr = errors.New("connection refused")

	// when
	found, err := cached.FindByID(ctx, 2)

	// then
	require.NoError(t, err)
	assert.Equal(t, "hat", found.Name)
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	// given
	ctx := context.Background()
	cached, _, c := newCachedFixture(t)

	// when
	_, err := cached.FindByID(ctx, 404)

	// then
	assert.ErrorIs(t, err, perrors.ErrProductNotFound)
	assert.NotContains(t, c.data, "product:404")
}

// pausingStore signals read after its first FindByID and holds the result until release closes.
type pausingStore struct {
	*InMemoryStore
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	product, err := p.InMemoryStore.FindByID(ctx, id)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return product, err
}

func TestCachedStore_MutationDuringReadIsNotCached(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(ctx context.Context, s *CachedStore) error
	}{
		{
			name: "update",
			mutate: func(ctx context.Context, s *CachedStore) error {
				_, err := s.Update(ctx, 1, ProductUpdate{Name: ptr("tee")})
				return err
			},
		},
		{
			name: "adjust stock",
			mutate: func(ctx context.Context, s *CachedStore) error {
				_, err := s.AdjustStock(ctx, []StockAdjustment{{ProductID: 1, Spec: map[string]int32{"M": 5}}})
				return err
			},
		},
		{
			name: "append image",
			mutate: func(ctx context.Context, s *CachedStore) error {
				_, err := s.AppendImage(ctx, 1, "a.png")
				return err
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			inner := newSeededStore(t, Product{ID: 1, Name: "shirt", Size: map[string]int32{"M": 5}})
			paused := &pausingStore{InMemoryStore: inner, read: make(chan struct{}), release: make(chan struct{})}
			c := newMapCache()
			cached := NewCachedStore(paused, c, time.Minute, slog.New(slog.NewJSONHandler(io.Discard, nil)))

			stale := make(chan *Product)
			go func() {
				p, _ := cached.FindByID(ctx, 1)
				stale <- p
			}()
			<-paused.read

			// when
			require.NoError(t, tc.mutate(ctx, cached))
			close(paused.release)
			old := <-stale

			// then
			require.NotNil(t, old)
			assert.Equal(t, "shirt", old.Name)
			assert.NotContains(t, c.data, "product:1")

			want, err := inner.FindByID(ctx, 1)
			require.NoError(t, err)
			got, err := cached.FindByID(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}
