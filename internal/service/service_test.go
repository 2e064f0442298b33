package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/dongyi/catalog/internal/store"
	"github.com/dongyi/catalog/pkg/messaging"
	"github.com/dongyi/catalog/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// fakeObjects is an in-memory images.ObjectStore.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, body []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) URL(key string) string {
	return "https://cdn.test/" + key
}

// vanishingStore deletes the product right after the existence check to simulate a concurrent delete.
type vanishingStore struct {
	*store.InMemoryStore
}

func (v vanishingStore) FindByID(ctx context.Context, id int64) (*store.Product, error) {
	p, err := v.InMemoryStore.FindByID(ctx, id)
	if err == nil {
		_ = v.InMemoryStore.DeleteByID(ctx, id)
	}
	return p, err
}

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T, repo store.ProductStore, objects *fakeObjects, publisher messaging.Publisher) *Service {
	t.Helper()
	return NewService(repo, objects, publisher, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func seededStore(t *testing.T, products ...store.Product) *store.InMemoryStore {
	t.Helper()
	s := store.NewInMemoryStore()
	for _, p := range products {
		_, err := s.Create(context.Background(), p)
		require.NoError(t, err)
	}
	return s
}

func TestService_Create(t *testing.T) {
	// given
	ctx := context.Background()
	svc := newTestService(t, store.NewInMemoryStore(), newFakeObjects(), nil)
	dto := ProductCreateDto{ID: 1, Name: "shirt", Price: 1999, Size: map[string]int32{"M": 5}, Categories: ptr("tops")}

	// when
	created, err := svc.Create(ctx, dto)
	_, dupErr := svc.Create(ctx, ProductCreateDto{ID: 1, Name: "other"})

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int32(1), created.Version)
	assert.Equal(t, []string{}, created.ImageURL)
	assert.ErrorIs(t, dupErr, perrors.ErrProductExists)
	found, err := svc.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "shirt", found.Name)
}

func TestService_ListOperationsTreatEmptyAsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, seededStore(t,
		store.Product{ID: 1, Name: "shirt", Categories: ptr("tops")},
		store.Product{ID: 2, Name: "blue shirt", Categories: ptr("tops,men")},
	), newFakeObjects(), nil)
	empty := newTestService(t, store.NewInMemoryStore(), newFakeObjects(), nil)

	testCases := []struct {
		name        string
		call        func() ([]ProductDto, error)
		expectedIDs []int64
		expectedErr error
	}{
		{name: "all", call: func() ([]ProductDto, error) { return svc.FindAll(ctx) }, expectedIDs: []int64{1, 2}},
		{name: "all on empty catalog", call: func() ([]ProductDto, error) { return empty.FindAll(ctx) }, expectedErr: perrors.ErrProductNotFound},
		{name: "category", call: func() ([]ProductDto, error) { return svc.FindByCategory(ctx, "men") }, expectedIDs: []int64{2}},
		{name: "category without match", call: func() ([]ProductDto, error) { return svc.FindByCategory(ctx, "shoes") }, expectedErr: perrors.ErrProductNotFound},
		{name: "name", call: func() ([]ProductDto, error) { return svc.FindByName(ctx, "shirt") }, expectedIDs: []int64{1, 2}},
		{name: "name superstring", call: func() ([]ProductDto, error) { return svc.FindByName(ctx, "shirt-xl") }, expectedIDs: []int64{1}},
		{name: "name without match", call: func() ([]ProductDto, error) { return svc.FindByName(ctx, "hat") }, expectedErr: perrors.ErrProductNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			found, err := tc.call()

			// then
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			ids := make([]int64, 0, len(found))
			for _, p := range found {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func TestService_UpdateAndDelete(t *testing.T) {
	// given
	ctx := context.Background()
	svc := newTestService(t, seededStore(t, store.Product{ID: 1, Name: "shirt", Price: 100, Size: map[string]int32{"M": 1}}), newFakeObjects(), nil)

	// when
	updated, err := svc.Update(ctx, 1, ProductUpdateDto{Discount: ptr(int32(15))})

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(100), updated.Price)
	assert.Equal(t, int32(15), *updated.Discount)
	assert.Equal(t, int32(2), updated.Version)

	_, err = svc.Update(ctx, 2, ProductUpdateDto{Name: ptr("x")})
	assert.ErrorIs(t, err, perrors.ErrProductNotFound)

	assert.ErrorIs(t, svc.DeleteByID(ctx, 2), perrors.ErrProductNotFound)
	require.NoError(t, svc.DeleteByID(ctx, 1))
	_, err = svc.FindByID(ctx, 1)
	assert.ErrorIs(t, err, perrors.ErrProductNotFound)
}

func TestService_AdjustStock(t *testing.T) {
	testCases := []struct {
		name          string
		items         []StockAdjustmentDto
		expectedErr   error
		expectedStock map[string]int32
		publishes     bool
	}{
		{
			name:          "success publishes event",
			items:         []StockAdjustmentDto{{ID: 1, Spec: map[string]int32{"M": 3}}},
			expectedStock: map[string]int32{"M": 2, "L": 2},
			publishes:     true,
		},
		{
			name:          "insufficient stock changes nothing",
			items:         []StockAdjustmentDto{{ID: 1, Spec: map[string]int32{"L": 5}}},
			expectedErr:   perrors.ErrInsufficientStock,
			expectedStock: map[string]int32{"M": 5, "L": 2},
		},
		{
			name:          "unknown product",
			items:         []StockAdjustmentDto{{ID: 9, Spec: map[string]int32{"M": 1}}},
			expectedErr:   perrors.ErrProductNotFound,
			expectedStock: map[string]int32{"M": 5, "L": 2},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			repo := seededStore(t, store.Product{ID: 1, Name: "shirt", Size: map[string]int32{"M": 5, "L": 2}})
			publisher := new(mockPublisher)
			if tc.publishes {
				publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.StockAdjustedEvent) bool {
					return len(e.Items) == len(tc.items) && e.Items[0].ProductID == tc.items[0].ID
				})).Return(nil).Once()
			}
			svc := newTestService(t, repo, newFakeObjects(), publisher)

			// when
			err := svc.AdjustStock(ctx, tc.items)

			// then
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
			}
			found, _ := repo.FindByID(ctx, 1)
			assert.Equal(t, tc.expectedStock, found.Size)
			publisher.AssertExpectations(t)
			if !tc.publishes {
				publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestService_AdjustStock_PublishFailureIsNotReturned(t *testing.T) {
	// given
	ctx := context.Background()
	repo := seededStore(t, store.Product{ID: 1, Name: "shirt", Size: map[string]int32{"M": 5}})
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nats down")).Once()
	svc := newTestService(t, repo, newFakeObjects(), publisher)
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	// when
	err := svc.AdjustStock(ctx, []StockAdjustmentDto{{ID: 1, Spec: map[string]int32{"M": 1}}})

	// then
	require.NoError(t, err)
	found, _ := repo.FindByID(ctx, 1)
	assert.Equal(t, int32(4), found.Size["M"])
	publisher.AssertExpectations(t)
}

func TestService_AttachImage(t *testing.T) {
	shirt := store.Product{ID: 1, Name: "shirt"}
	testCases := []struct {
		name         string
		products     []store.Product
		vanishes     bool
		body         []byte
		putErr       error
		expectedErr  error
		expectedURLs int
		orphanKilled bool
	}{
		{
			name:         "appends image",
			products:     []store.Product{{ID: 1, Name: "shirt", ImageKeys: []string{"old.png"}}},
			body:         pngBytes,
			expectedURLs: 2,
		},
		{
			name:        "too large is checked before type",
			products:    []store.Product{shirt},
			body:        make([]byte, 5<<20+1),
			expectedErr: perrors.ErrPayloadTooLarge,
		},
		{
			name:        "unsupported type",
			products:    []store.Product{shirt},
			body:        []byte("GIF89a\x01\x00\x01\x00"),
			expectedErr: perrors.ErrUnsupportedMediaType,
		},
		{
			name:        "unknown product uploads nothing",
			body:        pngBytes,
			expectedErr: perrors.ErrProductNotFound,
		},
		{
			name:        "object store failure",
			products:    []store.Product{shirt},
			body:        pngBytes,
			putErr:      perrors.Upstream("put", errors.New("timeout")),
			expectedErr: perrors.ErrUpstreamFailure,
		},
		{
			name:         "product deleted meanwhile removes blob",
			products:     []store.Product{shirt},
			vanishes:     true,
			body:         pngBytes,
			expectedErr:  perrors.ErrProductNotFound,
			orphanKilled: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			objects := newFakeObjects()
			objects.putErr = tc.putErr
			var repo store.ProductStore = seededStore(t, tc.products...)
			if tc.vanishes {
				repo = vanishingStore{seededStore(t, tc.products...)}
			}
			svc := newTestService(t, repo, objects, nil)

			// when
			urls, err := svc.AttachImage(ctx, 1, tc.body)

			// then
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Empty(t, objects.objects)
				assert.Equal(t, tc.orphanKilled, len(objects.deleted) == 1)
				return
			}
			require.NoError(t, err)
			require.Len(t, urls, tc.expectedURLs)
			assert.Equal(t, "https://cdn.test/old.png", urls[0])
			assert.Regexp(t, `^https://cdn\.test/[0-9a-f-]{36}\.png$`, urls[1])
			assert.Len(t, objects.objects, 1)
		})
	}
}

func TestService_ListImages(t *testing.T) {
	// given
	ctx := context.Background()
	svc := newTestService(t, seededStore(t, store.Product{ID: 1, Name: "shirt", ImageKeys: []string{"a.png", "b.jpeg"}}), newFakeObjects(), nil)

	// when
	urls, err := svc.ListImages(ctx, 1)
	_, missingErr := svc.ListImages(ctx, 2)

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.test/a.png", "https://cdn.test/b.jpeg"}, urls)
	assert.ErrorIs(t, missingErr, perrors.ErrProductNotFound)
}

func Test_outcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "not_found", outcome(&perrors.ProductNotFoundError{ProductID: 1}))
	assert.Equal(t, "insufficient_stock", outcome(&perrors.InsufficientStockError{}))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
