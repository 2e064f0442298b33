package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	perrors "github.com/dongyi/catalog/internal/errors"
)

// InMemoryStore implements ProductStore on a map guarded by a RWMutex.
// It follows the PgStore semantics, including whole-batch stock adjustment.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[int64]Product
	now      func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[int64]Product),
		now:      time.Now,
	}
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, &perrors.ProductNotFoundError{ProductID: id}
	}
	found := p.clone()
	return &found, nil
}

func (s *InMemoryStore) FindAll(_ context.Context) ([]Product, error) {
	return s.filter(func(Product) bool { return true }), nil
}

func (s *InMemoryStore) FindByCategory(_ context.Context, category string) ([]Product, error) {
	needle := strings.ToLower(category)
	return s.filter(func(p Product) bool {
		return p.Categories != nil && strings.Contains(strings.ToLower(*p.Categories), needle)
	}), nil
}

func (s *InMemoryStore) FindByName(_ context.Context, fragment string) ([]Product, error) {
	query := strings.ToLower(fragment)
	return s.filter(func(p Product) bool {
		name := strings.ToLower(p.Name)
		return strings.Contains(name, query) || strings.Contains(query, name)
	}), nil
}

// filter returns copies of the matching products ordered by id.
func (s *InMemoryStore) filter(match func(Product) bool) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Product, 0)
	for _, id := range slices.Sorted(maps.Keys(s.products)) {
		if p := s.products[id]; match(p) {
			result = append(result, p.clone())
		}
	}
	return result
}

func (s *InMemoryStore) Create(_ context.Context, product Product) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[product.ID]; exists {
		return nil, fmt.Errorf("product %d: %w", product.ID, perrors.ErrProductExists)
	}
	now := s.now()
	p := product.clone()
	if p.Size == nil {
		p.Size = map[string]int32{}
	}
	if p.ImageKeys == nil {
		p.ImageKeys = []string{}
	}
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	created := p.clone()
	return &created, nil
}

func (s *InMemoryStore) Update(_ context.Context, id int64, update ProductUpdate) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, &perrors.ProductNotFoundError{ProductID: id}
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Price != nil {
		p.Price = *update.Price
	}
	if update.Size != nil {
		p.Size = maps.Clone(update.Size)
	}
	if update.Description != nil {
		d := *update.Description
		p.Description = &d
	}
	if update.Categories != nil {
		c := *update.Categories
		p.Categories = &c
	}
	if update.Discount != nil {
		d := *update.Discount
		p.Discount = &d
	}
	s.touch(&p)
	s.products[id] = p
	updated := p.clone()
	return &updated, nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return &perrors.ProductNotFoundError{ProductID: id}
	}
	delete(s.products, id)
	return nil
}

// AdjustStock validates the batch against copies of the stock maps and swaps them in only when every item passes.
func (s *InMemoryStore) AdjustStock(_ context.Context, items []StockAdjustment) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock := make(map[int64]map[string]int32)
	for _, id := range batchIDs(items) {
		if p, ok := s.products[id]; ok {
			stock[id] = maps.Clone(p.Size)
		}
	}
	touched, err := applyAdjustments(stock, items)
	if err != nil {
		return nil, err
	}

	updated := make([]Product, 0, len(touched))
	for _, id := range touched {
		p := s.products[id]
		p.Size = stock[id]
		s.touch(&p)
		s.products[id] = p
		updated = append(updated, p.clone())
	}
	return updated, nil
}

func (s *InMemoryStore) AppendImage(_ context.Context, id int64, key string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, &perrors.ProductNotFoundError{ProductID: id}
	}
	p.ImageKeys = append(slices.Clone(p.ImageKeys), key)
	s.touch(&p)
	s.products[id] = p
	updated := p.clone()
	return &updated, nil
}

func (s *InMemoryStore) touch(p *Product) {
	p.Version++
	p.UpdatedAt = s.now()
}
