// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"maps"
	"slices"
	"time"
)

// Product is the persisted catalog record.
// Size maps a variant label to its remaining quantity and is the stock ledger of the product.
type Product struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Price       int64            `json:"price"`
	Size        map[string]int32 `json:"size"`
	Description *string          `json:"description,omitempty"`
	Categories  *string          `json:"categories,omitempty"`
	Discount    *int32           `json:"discount,omitempty"`
	ImageKeys   []string         `json:"image_keys"`
	Version     int32            `json:"version"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// clone returns a deep copy of p so callers never share maps or slices with the store.
func (p Product) clone() Product {
	p.Size = maps.Clone(p.Size)
	p.ImageKeys = slices.Clone(p.ImageKeys)
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	if p.Categories != nil {
		c := *p.Categories
		p.Categories = &c
	}
	if p.Discount != nil {
		d := *p.Discount
		p.Discount = &d
	}
	return p
}

// ProductUpdate lists the fields of a partial update. Nil fields are left untouched;
// a non-nil Size replaces the whole variant map.
type ProductUpdate struct {
	Name        *string
	Price       *int64
	Size        map[string]int32
	Description *string
	Categories  *string
	Discount    *int32
}

// StockAdjustment decrements the variants of one product by the given quantities.
type StockAdjustment struct {
	ProductID int64
	Spec      map[string]int32
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
// List operations return an empty slice when nothing matches.
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)

	// FindAll returns every product ordered by id.
	FindAll(ctx context.Context) ([]Product, error)

	// FindByCategory returns products whose categories contain the substring, ignoring case.
	FindByCategory(ctx context.Context, category string) ([]Product, error)

	// FindByName returns products whose name contains the fragment or is contained in it, ignoring case.
	FindByName(ctx context.Context, fragment string) ([]Product, error)

	// Create inserts a product with a caller supplied id.
	// Returns ErrProductExists if the id is taken.
	Create(ctx context.Context, product Product) (*Product, error)

	// Update applies the non-nil fields of update and bumps the version.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id int64, update ProductUpdate) (*Product, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id int64) error

	// AdjustStock applies the whole batch or nothing and returns the products whose stock changed.
	// Returns a ProductNotFoundError or an InsufficientStockError for the first failing item.
	AdjustStock(ctx context.Context, items []StockAdjustment) ([]Product, error)

	// AppendImage adds an object key to the end of the product's image list.
	// Returns ErrProductNotFound if no product exists with the given ID.
	AppendImage(ctx context.Context, id int64, key string) (*Product, error)
}
