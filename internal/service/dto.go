package service

import (
	"time"

	"github.com/dongyi/catalog/internal/images"
	"github.com/dongyi/catalog/internal/store"
)

// ProductCreateDto represents the data transfer object for creating a new product.
// The id is supplied by the caller.
type ProductCreateDto struct {
	ID          int64            `json:"id"          validate:"required,gt=0"`
	Name        string           `json:"name"        validate:"required,max=200"`
	Price       int64            `json:"price"       validate:"min=0"`
	Size        map[string]int32 `json:"size"        validate:"dive,keys,required,max=50,endkeys,min=0"`
	Description *string          `json:"description"`
	Categories  *string          `json:"categories"  validate:"omitempty,max=500"`
	Discount    *int32           `json:"discount"    validate:"omitempty,min=0"`
}

// ProductUpdateDto lists the fields of a partial update; omitted fields stay untouched.
// A present size replaces the whole variant map.
type ProductUpdateDto struct {
	Name        *string          `json:"name"        validate:"omitempty,min=1,max=200"`
	Price       *int64           `json:"price"       validate:"omitempty,min=0"`
	Size        map[string]int32 `json:"size"        validate:"omitempty,dive,keys,required,max=50,endkeys,min=0"`
	Description *string          `json:"description"`
	Categories  *string          `json:"categories"  validate:"omitempty,max=500"`
	Discount    *int32           `json:"discount"    validate:"omitempty,min=0"`
}

// StockAdjustmentDto decrements the listed variants of one product.
type StockAdjustmentDto struct {
	ID   int64            `json:"id"   validate:"required,gt=0"`
	Spec map[string]int32 `json:"spec" validate:"required,min=1,dive,keys,required,endkeys,min=0"`
}

// StockAdjustmentBatch wraps a batch so it can be validated as a whole.
type StockAdjustmentBatch struct {
	Items []StockAdjustmentDto `validate:"required,min=1,dive"`
}

// ProductDto represents the data transfer object for a product.
// Version is read-only and bumped by every change.
type ProductDto struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Price       int64            `json:"price"`
	Size        map[string]int32 `json:"size"`
	Description *string          `json:"description,omitempty"`
	Categories  *string          `json:"categories,omitempty"`
	Discount    *int32           `json:"discount,omitempty"`
	ImageURL    []string         `json:"image_url"`
	Version     int32            `json:"version"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// toDto converts a store.Product to a ProductDto, resolving image keys to public URLs.
func (s *Service) toDto(product *store.Product) *ProductDto {
	urls := make([]string, 0, len(product.ImageKeys))
	if s.objects != nil {
		urls = images.URLs(s.objects, product.ImageKeys)
	}
	size := product.Size
	if size == nil {
		size = map[string]int32{}
	}
	return &ProductDto{
		ID:          product.ID,
		Name:        product.Name,
		Price:       product.Price,
		Size:        size,
		Description: product.Description,
		Categories:  product.Categories,
		Discount:    product.Discount,
		ImageURL:    urls,
		Version:     product.Version,
		CreatedAt:   product.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   product.UpdatedAt.Format(time.RFC3339),
	}
}
