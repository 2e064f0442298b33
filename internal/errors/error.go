// Package errors provides the error taxonomy of catalog operations.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductExists        = errors.New("product already exists")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUpstreamFailure      = errors.New("upstream failure")
)

// ProductNotFoundError names the product that was looked up. It matches ErrProductNotFound.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// InsufficientStockError reports the first variant of a batch that could not cover its decrement.
// It matches ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID int64
	Variant   string
	Available int32
	Requested int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d variant %q: available %d, requested %d",
		e.ProductID, e.Variant, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Upstream marks err as a failed call to the database or the object store.
func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamFailure, err)
}
