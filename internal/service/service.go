// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/dongyi/catalog/internal/images"
	"github.com/dongyi/catalog/internal/store"
	"github.com/dongyi/catalog/pkg/messaging"
	"github.com/dongyi/catalog/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*ProductDto, error)

	// FindAll returns every product ordered by id.
	// Returns ErrProductNotFound if the catalog is empty.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindByCategory returns products whose categories contain the substring.
	// Returns ErrProductNotFound if nothing matches.
	FindByCategory(ctx context.Context, category string) ([]ProductDto, error)

	// FindByName returns products whose name contains the fragment or is contained in it.
	// Returns ErrProductNotFound if nothing matches.
	FindByName(ctx context.Context, name string) ([]ProductDto, error)

	// Create adds a new product to the system.
	// Returns ErrProductExists if the id is taken.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// Update applies the present fields of the update.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id int64, update ProductUpdateDto) (*ProductDto, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id int64) error

	// AdjustStock decrements stock for the whole batch or for nothing.
	// Returns ErrProductNotFound or ErrInsufficientStock naming the first failing item.
	AdjustStock(ctx context.Context, items []StockAdjustmentDto) error

	// AttachImage stores an image and appends it to the product, returning every image URL.
	// Returns ErrPayloadTooLarge, ErrUnsupportedMediaType, ErrProductNotFound or ErrUpstreamFailure.
	AttachImage(ctx context.Context, id int64, body []byte) ([]string, error)

	// ListImages returns the public URLs of the product images.
	// Returns ErrProductNotFound if no product exists with the given ID.
	ListImages(ctx context.Context, id int64) ([]string, error)
}

const (
	outcomeSuccess           = "success"
	outcomeNotFound          = "not_found"
	outcomeInsufficientStock = "insufficient_stock"
	outcomeError             = "error"
)

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository         store.ProductStore
	objects            images.ObjectStore
	publisher          messaging.Publisher
	logger             *slog.Logger
	adjustmentsCounter metric.Int64Counter
	now                func() time.Time
}

// NewService creates a new instance of ProductService.
func NewService(repo store.ProductStore, objects images.ObjectStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("catalog-service")
	adjustmentsCounter, err := meter.Int64Counter("catalog.stock.adjustments",
		metric.WithDescription("Stock adjustment batches by outcome"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog.stock.adjustments counter: %v", err))
	}
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Service{
		repository:         repo,
		objects:            objects,
		publisher:          publisher,
		logger:             logger.With("component", "service"),
		adjustmentsCounter: adjustmentsCounter,
		now:                time.Now,
	}
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
func (s *Service) FindByID(ctx context.Context, id int64) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	return s.toDto(product), nil
}

func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return s.nonEmpty(products, "no products in catalog")
}

func (s *Service) FindByCategory(ctx context.Context, category string) ([]ProductDto, error) {
	products, err := s.repository.FindByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products by category %q: %w", category, err)
	}
	return s.nonEmpty(products, fmt.Sprintf("no products in category %q", category))
}

func (s *Service) FindByName(ctx context.Context, name string) ([]ProductDto, error) {
	products, err := s.repository.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products by name %q: %w", name, err)
	}
	return s.nonEmpty(products, fmt.Sprintf("no products matching name %q", name))
}

// nonEmpty converts products, treating an empty result as ErrProductNotFound.
func (s *Service) nonEmpty(products []store.Product, message string) ([]ProductDto, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("%s: %w", message, perrors.ErrProductNotFound)
	}
	productDTOs := make([]ProductDto, len(products))
	for i := range products {
		productDTOs[i] = *s.toDto(&products[i])
	}
	return productDTOs, nil
}

func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	created, err := s.repository.Create(ctx, store.Product{
		ID:          product.ID,
		Name:        product.Name,
		Price:       product.Price,
		Size:        product.Size,
		Description: product.Description,
		Categories:  product.Categories,
		Discount:    product.Discount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.toDto(created), nil
}

func (s *Service) Update(ctx context.Context, id int64, update ProductUpdateDto) (*ProductDto, error) {
	updated, err := s.repository.Update(ctx, id, store.ProductUpdate{
		Name:        update.Name,
		Price:       update.Price,
		Size:        update.Size,
		Description: update.Description,
		Categories:  update.Categories,
		Discount:    update.Discount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %d: %w", id, err)
	}
	return s.toDto(updated), nil
}

func (s *Service) DeleteByID(ctx context.Context, id int64) error {
	if err := s.repository.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product with ID %d: %w", id, err)
	}
	return nil
}

// AdjustStock applies the batch in one store transaction, then counts the outcome and publishes
// a StockAdjustedEvent. A publishing failure is logged because the stock is already committed.
func (s *Service) AdjustStock(ctx context.Context, items []StockAdjustmentDto) error {
	if len(items) == 0 {
		return nil
	}
	batch := make([]store.StockAdjustment, len(items))
	for i, item := range items {
		batch[i] = store.StockAdjustment{ProductID: item.ID, Spec: item.Spec}
	}

	_, err := s.repository.AdjustStock(ctx, batch)
	s.adjustmentsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.StockAdjustedEvent{
		Carrier:    carrier,
		Items:      make([]events.StockAdjustedItem, len(batch)),
		AdjustedAt: s.now().UTC(),
	}
	for i, item := range batch {
		event.Items[i] = events.StockAdjustedItem{ProductID: item.ProductID, Spec: item.Spec}
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish StockAdjustedEvent", "error", err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, perrors.ErrProductNotFound):
		return outcomeNotFound
	case errors.Is(err, perrors.ErrInsufficientStock):
		return outcomeInsufficientStock
	default:
		return outcomeError
	}
}

// AttachImage validates the bytes, checks the product exists, uploads the blob and appends its key.
// If the product disappears before the key is recorded the blob is removed again.
func (s *Service) AttachImage(ctx context.Context, id int64, body []byte) ([]string, error) {
	upload, err := images.NewUpload(body)
	if err != nil {
		return nil, fmt.Errorf("failed to attach image to product %d: %w", id, err)
	}
	if _, err := s.repository.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to attach image to product %d: %w", id, err)
	}
	if err := s.objects.Put(ctx, upload.Key, upload.Body, upload.ContentType); err != nil {
		return nil, fmt.Errorf("failed to upload image for product %d: %w", id, err)
	}

	product, err := s.repository.AppendImage(ctx, id, upload.Key)
	if err != nil {
		if delErr := s.objects.Delete(context.WithoutCancel(ctx), upload.Key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned image", "key", upload.Key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to record image for product %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Image attached", "ID", id, "key", upload.Key, "content_type", upload.ContentType)
	return images.URLs(s.objects, product.ImageKeys), nil
}

func (s *Service) ListImages(ctx context.Context, id int64) ([]string, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list images of product %d: %w", id, err)
	}
	return images.URLs(s.objects, product.ImageKeys), nil
}
