// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/dongyi/catalog/internal/service"
	"github.com/dongyi/catalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the catalog service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)
		r.Get("/categories/{category}", h.FindByCategory)
		r.Get("/name/{name}", h.FindByName)
		r.Put("/stock", h.AdjustStock)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.DeleteByID)
			r.Post("/images", h.AttachImage)
			r.Get("/images", h.ListImages)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve product with ID %d", id))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Name", found.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindAll retrieves every product.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	mLogger.DebugContext(r.Context(), "Received request to find all products")
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByCategory retrieves products whose categories contain the path value.
func (h *Handler) FindByCategory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	category := chi.URLParam(r, "category")
	mLogger.DebugContext(r.Context(), "Received request to find products by category", "category", category)
	list, err := h.service.FindByCategory(r.Context(), category)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch products by category")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByName retrieves products whose name matches the path value in either direction.
func (h *Handler) FindByName(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	mLogger.DebugContext(r.Context(), "Received request to find products by name", "name", name)
	list, err := h.service.FindByName(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch products by name")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var productCreateDto service.ProductCreateDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &productCreateDto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "ID", productCreateDto.ID)

	newProduct, err := h.service.Create(r.Context(), productCreateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, map[string]int64{"id": newProduct.ID})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)
	var productUpdateDto service.ProductUpdateDto
	if !web.DecodeAndValidate(w, r, mLogger, h.validate, &productUpdateDto) {
		return
	}

	updated, err := h.service.Update(r.Context(), id, productUpdateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to update product with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Version", updated.Version)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// AdjustStock decrements stock for a JSON list of {id, spec} items, all or nothing.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var batch service.StockAdjustmentBatch
	if !web.Decode(w, r, mLogger, &batch.Items) {
		return
	}
	if !web.Validate(w, r, mLogger, h.validate, batch) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to adjust stock", "items", len(batch.Items))

	if err := h.service.AdjustStock(r.Context(), batch.Items); err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to adjust stock")
		return
	}
	mLogger.InfoContext(r.Context(), "Stock adjusted successfully", "items", len(batch.Items))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to delete product with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// respondServiceError maps service errors onto HTTP statuses.
// Client errors are logged at Warn, everything else at Error with the generic message.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, message string) {
	var (
		notFound     *perrors.ProductNotFoundError
		insufficient *perrors.InsufficientStockError
	)
	switch {
	case errors.As(err, &notFound):
		logger.WarnContext(r.Context(), "Product not found", "ID", notFound.ProductID)
		web.RespondError(w, logger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", notFound.ProductID))
	case errors.Is(err, perrors.ErrProductNotFound):
		logger.WarnContext(r.Context(), "Product not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, "Product not found")
	case errors.As(err, &insufficient):
		logger.WarnContext(r.Context(), "Insufficient stock", "ID", insufficient.ProductID, "variant", insufficient.Variant,
			"available", insufficient.Available, "requested", insufficient.Requested)
		web.RespondError(w, logger, http.StatusConflict, insufficient.Error())
	case errors.Is(err, perrors.ErrProductExists):
		logger.WarnContext(r.Context(), "Product already exists", "error", err)
		web.RespondError(w, logger, http.StatusConflict, "Product already exists")
	case errors.Is(err, perrors.ErrPayloadTooLarge):
		logger.WarnContext(r.Context(), "Image too large", "error", err)
		web.RespondError(w, logger, http.StatusRequestEntityTooLarge, "Image exceeds the 5MB limit")
	case errors.Is(err, perrors.ErrUnsupportedMediaType):
		logger.WarnContext(r.Context(), "Unsupported image type", "error", err)
		web.RespondError(w, logger, http.StatusUnsupportedMediaType, "Only JPEG and PNG images are accepted")
	case errors.Is(err, perrors.ErrUpstreamFailure):
		logger.ErrorContext(r.Context(), "Upstream failure", "error", err)
		web.RespondError(w, logger, http.StatusBadGateway, message)
	default:
		logger.ErrorContext(r.Context(), "Unexpected error", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, message)
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
