package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/dongyi/catalog/internal/images"
	"github.com/dongyi/catalog/pkg/web"
)

const (
	imageFormField = "file"
	// multipartOverhead leaves room for boundaries and part headers around the file.
	multipartOverhead = 64 << 10
)

type imagesResponse struct {
	ImageURL []string `json:"image_url"`
}

// AttachImage accepts a multipart upload in the "file" field and appends it to the product images.
func (h *Handler) AttachImage(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to attach image", "ID", id)

	r.Body = http.MaxBytesReader(w, r.Body, images.MaxSize+multipartOverhead)
	file, _, err := r.FormFile(imageFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondServiceError(w, r, mLogger, fmt.Errorf("multipart body: %w", perrors.ErrPayloadTooLarge), "")
			return
		}
		mLogger.WarnContext(r.Context(), "Missing image file", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Multipart field %q is required", imageFormField))
		return
	}
	defer func() { _ = file.Close() }()

	// One byte past the limit is enough for the size check to reject it.
	body, err := io.ReadAll(io.LimitReader(file, images.MaxSize+1))
	if err != nil {
		mLogger.WarnContext(r.Context(), "Error reading image file", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid image file")
		return
	}

	urls, err := h.service.AttachImage(r.Context(), id, body)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to attach image to product with ID %d", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Image attached successfully", "ID", id, "images", len(urls))
	web.RespondJSON(w, mLogger, http.StatusCreated, imagesResponse{ImageURL: urls})
}

// ListImages returns the public URLs of the product images.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	urls, err := h.service.ListImages(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to list images of product with ID %d", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, imagesResponse{ImageURL: urls})
}
