// Package images validates product image uploads and keeps them in object storage.
package images

import (
	"context"
	"fmt"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxSize is the largest accepted upload in bytes.
const MaxSize = 5 << 20

// allowed maps accepted content types to the key extension, checked in order.
var allowed = []struct {
	contentType string
	ext         string
}{
	{contentType: "image/jpeg", ext: "jpeg"},
	{contentType: "image/png", ext: "png"},
	{contentType: "image/jpg", ext: "jpg"},
}

// ObjectStore is the blob storage contract used for product images.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Upload is a validated image ready to be stored.
type Upload struct {
	Key         string
	ContentType string
	Body        []byte
}

// NewUpload checks the size first, then sniffs the content type, and assigns a unique key.
// The declared content type is ignored: only the bytes decide.
func NewUpload(body []byte) (*Upload, error) {
	if len(body) == 0 || len(body) > MaxSize {
		return nil, fmt.Errorf("image of %d bytes, limit is %d: %w", len(body), MaxSize, perrors.ErrPayloadTooLarge)
	}
	detected := mimetype.Detect(body)
	for _, a := range allowed {
		if detected.Is(a.contentType) {
			return &Upload{
				Key:         uuid.NewString() + "." + a.ext,
				ContentType: a.contentType,
				Body:        body,
			}, nil
		}
	}
	return nil, fmt.Errorf("content type %s: %w", detected.String(), perrors.ErrUnsupportedMediaType)
}

// URLs resolves object keys to public URLs in the same order.
func URLs(store ObjectStore, keys []string) []string {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, store.URL(key))
	}
	return urls
}
