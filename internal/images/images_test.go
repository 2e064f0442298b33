package images

import (
	"bytes"
	"strings"
	"testing"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func TestNewUpload(t *testing.T) {
	testCases := []struct {
		name                string
		body                []byte
		expectedContentType string
		expectedExt         string
		expectedErr         error
	}{
		{name: "png", body: pngHeader, expectedContentType: "image/png", expectedExt: ".png"},
		{name: "jpeg", body: jpegHeader, expectedContentType: "image/jpeg", expectedExt: ".jpeg"},
		{name: "empty body", body: nil, expectedErr: perrors.ErrPayloadTooLarge},
		{name: "over limit", body: append(bytes.Clone(pngHeader), make([]byte, MaxSize)...), expectedErr: perrors.ErrPayloadTooLarge},
		{name: "exactly at limit", body: append(bytes.Clone(pngHeader), make([]byte, MaxSize-len(pngHeader))...), expectedContentType: "image/png", expectedExt: ".png"},
		{name: "gif is rejected", body: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00"), expectedErr: perrors.ErrUnsupportedMediaType},
		{name: "text is rejected", body: []byte("just some text"), expectedErr: perrors.ErrUnsupportedMediaType},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			upload, err := NewUpload(tc.body)

			// then
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, upload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedContentType, upload.ContentType)
			assert.True(t, strings.HasSuffix(upload.Key, tc.expectedExt), upload.Key)
			assert.Len(t, strings.TrimSuffix(upload.Key, tc.expectedExt), 36, "uuid prefix")
		})
	}
}

func TestNewUpload_UniqueKeys(t *testing.T) {
	first, err := NewUpload(pngHeader)
	require.NoError(t, err)
	second, err := NewUpload(pngHeader)
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, second.Key)
}
