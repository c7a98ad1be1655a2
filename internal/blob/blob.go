// Package blob stores uploaded images and returns their public URL.
// Keys are content addressed, so uploading the same image twice yields the
// same URL.
package blob

import (
	"context"
	"encoding/hex"
	"net/http"

	"github.com/lalith-99/potluck/internal/apperr"
	"golang.org/x/crypto/blake2b"
)

// MaxSize is the largest accepted upload.
const MaxSize = 10 << 20

type Store interface {
	// Put writes data under key and returns a URL that serves it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Close() error
}

// Kinds are the upload namespaces.
var Kinds = map[string]bool{
	"recipes":     true,
	"communities": true,
	"profiles":    true,
	"posts":       true,
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Key derives kind/uid/<blake2b-256>.<ext> from the content. The content type
// is sniffed from the bytes, never taken from the client.
func Key(kind, userID string, data []byte) (key, contentType string, err error) {
	contentType = http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return "", "", apperr.Invalidf("unsupported image type %s", contentType)
	}
	sum := blake2b.Sum256(data)
	return kind + "/" + userID + "/" + hex.EncodeToString(sum[:]) + ext, contentType, nil
}

// Upload validates an image and stores it.
func Upload(ctx context.Context, s Store, kind, userID string, data []byte) (string, error) {
	if !Kinds[kind] {
		return "", apperr.Invalidf("unknown upload kind %q", kind)
	}
	if len(data) == 0 {
		return "", apperr.Invalidf("empty upload")
	}
	if len(data) > MaxSize {
		return "", apperr.Invalidf("upload exceeds %d bytes", MaxSize)
	}
	key, contentType, err := Key(kind, userID, data)
	if err != nil {
		return "", err
	}
	url, err := s.Put(ctx, key, data, contentType)
	if err != nil {
		return "", apperr.Wrap(apperr.Unavailable, err, "blob store unavailable")
	}
	return url, nil
}
