package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadToFS(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), Config{Kind: "fs", Dir: dir, BaseURL: "http://localhost:8081/blobs/"})
	require.NoError(t, err)

	url, err := Upload(context.Background(), s, "recipes", "u1", pngHeader)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8081/blobs/recipes/u1/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	key := strings.TrimPrefix(url, "http://localhost:8081/blobs/")
	got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)

	again, err := Upload(context.Background(), s, "recipes", "u1", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, url, again)
}

func TestUploadValidation(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "http://x")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = Upload(ctx, s, "videos", "u1", pngHeader)
	assert.ErrorIs(t, err, apperr.Validation)
	_, err = Upload(ctx, s, "posts", "u1", nil)
	assert.ErrorIs(t, err, apperr.Validation)
	_, err = Upload(ctx, s, "posts", "u1", []byte("just some text"))
	assert.ErrorIs(t, err, apperr.Validation)
	_, err = Upload(ctx, s, "posts", "u1", make([]byte, MaxSize+1))
	assert.ErrorIs(t, err, apperr.Validation)
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("connection reset")
}
func (failingStore) Close() error { return nil }

func TestUploadStoreFailureIsUnavailable(t *testing.T) {
	_, err := Upload(context.Background(), failingStore{}, "profiles", "u1", pngHeader)
	assert.ErrorIs(t, err, apperr.Unavailable)
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(context.Background(), Config{Kind: "ftp"})
	assert.Error(t, err)
	_, err = Open(context.Background(), Config{Kind: "s3"})
	assert.Error(t, err)
}
