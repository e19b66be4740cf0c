package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bookx-exchange/apiserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type mapBackend struct {
	objects map[string][]byte
	types   map[string]string
	puts    int
}

func newMapBackend() *mapBackend {
	return &mapBackend{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *mapBackend) EnsureBucket(ctx context.Context) error { return nil }

func (b *mapBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.puts++
	b.objects[key] = data
	b.types[key] = contentType
	return nil
}

func (b *mapBackend) Get(ctx context.Context, key string) (*Object, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{ReadCloser: io.NopCloser(bytes.NewReader(data)), ContentType: b.types[key], Size: int64(len(data))}, nil
}

func (b *mapBackend) Delete(ctx context.Context, key string) error {
	if _, ok := b.objects[key]; !ok {
		return ErrNotFound
	}
	delete(b.objects, key)
	return nil
}

func (b *mapBackend) Bucket() string { return "covers" }

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, config.StorageConfig{Backend: "none"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(ctx, config.StorageConfig{Backend: "s3"})
	assert.ErrorContains(t, err, "unknown storage backend")

	_, err = Open(ctx, config.StorageConfig{Backend: "minio"})
	assert.ErrorContains(t, err, "minio endpoint is required")

	_, err = Open(ctx, config.StorageConfig{Backend: "MinIO", Minio: config.MinioConfig{Endpoint: "localhost:9000"}})
	assert.ErrorContains(t, err, "access key")

	_, err = Open(ctx, config.StorageConfig{Backend: "minio", Minio: config.MinioConfig{Endpoint: "http://localhost:9000"}})
	assert.ErrorContains(t, err, "without a scheme")

	_, err = Open(ctx, config.StorageConfig{Backend: "gcs"})
	assert.ErrorContains(t, err, "gcs bucket is required")
}

func TestBackendErrorMapping(t *testing.T) {
	assert.NoError(t, minioError(nil))
	assert.ErrorIs(t, minioError(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}), ErrNotFound)
	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	assert.NotErrorIs(t, minioError(denied), ErrNotFound)

	assert.True(t, isPreconditionFailed(fmt.Errorf("close writer: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(nil))
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := newMapBackend()
	s := NewStorage(backend)

	assert.Error(t, s.Put(ctx, " ", strings.NewReader("x"), 1, "image/png"))
	assert.Error(t, s.Put(ctx, "covers/1/abc", strings.NewReader("x"), -1, "image/png"))
	assert.Zero(t, backend.puts)
	require.NoError(t, s.Put(ctx, "covers/1/abc", strings.NewReader("png"), 3, "image/png"))

	obj, err := s.Get(ctx, "covers/1/abc")
	require.NoError(t, err)
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "image/png", obj.ContentType)
	assert.EqualValues(t, 3, obj.Size)

	require.NoError(t, s.Put(ctx, "covers/1/raw", strings.NewReader("?"), 1, ""))
	raw, err := s.Get(ctx, "covers/1/raw")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", raw.ContentType)

	require.NoError(t, s.Delete(ctx, "covers/1/abc"))
	require.NoError(t, s.Delete(ctx, "covers/1/abc"))

	_, err = s.Get(ctx, "covers/1/abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "covers", s.Bucket())
}
