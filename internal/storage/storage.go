package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bookx-exchange/apiserver/config"
)

const (
	BackendNone  = "none"
	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

const (
	defaultContentType = "application/octet-stream"

	// cacheControl lets clients keep objects for a day; keys change with
	// their content.
	cacheControl = "public, max-age=86400"
)

var (
	// ErrDisabled is returned by Open when no object store is configured.
	ErrDisabled = errors.New("object storage is disabled")

	// ErrNotFound reports a missing object.
	ErrNotFound = errors.New("object not found")
)

// Object is an open object plus the metadata it was stored with. Close
// it when done.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
//
// Keys are content addressed: two puts under one key carry the same
// bytes, so a backend may skip the upload when the key already exists.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage wraps an ObjectStorage backend with a stable API. It holds
// book cover images.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend selected by cfg.Backend and makes sure its
// bucket exists.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, ErrDisabled
	case BackendMinio:
		backend, err = NewMinioClient(cfg.Minio)
	case BackendGCS:
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

// Put uploads an object. An empty content type is stored as
// application/octet-stream.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("object key is required")
	}
	if size < 0 {
		return fmt.Errorf("object %s: size must be known", key)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens an object. A missing object is ErrNotFound.
func (s *Storage) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if obj.ContentType == "" {
		obj.ContentType = defaultContentType
	}
	return obj, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.backend.Delete(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
