// Package storage provides object storage for raw export files.
//
// The pipeline core depends only on the ObjectStore capability contract;
// concrete drivers exist for MinIO/S3 (production) and a zstd-compressed
// local filesystem (development and tests). Raw objects are immutable:
// keys are constructed so that every distinct upload lands on a new key,
// and nothing in this service ever deletes one.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the requested key does not exist in the bucket.
var ErrNotFound = errors.New("object not found")

// UnavailableError wraps a transport-level failure against the object
// store. Callers may safely retry the enclosing operation; the load path
// is idempotent via the bronze load history.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("object storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a retryable storage failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// ObjectInfo describes a stored object as reported by List.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the capability contract the ingestion core consumes.
//
// Put overwrites silently if the key exists; the key construction in
// BuildKey makes that a non-event in practice. Get returns ErrNotFound
// for missing keys and *UnavailableError for transport failures.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
