// Package coldstore writes archive objects to durable object storage.
package coldstore

import (
	"context"
	"errors"
)

// ContentTypeJSONL is the content type of archive objects.
const ContentTypeJSONL = "application/jsonl"

// ErrNotFound is returned when reading an object that does not exist.
var ErrNotFound = errors.New("object not found")

// Bucket is the cold store contract: one atomic write per key. Writing an
// existing key replaces the object.
type Bucket interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
}

// Object is a stored object together with its attributes.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// Reader is implemented by buckets that can read objects back.
type Reader interface {
	GetObject(ctx context.Context, key string) (Object, error)
}
