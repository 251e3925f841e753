package coldstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/filesystem"
)

// attrSuffix names the sidecar object holding content type and metadata,
// which objstore buckets do not carry natively.
const attrSuffix = ".attrs.json"

type attributes struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ObjstoreBucket adapts any objstore.Bucket.
type ObjstoreBucket struct {
	bkt objstore.Bucket
}

// NewObjstoreBucket wraps bkt.
func NewObjstoreBucket(bkt objstore.Bucket) *ObjstoreBucket {
	return &ObjstoreBucket{bkt: bkt}
}

// NewFilesystem stores objects as files under dir.
func NewFilesystem(dir string) (*ObjstoreBucket, error) {
	bkt, err := filesystem.NewBucket(dir)
	if err != nil {
		return nil, fmt.Errorf("filesystem bucket %q: %w", dir, err)
	}
	return NewObjstoreBucket(bkt), nil
}

// NewMemory keeps objects in process memory.
func NewMemory() *ObjstoreBucket {
	return NewObjstoreBucket(objstore.NewInMemBucket())
}

// PutObject implements Bucket. The attribute sidecar is written first so a
// visible object always has its attributes.
func (b *ObjstoreBucket) PutObject(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	attrs, err := json.Marshal(attributes{ContentType: contentType, Metadata: metadata})
	if err != nil {
		return fmt.Errorf("objstore put %s: %w", key, err)
	}
	if err := b.bkt.Upload(ctx, key+attrSuffix, bytes.NewReader(attrs)); err != nil {
		return fmt.Errorf("objstore put %s attributes: %w", key, err)
	}
	if err := b.bkt.Upload(ctx, key, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("objstore put %s: %w", key, err)
	}
	return nil
}

// GetObject implements Reader.
func (b *ObjstoreBucket) GetObject(ctx context.Context, key string) (Object, error) {
	body, err := b.read(ctx, key)
	if err != nil {
		return Object{}, err
	}
	obj := Object{Key: key, Body: body}

	raw, err := b.read(ctx, key+attrSuffix)
	if err != nil {
		return Object{}, err
	}
	var attrs attributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return Object{}, fmt.Errorf("objstore get %s attributes: %w", key, err)
	}
	obj.ContentType = attrs.ContentType
	obj.Metadata = attrs.Metadata
	return obj, nil
}

// Keys lists archive object keys under prefix, recursively.
func (b *ObjstoreBucket) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.bkt.Iter(ctx, prefix, func(name string) error {
		if len(name) < len(attrSuffix) || name[len(name)-len(attrSuffix):] != attrSuffix {
			keys = append(keys, name)
		}
		return nil
	}, objstore.WithRecursiveIter)
	if err != nil {
		return nil, fmt.Errorf("objstore list %s: %w", prefix, err)
	}
	return keys, nil
}

// Close releases the underlying bucket.
func (b *ObjstoreBucket) Close() error {
	return b.bkt.Close()
}

func (b *ObjstoreBucket) read(ctx context.Context, name string) ([]byte, error) {
	rc, err := b.bkt.Get(ctx, name)
	if err != nil {
		if b.bkt.IsObjNotFoundErr(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("objstore get %s: %w", name, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("objstore read %s: %w", name, err)
	}
	return body, nil
}
