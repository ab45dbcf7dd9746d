package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// BlobStore keeps artifacts as objects in a bucket, optionally under a key
// prefix. Object writes are atomic on every supported provider: an object
// only becomes visible once the writer is closed successfully.
type BlobStore struct {
	bucket *blob.Bucket
	url    string
	prefix string
}

// OpenBlobStore opens a bucket URL such as s3://tiles?region=eu-west-1,
// gs://tiles, file:///srv/tiles or mem://
func OpenBlobStore(ctx context.Context, bucketURL, prefix string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	s := NewBlobStore(bucket, prefix)
	s.url = bucketURL
	return s, nil
}

// NewBlobStore wraps an open bucket. The store takes ownership of bucket.
func NewBlobStore(bucket *blob.Bucket, prefix string) *BlobStore {
	return &BlobStore{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *BlobStore) key(id int) string {
	if s.prefix == "" {
		return ArtifactName(id)
	}
	return path.Join(s.prefix, ArtifactName(id))
}

func (s *BlobStore) Exists(ctx context.Context, id int) (bool, error) {
	ok, err := s.bucket.Exists(ctx, s.key(id))
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", s.key(id), err)
	}
	return ok, nil
}

func (s *BlobStore) Save(ctx context.Context, id int, data []byte) error {
	opts := &blob.WriterOptions{ContentType: "image/png"}
	if err := s.bucket.WriteAll(ctx, s.key(id), data, opts); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key(id), err)
	}
	return nil
}

func (s *BlobStore) Location(id int) string {
	if s.url == "" {
		return s.key(id)
	}
	base := strings.SplitN(s.url, "?", 2)[0]
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + s.key(id)
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
