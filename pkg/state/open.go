package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// OpenFile loads the state document at a local path. The containing
// directory is created if needed. Writes go to a temporary file in the same
// directory and are renamed over the document.
func OpenFile(ctx context.Context, path string, options ...Option) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("state: resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("state: create %s: %w", dir, err)
	}

	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{
		CreateDir: true,
		NoTempDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", dir, err)
	}

	s := Load(ctx, bucket, filepath.Base(abs), options...)
	s.owned = true
	return s, nil
}

// OpenURL loads the state document stored as key in the bucket at
// bucketURL, e.g. "s3://my-bucket?region=eu-west-1" or "gs://my-bucket".
func OpenURL(ctx context.Context, bucketURL, key string, options ...Option) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("state: open bucket: %w", err)
	}

	s := Load(ctx, bucket, key, options...)
	s.owned = true
	return s, nil
}
