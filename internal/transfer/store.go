// Package transfer moves export runs between hosts through an S3-compatible
// object store. The CASA side pushes a finished export directory, the
// analysis side pulls it back down, and checksums from the manifest are
// verified in both directions.
package transfer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ObjectStore abstracts the minimal S3 operations transfers need.
type ObjectStore interface {
	Ping(ctx context.Context) error
	EnsureBucket(ctx context.Context, bucket string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	StatObject(ctx context.Context, bucket, key string) (int64, error)
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	RemoveObject(ctx context.Context, bucket, key string) error
}

// LocalStore persists objects on disk, mimicking bucket semantics for
// tests and single-machine setups.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local object store rooted at dir.
func NewLocalStore(root string) *LocalStore {
	if root == "" {
		root = filepath.Join(os.TempDir(), "visread-store")
	}
	_ = os.MkdirAll(root, 0o755)
	return &LocalStore{root: root}
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(s.root, 0o755)
}

func (s *LocalStore) EnsureBucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	return os.MkdirAll(s.bucketPath(bucket), 0o755)
}

func (s *LocalStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(s.bucketPath(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (s *LocalStore) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	if key == "" {
		return wrapError(CodeTransferFailed, false, os.ErrInvalid)
	}
	if err := s.EnsureBucket(ctx, bucket); err != nil {
		return err
	}
	full := filepath.Join(s.bucketPath(bucket), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return wrapError(CodePermissionDenied, false, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return wrapError(CodeTransferFailed, true, err)
	}
	return nil
}

func (s *LocalStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	data, err := os.ReadFile(filepath.Join(s.bucketPath(bucket), filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapError(CodeObjectNotFound, false, err)
		}
		return nil, wrapError(CodeTransferFailed, true, err)
	}
	return data, nil
}

func (s *LocalStore) StatObject(ctx context.Context, bucket, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if bucket == "" {
		return 0, wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	info, err := os.Stat(filepath.Join(s.bucketPath(bucket), filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, wrapError(CodeObjectNotFound, false, err)
		}
		return 0, wrapError(CodeTransferFailed, true, err)
	}
	return info.Size(), nil
}

func (s *LocalStore) ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}

	var keys []string
	err := filepath.WalkDir(s.bucketPath(bucket), func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.bucketPath(bucket), path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, wrapError(CodeTransferFailed, true, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// RemoveObject deletes an object. Removing a missing key is not an error,
// matching S3 delete semantics.
func (s *LocalStore) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	err := os.Remove(filepath.Join(s.bucketPath(bucket), filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return wrapError(CodeTransferFailed, true, err)
	}
	return nil
}

func (s *LocalStore) bucketPath(bucket string) string {
	return filepath.Join(s.root, sanitizeName(bucket))
}

// sanitizeName keeps bucket directories inside the store root.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.Trim(name, "/")
	return strings.ReplaceAll(name, "/", "_")
}
