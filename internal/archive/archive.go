// Package archive mirrors produced files to an S3-compatible bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Sentinel errors for archive operations.
var (
	ErrNotConfigured = errors.New("archive endpoint and bucket are required")
	ErrBucket        = errors.New("archive bucket unavailable")
	ErrUpload        = errors.New("archive upload failed")
)

// Config holds the object store connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Enabled reports whether the mirror should run.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// ObjectStore is the subset of the minio client used by Mirror.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Compile-time interface implementation check.
var _ ObjectStore = (*minio.Client)(nil)

// File is a local file and the object key it is stored under.
type File struct {
	Local string
	Key   string
}

// Outcome is the result of mirroring one File.
type Outcome struct {
	Key     string
	Skipped bool // object already present
	Err     error
}

// Mirror uploads files to one bucket.
type Mirror struct {
	store  ObjectStore
	bucket string
	prefix string
}

// New connects a Mirror to the store described by cfg.
// The connection itself is only exercised on first request.
func New(cfg Config) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return NewWithStore(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithStore creates a Mirror over an existing store (for testing).
func NewWithStore(store ObjectStore, bucket, prefix string) *Mirror {
	return &Mirror{store: store, bucket: bucket, prefix: prefix}
}

// EnsureBucket creates the bucket if it doesn't exist.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.store.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBucket, m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.store.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrBucket, m.bucket, err)
	}
	return nil
}

// Key builds the object key of a local file: prefix/user/kind/name.
func (m *Mirror) Key(user, kind, local string) string {
	return path.Join(m.prefix, user, kind, filepath.Base(local))
}

// Upload stores every file. Objects that already exist are skipped unless
// force is set. Each file is attempted even if an earlier one failed.
func (m *Mirror) Upload(ctx context.Context, files []File, force bool) []Outcome {
	outcomes := make([]Outcome, 0, len(files))
	for _, f := range files {
		if ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{Key: f.Key, Err: ctx.Err()})
			continue
		}

		if !force && m.exists(ctx, f.Key) {
			outcomes = append(outcomes, Outcome{Key: f.Key, Skipped: true})
			continue
		}

		_, err := m.store.FPutObject(ctx, m.bucket, f.Key, f.Local, minio.PutObjectOptions{
			ContentType: ContentType(f.Local),
		})
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrUpload, f.Key, err)
		}
		outcomes = append(outcomes, Outcome{Key: f.Key, Err: err})
	}
	return outcomes
}

// exists reports whether key is already stored. Lookup errors other than
// a missing key count as absent so the upload is attempted.
func (m *Mirror) exists(ctx context.Context, key string) bool {
	_, err := m.store.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	return err == nil
}

// ContentType returns the MIME type stored with a file.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
