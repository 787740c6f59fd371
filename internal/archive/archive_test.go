package archive

// Notes:
// - New: only the configuration check is tested. Connecting to a real
//   S3-compatible endpoint is out of scope for unit tests; Mirror is
//   exercised through an in-memory ObjectStore.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
)

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu       sync.Mutex
	buckets  map[string]bool
	objects  map[string]string // key -> content type
	putErr   map[string]error
	existErr error
	puts     int
}

func newMemStore() *memStore {
	return &memStore{
		buckets: map[string]bool{},
		objects: map[string]string{},
		putErr:  map[string]error{},
	}
}

func (s *memStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existErr != nil {
		return false, s.existErr
	}
	return s.buckets[bucket], nil
}

func (s *memStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket] = true
	return nil
}

func (s *memStore) StatObject(_ context.Context, _, object string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[object]; !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return minio.ObjectInfo{Key: object}, nil
}

func (s *memStore) FPutObject(_ context.Context, _, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putErr[object]; err != nil {
		return minio.UploadInfo{}, err
	}
	if _, err := os.Stat(filePath); err != nil {
		return minio.UploadInfo{}, err
	}
	s.objects[object] = opts.ContentType
	s.puts++
	return minio.UploadInfo{Key: object}, nil
}

func localFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(name), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// ---------------------------------------------------------------------------
// TestConfig - Enabled and New
// ---------------------------------------------------------------------------

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty", Config{}, false},
		{"endpoint only", Config{Endpoint: "localhost:9000"}, false},
		{"bucket only", Config{Bucket: "solutions"}, false},
		{"both", Config{Endpoint: "localhost:9000", Bucket: "solutions"}, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.Enabled(); got != tt.want {
			t.Errorf("%s: Enabled() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNew_NotConfigured(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestNew_DoesNotConnect(t *testing.T) {
	t.Parallel()

	m, err := New(Config{Endpoint: "127.0.0.1:1", Bucket: "solutions", Prefix: "uni"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Key("mario.rossi", "pdf", "/tmp/ex1.pdf"); got != "uni/mario.rossi/pdf/ex1.pdf" {
		t.Errorf("Key() = %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestMirror - Bucket creation and uploads
// ---------------------------------------------------------------------------

func TestMirror_EnsureBucket(t *testing.T) {
	t.Parallel()

	t.Run("creates missing bucket", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		m := NewWithStore(store, "solutions", "")
		if err := m.EnsureBucket(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !store.buckets["solutions"] {
			t.Error("bucket not created")
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.existErr = errors.New("access denied")
		m := NewWithStore(store, "solutions", "")
		if err := m.EnsureBucket(context.Background()); !errors.Is(err, ErrBucket) {
			t.Errorf("error = %v, want ErrBucket", err)
		}
	})
}

func TestMirror_Upload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	html := localFile(t, dir, "ex1.html")
	pdf := localFile(t, dir, "ex1.pdf")

	t.Run("uploads with content types", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		m := NewWithStore(store, "solutions", "")
		files := []File{
			{Local: html, Key: m.Key("u", "html", html)},
			{Local: pdf, Key: m.Key("u", "pdf", pdf)},
		}

		outcomes := m.Upload(context.Background(), files, false)
		for _, o := range outcomes {
			if o.Err != nil || o.Skipped {
				t.Errorf("outcome %+v", o)
			}
		}
		if store.objects["u/html/ex1.html"] != "text/html; charset=utf-8" {
			t.Errorf("html content type = %q", store.objects["u/html/ex1.html"])
		}
		if store.objects["u/pdf/ex1.pdf"] != "application/pdf" {
			t.Errorf("pdf content type = %q", store.objects["u/pdf/ex1.pdf"])
		}
	})

	t.Run("skips existing unless forced", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.objects["u/html/ex1.html"] = "text/html"
		m := NewWithStore(store, "solutions", "")
		files := []File{{Local: html, Key: "u/html/ex1.html"}}

		if o := m.Upload(context.Background(), files, false); !o[0].Skipped {
			t.Errorf("outcome %+v, want skipped", o[0])
		}
		if store.puts != 0 {
			t.Errorf("puts = %d, want 0", store.puts)
		}
		if o := m.Upload(context.Background(), files, true); o[0].Skipped || o[0].Err != nil {
			t.Errorf("forced outcome %+v", o[0])
		}
		if store.puts != 1 {
			t.Errorf("puts = %d, want 1", store.puts)
		}
	})

	t.Run("failure does not stop later files", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.putErr["k1"] = errors.New("quota exceeded")
		m := NewWithStore(store, "solutions", "")

		outcomes := m.Upload(context.Background(), []File{
			{Local: html, Key: "k1"},
			{Local: pdf, Key: "k2"},
		}, false)
		if !errors.Is(outcomes[0].Err, ErrUpload) {
			t.Errorf("first outcome error = %v, want ErrUpload", outcomes[0].Err)
		}
		if outcomes[1].Err != nil {
			t.Errorf("second outcome error = %v", outcomes[1].Err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := newMemStore()
		m := NewWithStore(store, "solutions", "")

		outcomes := m.Upload(ctx, []File{{Local: html, Key: "k1"}}, false)
		if !errors.Is(outcomes[0].Err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", outcomes[0].Err)
		}
		if store.puts != 0 {
			t.Error("upload attempted after cancellation")
		}
	})
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"ex1.html":  "text/html; charset=utf-8",
		"EX1.HTM":   "text/html; charset=utf-8",
		"ex1.pdf":   "application/pdf",
		"notes.txt": "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
