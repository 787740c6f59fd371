package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	exfetch "github.com/alnah/go-exfetch"
	"github.com/alnah/go-exfetch/internal/archive"
	"github.com/alnah/go-exfetch/internal/which"
)

// Notes:
// - fakePlatform mimics the three OpenCPU endpoints with the textual
//   response shapes the parser expects.
// - fakeRunner stands in for wkhtmltopdf and xvfb-run: it writes the
//   output file named by its last argument.

const testHandle = "/solutions/abc123"

// fakePlatform is an in-process DoExercises server.
type fakePlatform struct {
	files       []string
	loginStatus int
	onRender    func(name string)

	requests atomic.Int64
	mu       sync.Mutex
	logins   []map[string]string
	renders  []string
}

func (p *fakePlatform) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc(exfetch.SolutionsPath, func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.mu.Lock()
		p.logins = append(p.logins, body)
		p.mu.Unlock()

		if p.loginStatus != 0 {
			w.WriteHeader(p.loginStatus)
			fmt.Fprint(w, "Error in getSolutions(): unknown user\n")
			return
		}
		fmt.Fprintf(w, "/ocpu/tmp/x0a1/R/.val\n%s\n/ocpu/tmp/x0a1/stdout\n", testHandle)
	})

	mux.HandleFunc(testHandle, func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		quoted := make([]string, len(p.files))
		for i, f := range p.files {
			quoted[i] = `"` + f + `"`
		}
		fmt.Fprintf(w, "$files\n[1] %s\n\n$count\n[1] %d\n", strings.Join(quoted, " "), len(p.files))
	})

	mux.HandleFunc(exfetch.RenderPath, func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		var body struct {
			File   string `json:"file"`
			Output string `json:"output_file_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		p.renders = append(p.renders, body.File)
		p.mu.Unlock()
		if p.onRender != nil {
			p.onRender(body.File)
		}
		fmt.Fprintf(w, "/ocpu/tmp/x0b2/R/.val\n/ocpu/tmp/x0b2/files/%s\n", body.Output)
	})

	mux.HandleFunc("/ocpu/tmp/x0b2/files/", func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		fmt.Fprintf(w, "<html><body>%s</body></html>", filepath.Base(r.URL.Path))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (p *fakePlatform) rendered() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.renders...)
	sort.Strings(out)
	return out
}

// fakeRunner records converter invocations and writes fake PDFs.
type fakeRunner struct {
	fail map[string]bool // HTML base names whose conversion fails

	mu        sync.Mutex
	calls     [][]string
	active    int
	maxActive int
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	if len(args) == 1 && args[0] == "--version" {
		return "wkhtmltopdf 0.12.6 (with patched qt)\n", "", nil
	}

	time.Sleep(5 * time.Millisecond) // widen the overlap window
	in, out := args[len(args)-2], args[len(args)-1]
	if r.fail[filepath.Base(in)] {
		return "", "Exit with code 1 due to network error: HostNotFoundError", errors.New("exit status 1")
	}
	if err := os.WriteFile(out, []byte("%PDF-1.4 "+filepath.Base(in)), 0o644); err != nil {
		return "", "", err
	}
	return "", "", nil
}

func (r *fakeRunner) snapshot() (calls [][]string, maxActive int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...), r.maxActive
}

// lookupOf returns a LookupFunc that knows only the given executables.
func lookupOf(known map[string]string) exfetch.LookupFunc {
	return func(name string) (string, error) {
		if p, ok := known[name]; ok {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s", which.ErrNotFound, name)
	}
}

// testEnv is an Environment with captured output and no host lookups.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	vars   map[string]string
}

func newTestEnv() *testEnv {
	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		vars:   map[string]string{},
	}
	te.Environment = &Environment{
		Now:        func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) },
		Stdout:     te.stdout,
		Stderr:     te.stderr,
		Getenv:     func(k string) string { return te.vars[k] },
		Environ:    func() []string { return nil },
		GOOS:       "linux",
		Lookup:     lookupOf(nil),
		LookChrome: func() (string, bool) { return "", false },
		NewMirror:  archive.New,
	}
	return te
}

// listDir returns the sorted names of entries in dir.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
