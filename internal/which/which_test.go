package which

// Notes:
// - LookIn is driven with synthetic Env values over temp directories, so
//   Windows rules are exercised on any host. POSIX execute-bit cases are
//   skipped on Windows hosts where permission bits are not meaningful.

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"), mode); err != nil {
		t.Fatal(err)
	}
	return p
}

// ---------------------------------------------------------------------------
// TestLookIn_POSIX - PATH scan with execute bits
// ---------------------------------------------------------------------------

func TestLookIn_POSIX(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not meaningful on Windows")
	}

	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, first, "wkhtmltopdf", 0o644) // not executable
	want := writeFile(t, second, "wkhtmltopdf", 0o755)
	writeFile(t, first, "xvfb-run", 0o755)
	writeFile(t, second, "xvfb-run", 0o755)

	env := Env{GOOS: "linux", Path: first + ":" + second}

	t.Run("skips non-executable", func(t *testing.T) {
		t.Parallel()

		got, err := LookIn("wkhtmltopdf", env)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("LookIn() = %q, want %q", got, want)
		}
	})

	t.Run("first match wins", func(t *testing.T) {
		t.Parallel()

		got, err := LookIn("xvfb-run", env)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != filepath.Join(first, "xvfb-run") {
			t.Errorf("LookIn() = %q, want entry from first directory", got)
		}
	})

	t.Run("no extension search", func(t *testing.T) {
		t.Parallel()

		writeFile(t, second, "tool.exe", 0o755)
		if _, err := LookIn("tool", env); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("path with directory part is not searched", func(t *testing.T) {
		t.Parallel()

		got, err := LookIn(want, Env{GOOS: "linux", Path: first})
		if err != nil || got != want {
			t.Errorf("LookIn(%q) = %q, %v", want, got, err)
		}
		if _, err := LookIn("./wkhtmltopdf", env); !errors.Is(err, ErrNotFound) {
			t.Errorf("relative path resolved against PATH: %v", err)
		}
	})

	t.Run("directory is not executable", func(t *testing.T) {
		t.Parallel()

		if err := os.Mkdir(filepath.Join(first, "dirtool"), 0o755); err != nil {
			t.Fatal(err)
		}
		if _, err := LookIn("dirtool", env); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestLookIn_Windows - PATHEXT candidates and case-insensitive dedup
// ---------------------------------------------------------------------------

func TestLookIn_Windows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exe := writeFile(t, dir, "wkhtmltopdf.EXE", 0o644)
	bat := writeFile(t, dir, "build.bat", 0o644)

	tests := []struct {
		name    string
		cmd     string
		pathExt string
		want    string
	}{
		{"extension appended", "wkhtmltopdf", ".COM;.EXE", exe},
		{"default PATHEXT", "wkhtmltopdf", "", exe},
		{"explicit extension kept", "build.bat", ".COM;.EXE;.BAT", bat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := LookIn(tt.cmd, Env{GOOS: "windows", Path: dir, PathExt: tt.pathExt})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("LookIn(%q) = %q, want %q", tt.cmd, got, tt.want)
			}
		})
	}

	t.Run("extension not in PATHEXT", func(t *testing.T) {
		t.Parallel()

		_, err := LookIn("wkhtmltopdf", Env{GOOS: "windows", Path: dir, PathExt: ".COM;.BAT"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestLookIn_CurrentDirectory - Matches from the "." entry keep a directory part
// ---------------------------------------------------------------------------

// Not parallel: t.Chdir changes the process working directory.
func TestLookIn_CurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, "wkhtmltopdf.EXE", 0o644)
	writeFile(t, dir, "conv", 0o755)

	t.Run("windows cwd first", func(t *testing.T) {
		got, err := LookIn("wkhtmltopdf", Env{GOOS: "windows", Path: `C:\nowhere`})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != `.\wkhtmltopdf.EXE` {
			t.Errorf("LookIn() = %q, want %q", got, `.\wkhtmltopdf.EXE`)
		}
	})

	t.Run("posix empty entry", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("execute bits not meaningful on Windows")
		}
		got, err := LookIn("conv", Env{GOOS: "linux", Path: "/nonexistent:"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "./conv" {
			t.Errorf("LookIn() = %q, want %q", got, "./conv")
		}
	})
}

// ---------------------------------------------------------------------------
// TestLookIn_Errors - Empty inputs
// ---------------------------------------------------------------------------

func TestLookIn_Errors(t *testing.T) {
	t.Parallel()

	if _, err := LookIn("", Env{GOOS: "linux", Path: "/bin"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty command: error = %v", err)
	}
	_, err := LookIn("wkhtmltopdf", Env{GOOS: "linux"})
	if !errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "empty PATH") {
		t.Errorf("empty PATH: error = %v", err)
	}
}

func TestWindowsCandidates(t *testing.T) {
	t.Parallel()

	got := windowsCandidates("conv", ".COM;;.EXE")
	if len(got) != 2 || got[0] != "conv.COM" || got[1] != "conv.EXE" {
		t.Errorf("windowsCandidates() = %v", got)
	}
	if got := windowsCandidates("conv.exe", ".COM;.EXE"); len(got) != 1 || got[0] != "conv.exe" {
		t.Errorf("windowsCandidates(conv.exe) = %v", got)
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	got := splitList("/a::/b", false)
	want := []string{"/a", ".", "/b"}
	if len(got) != len(want) {
		t.Fatalf("splitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
