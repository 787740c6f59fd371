// Package which locates executables on the search path.
//
// os/exec.LookPath covers most of this, but its rules differ from what the
// pipeline needs on some points (Windows current-directory precedence is
// refused by LookPath since Go 1.19, and it cannot be driven with a
// synthetic environment in tests). The rules here are:
//
//   - a command with a directory part is checked directly, never on PATH;
//   - PATH entries are scanned in order, duplicates skipped, and an empty
//     entry means the current directory;
//   - on Windows the current directory is searched first and the PATHEXT
//     extensions are tried unless the command already ends in one;
//   - elsewhere the name is matched as is and must carry an execute bit;
//   - a match in the current directory is returned with a "./" or ".\"
//     prefix, so os/exec runs it without a second PATH lookup.
package which

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound is returned when no matching executable exists.
var ErrNotFound = errors.New("executable not found")

// defaultPathExt is used on Windows when PATHEXT is unset or empty.
const defaultPathExt = ".COM;.EXE;.BAT;.CMD"

// defaultPath is used on POSIX systems when PATH is unset.
const defaultPath = "/bin:/usr/bin"

// Env is the environment a lookup runs against.
type Env struct {
	GOOS    string
	Path    string
	PathExt string // Windows only
}

// CurrentEnv returns the lookup environment of this process.
func CurrentEnv() Env {
	path, ok := os.LookupEnv("PATH")
	if !ok && runtime.GOOS != "windows" {
		path = defaultPath
	}
	return Env{
		GOOS:    runtime.GOOS,
		Path:    path,
		PathExt: os.Getenv("PATHEXT"),
	}
}

// Look finds cmd using the process environment.
func Look(cmd string) (string, error) {
	return LookIn(cmd, CurrentEnv())
}

// LookIn finds cmd using env. It returns the first match, built by joining
// the PATH entry and the file name, or an error wrapping ErrNotFound.
// The returned path always has a directory part.
func LookIn(cmd string, env Env) (string, error) {
	if cmd == "" {
		return "", fmt.Errorf("%w: empty command", ErrNotFound)
	}
	windows := env.GOOS == "windows"

	if hasDirPart(cmd, windows) {
		if isExecutable(cmd, windows) {
			return cmd, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, cmd)
	}

	if env.Path == "" {
		return "", fmt.Errorf("%w: %s (empty PATH)", ErrNotFound, cmd)
	}

	dirs := splitList(env.Path, windows)
	candidates := []string{cmd}

	if windows {
		if !containsDir(dirs, ".") {
			dirs = append([]string{"."}, dirs...)
		}
		candidates = windowsCandidates(cmd, env.PathExt)
	}

	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		key := dir
		if windows {
			key = strings.ToLower(dir)
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		for _, name := range candidates {
			full := filepath.Join(dir, name)
			if isExecutable(full, windows) {
				return withDirPart(full, windows), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, cmd)
}

// windowsCandidates returns the file names tried for cmd on Windows.
func windowsCandidates(cmd, pathExt string) []string {
	if pathExt == "" {
		pathExt = defaultPathExt
	}
	var exts []string
	for _, ext := range strings.Split(pathExt, ";") {
		if ext != "" {
			exts = append(exts, ext)
		}
	}

	lower := strings.ToLower(cmd)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return []string{cmd}
		}
	}

	names := make([]string, 0, len(exts))
	for _, ext := range exts {
		names = append(names, cmd+ext)
	}
	return names
}

func hasDirPart(cmd string, windows bool) bool {
	if windows {
		return strings.ContainsAny(cmd, `/\:`)
	}
	return strings.Contains(cmd, "/")
}

// withDirPart prefixes a bare name, as joined from the "." entry, with the
// current directory.
func withDirPart(path string, windows bool) string {
	if hasDirPart(path, windows) {
		return path
	}
	if windows {
		return `.\` + path
	}
	return "./" + path
}

func splitList(path string, windows bool) []string {
	sep := ":"
	if windows {
		sep = ";"
	}
	parts := strings.Split(path, sep)
	for i, p := range parts {
		if p == "" {
			parts[i] = "."
		}
	}
	return parts
}

func containsDir(dirs []string, dir string) bool {
	for _, d := range dirs {
		if d == dir {
			return true
		}
	}
	return false
}

// isExecutable reports whether path is a regular file that may be run.
// Windows has no execute bit; the extension check stands in for it.
func isExecutable(path string, windows bool) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if windows {
		return true
	}
	return info.Mode().Perm()&fs.FileMode(0o111) != 0
}
