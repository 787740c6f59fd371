// Package fileutil provides file and path utility functions.
package fileutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrEmptyDir               = errors.New("directory path cannot be empty")
)

// File permission constants.
const (
	DirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	FilePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// partSuffix marks in-progress writes; such files are never visible under
// their final name.
const partSuffix = ".part"

// ValidateExtension checks that the extension is safe to append to a filename.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// NormalizeDir returns dir with a trailing path separator.
func NormalizeDir(dir string) string {
	if dir == "" {
		return dir
	}
	if os.IsPathSeparator(dir[len(dir)-1]) {
		return dir
	}
	return dir + string(os.PathSeparator)
}

// EnsureDir normalizes dir and creates it recursively if absent.
// created reports whether the directory did not exist before.
func EnsureDir(dir string) (normalized string, created bool, err error) {
	if dir == "" {
		return "", false, ErrEmptyDir
	}
	normalized = NormalizeDir(dir)

	info, err := os.Stat(normalized)
	switch {
	case err == nil && info.IsDir():
		return normalized, false, nil
	case err == nil:
		return "", false, fmt.Errorf("creating directory %s: not a directory", dir)
	case !errors.Is(err, os.ErrNotExist):
		return "", false, fmt.Errorf("checking directory %s: %w", dir, err)
	}

	if err := os.MkdirAll(normalized, DirPermissions); err != nil {
		return "", false, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return normalized, true, nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// WriteAtomic copies r into path through a sibling temporary file that is
// renamed into place only after a complete, synced write. On error the
// temporary file is removed and path is left untouched.
func WriteAtomic(path string, r io.Reader) (int64, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+"-*"+partSuffix)
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return n, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return n, fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return n, fmt.Errorf("closing temp file: %w", err)
	}
	// #nosec G302 -- output files are meant to be readable
	if err := os.Chmod(tmpPath, FilePermissions); err != nil {
		cleanup()
		return n, fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return n, fmt.Errorf("renaming into %s: %w", path, err)
	}
	return n, nil
}

// WriteFileAtomic is WriteAtomic for an in-memory buffer.
func WriteFileAtomic(path string, data []byte) error {
	_, err := WriteAtomic(path, bytes.NewReader(data))
	return err
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "exfetch" -> false (name)
//   - "./exfetch.yaml" -> true (relative path)
//   - "/etc/exfetch/uni.yaml" -> true (absolute)
//   - "C:\config\uni.yaml" -> true (Windows)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}
