package exfetch

import (
	"fmt"
	"strings"
)

// File extensions handled by the pipeline.
const (
	SourceExt = ".Rmd"
	HTMLExt   = ".html"
	PDFExt    = ".pdf"
)

// DerivedName replaces the source extension of name with ext.
// name must contain SourceExt exactly once, as its suffix.
func DerivedName(name, ext string) (string, error) {
	if !IsSourceName(name) {
		return "", fmt.Errorf("%w: %q", ErrAmbiguousName, name)
	}
	return strings.TrimSuffix(name, SourceExt) + ext, nil
}

// SourceName maps a derived name back to its source name.
// SourceName(DerivedName(f, ext), ext) == f for every valid f.
func SourceName(derived, ext string) (string, error) {
	if ext == "" || !strings.HasSuffix(derived, ext) {
		return "", fmt.Errorf("%w: %q does not end in %q", ErrAmbiguousName, derived, ext)
	}
	name := strings.TrimSuffix(derived, ext) + SourceExt
	if !IsSourceName(name) {
		return "", fmt.Errorf("%w: %q", ErrAmbiguousName, derived)
	}
	return name, nil
}

// IsSourceName reports whether name ends in SourceExt and contains it once.
func IsSourceName(name string) bool {
	return len(name) > len(SourceExt) &&
		strings.HasSuffix(name, SourceExt) &&
		strings.Count(name, SourceExt) == 1
}
