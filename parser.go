package exfetch

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// FilesMarker precedes the filename list in a listing response.
const FilesMarker = "$files"

// ResponseParser extracts values from the platform's text responses.
// The platform answers with printed R structures rather than JSON, so all
// extraction is pattern based and kept behind this interface.
type ResponseParser interface {
	SessionHandle(body []byte) (SessionHandle, error)
	Filenames(body []byte) ([]string, error)
	RenderedPath(body []byte) (string, error)
}

// Compile-time interface check.
var _ ResponseParser = (*TextParser)(nil)

// quotedSource matches a double-quoted string ending in SourceExt that
// does not span a quote or a line break.
var quotedSource = regexp.MustCompile(`"([^"\r\n]*` + regexp.QuoteMeta(SourceExt) + `)"`)

// TextParser implements ResponseParser for OpenCPU text output.
type TextParser struct{}

// SessionHandle returns the second line of a login response.
func (TextParser) SessionHandle(body []byte) (SessionHandle, error) {
	lines := splitLines(body)
	if len(lines) < 2 {
		return "", fmt.Errorf("%w: login response has %d line(s), want at least 2", ErrProtocol, len(lines))
	}
	handle := strings.TrimSpace(lines[1])
	if handle == "" {
		return "", fmt.Errorf("%w: empty session handle", ErrProtocol)
	}
	return SessionHandle(handle), nil
}

// Filenames returns the quoted source filenames following FilesMarker,
// in the order they appear. A marker followed by no names yields an
// empty, non-nil slice. Names that contain SourceExt more than once are
// skipped because no derived name can be computed for them.
func (TextParser) Filenames(body []byte) ([]string, error) {
	_, rest, found := bytes.Cut(body, []byte(FilesMarker))
	if !found {
		return nil, fmt.Errorf("%w: listing has no %s marker", ErrProtocol, FilesMarker)
	}

	names := []string{}
	for _, m := range quotedSource.FindAllSubmatch(rest, -1) {
		name := string(m[1])
		if IsSourceName(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// RenderedPath returns the first line of a render response ending in HTMLExt.
func (TextParser) RenderedPath(body []byte) (string, error) {
	for _, line := range splitLines(body) {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, HTMLExt) {
			return line, nil
		}
	}
	return "", fmt.Errorf("%w: render response names no %s file", ErrProtocol, HTMLExt)
}

// splitLines splits body on \n, \r\n and \r. Lines have no length limit.
func splitLines(body []byte) []string {
	if len(body) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(body), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
