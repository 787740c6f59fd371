// Package console prints severity-coded progress lines.
//
// There is no package state: every call takes the writer, verbosity and
// color choice through a Printer value.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gookit/color"
)

// Level is the severity of a line.
type Level int

// Severity levels.
const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
	LevelDebug
)

// prefixes are printed before each message.
var prefixes = map[Level]string{
	LevelInfo:    "[+] ",
	LevelSuccess: "[v] ",
	LevelWarn:    "[!] ",
	LevelError:   "[x] ",
	LevelDebug:   "\t ",
}

// palette colors whole lines by level. Info and debug stay plain.
var palette = map[Level]color.Color{
	LevelSuccess: color.FgGreen,
	LevelWarn:    color.FgYellow,
	LevelError:   color.FgRed,
}

// Format builds one output line (without trailing newline).
// Debug text is indented, including continuation lines.
func Format(level Level, msg string, colored bool) string {
	if level == LevelDebug {
		msg = strings.ReplaceAll(strings.TrimSpace(msg), "\n", "\n\t ")
	}
	line := prefixes[level] + msg

	if c, ok := palette[level]; ok && colored {
		return c.Render(line)
	}
	return line
}

// Printer writes formatted lines to Out.
type Printer struct {
	Out     io.Writer
	Verbose bool
	Color   bool
}

// New returns a Printer writing to w through a lock, so lines from
// concurrent workers never interleave.
func New(w io.Writer, verbose, colored bool) Printer {
	return Printer{Out: Synchronized(w), Verbose: verbose, Color: colored}
}

// Info prints a progress line.
func (p Printer) Info(format string, args ...any) {
	p.print(LevelInfo, format, args...)
}

// Success prints a green completion line.
func (p Printer) Success(format string, args ...any) {
	p.print(LevelSuccess, format, args...)
}

// Warn prints a yellow line for a non-fatal problem.
func (p Printer) Warn(format string, args ...any) {
	p.print(LevelWarn, format, args...)
}

// Error prints a red line.
func (p Printer) Error(format string, args ...any) {
	p.print(LevelError, format, args...)
}

// Debug prints an indented line only in verbose mode.
func (p Printer) Debug(format string, args ...any) {
	if !p.Verbose {
		return
	}
	p.print(LevelDebug, format, args...)
}

func (p Printer) print(level Level, format string, args ...any) {
	if p.Out == nil {
		return
	}
	_, _ = io.WriteString(p.Out, Format(level, fmt.Sprintf(format, args...), p.Color)+"\n")
}

// ColorEnabled decides whether output to w should be colored: never when
// disabled explicitly or NO_COLOR is set, otherwise only for terminals.
func ColorEnabled(w io.Writer, disabled bool) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0 && color.SupportColor()
}

// syncWriter serializes writes to an underlying writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}

// Synchronized wraps w so concurrent writes are serialized.
func Synchronized(w io.Writer) io.Writer {
	if _, ok := w.(*syncWriter); ok {
		return w
	}
	return &syncWriter{w: w}
}
