package exfetch

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"github.com/alnah/go-exfetch/internal/fileutil"
)

// IndexFile is the name of the run index written into the HTML directory.
const IndexFile = "index.html"

// indexCodeStyle is the chroma style of code blocks in the index.
const indexCodeStyle = "github"

// indexTemplate wraps Goldmark's fragment output in a complete HTML5 document.
const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; }
%s
</style>
</head>
<body>
%s
</body>
</html>`

// IndexEntry describes one exercise in the run index.
type IndexEntry struct {
	Name    string // source filename
	HTMLRel string // link to the HTML file, relative to the index ("" if absent)
	PDFRel  string // link to the PDF file, relative to the index ("" if absent)
}

// Index is the input of WriteIndex.
type Index struct {
	Title   string
	RunID   string
	User    string
	Created time.Time
	Command string
	Entries []IndexEntry
}

// BuildIndexEntries lists names with links to the files that exist in
// htmlDir and pdfDir. Links are relative to htmlDir.
func BuildIndexEntries(names []string, htmlDir, pdfDir string) []IndexEntry {
	entries := make([]IndexEntry, 0, len(names))
	for _, name := range names {
		e := IndexEntry{Name: name}
		if h, err := DerivedName(name, HTMLExt); err == nil && fileutil.FileExists(filepath.Join(htmlDir, h)) {
			e.HTMLRel = h
		}
		if p, err := DerivedName(name, PDFExt); err == nil && pdfDir != "" {
			full := filepath.Join(pdfDir, p)
			if fileutil.FileExists(full) {
				if rel, err := relPath(htmlDir, full); err == nil {
					e.PDFRel = rel
				}
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// IndexMarkdown renders idx as Markdown.
func IndexMarkdown(idx Index) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(idx.Title))
	if idx.User != "" {
		fmt.Fprintf(&b, "Student: **%s**  \n", escapeMarkdown(idx.User))
	}
	fmt.Fprintf(&b, "Updated: %s  \n", idx.Created.Format("2006-01-02 15:04"))
	if idx.RunID != "" {
		fmt.Fprintf(&b, "Run: `%s`\n", idx.RunID)
	}
	b.WriteString("\n")

	if len(idx.Entries) == 0 {
		b.WriteString("No exercises available yet.\n")
	} else {
		b.WriteString("| Exercise | HTML | PDF |\n|---|---|---|\n")
		for _, e := range idx.Entries {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", escapeMarkdown(e.Name), link("open", e.HTMLRel), link("download", e.PDFRel))
		}
	}

	if idx.Command != "" {
		b.WriteString("\n## Refresh\n\n```sh\n")
		b.WriteString(idx.Command)
		b.WriteString("\n```\n")
	}
	return b.String()
}

// RenderIndex converts idx to a standalone HTML document.
func RenderIndex(idx Index) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // Tables
			highlighting.NewHighlighting(
				highlighting.WithStyle(indexCodeStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(IndexMarkdown(idx)), &body); err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}

	// Code blocks carry chroma classes; ship the matching stylesheet.
	var css bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&css, styles.Get(indexCodeStyle)); err != nil {
		return nil, fmt.Errorf("rendering index styles: %w", err)
	}
	return []byte(fmt.Sprintf(indexTemplate, html.EscapeString(idx.Title), css.String(), body.String())), nil
}

// WriteIndex renders idx into dir/IndexFile.
func WriteIndex(dir string, idx Index) (string, error) {
	data, err := RenderIndex(idx)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, IndexFile)
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("writing index: %w", err)
	}
	return path, nil
}

func link(label, rel string) string {
	if rel == "" {
		return "-"
	}
	u := url.URL{Path: filepath.ToSlash(rel)}
	return fmt.Sprintf("[%s](%s)", label, u.EscapedPath())
}

func relPath(base, target string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	return filepath.Rel(absBase, absTarget)
}

// escapeMarkdown neutralizes characters that would break a table cell or
// start inline markup.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `|`, `\|`, `*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`, `<`, `&lt;`)
	return r.Replace(s)
}

// IndexCollides reports whether an exercise would be written over the index.
func IndexCollides(names []string) bool {
	for _, name := range names {
		if h, err := DerivedName(name, HTMLExt); err == nil && strings.EqualFold(h, IndexFile) {
			return true
		}
	}
	return false
}
