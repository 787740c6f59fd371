package exfetch

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestTextParser_SessionHandle - Login responses
// ---------------------------------------------------------------------------

func TestTextParser_SessionHandle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    SessionHandle
		wantErr bool
	}{
		{"second line", "/ocpu/tmp/x0a1/R/.val\n/ocpu/tmp/x0a1/R/getSolutions\n/ocpu/tmp/x0a1/stdout\n", "/ocpu/tmp/x0a1/R/getSolutions", false},
		{"crlf", "/a\r\n/b\r\n", "/b", false},
		{"lone cr", "/a\r/b", "/b", false},
		{"trailing spaces trimmed", "/a\n  /b  \n", "/b", false},
		{"single line", "/ocpu/tmp/x0a1/R/.val\n", "", true},
		{"empty", "", "", true},
		{"blank second line", "/a\n   \n/c\n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := TextParser{}.SessionHandle([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrProtocol) {
					t.Errorf("error = %v, want ErrProtocol", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SessionHandle() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestTextParser_Filenames - Listing responses
// ---------------------------------------------------------------------------

func TestTextParser_Filenames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "single line vector",
			body: "$files\n[1] \"ex1.Rmd\" \"ex2.Rmd\"\n",
			want: []string{"ex1.Rmd", "ex2.Rmd"},
		},
		{
			name: "wrapped vector keeps order",
			body: "$files\n[1] \"b.Rmd\" \"a.Rmd\"\n[3] \"c.Rmd\"\n\n$count\n[1] 3\n",
			want: []string{"b.Rmd", "a.Rmd", "c.Rmd"},
		},
		{
			name: "text before marker ignored",
			body: "$stale\n[1] \"old.Rmd\"\n$files\n[1] \"new.Rmd\"\n",
			want: []string{"new.Rmd"},
		},
		{
			name: "other extensions ignored",
			body: "$files\n[1] \"ex1.Rmd\" \"data.csv\" \"ex2.Rmd\"\n",
			want: []string{"ex1.Rmd", "ex2.Rmd"},
		},
		{
			name: "ambiguous names dropped",
			body: "$files\n[1] \"ok.Rmd\" \"bad.Rmd.Rmd\"\n",
			want: []string{"ok.Rmd"},
		},
		{
			name: "spaces in names",
			body: "$files\n[1] \"Esercizio 1.Rmd\"\n",
			want: []string{"Esercizio 1.Rmd"},
		},
		{
			name: "empty listing",
			body: "$files\ncharacter(0)\n",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := TextParser{}.Filenames([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatal("Filenames() returned nil, want non-nil slice")
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Filenames() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextParser_Filenames_NoMarker(t *testing.T) {
	t.Parallel()

	_, err := TextParser{}.Filenames([]byte("Error: session expired\n"))
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("error = %v, want ErrProtocol", err)
	}
}

// ---------------------------------------------------------------------------
// TestTextParser_RenderedPath - Render responses
// ---------------------------------------------------------------------------

func TestTextParser_RenderedPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"html line", "/ocpu/tmp/x0b2/R/.val\n/ocpu/tmp/x0b2/files/ex1.html\n", "/ocpu/tmp/x0b2/files/ex1.html", false},
		{"first html line wins", "/x/a.html\n/x/b.html\n", "/x/a.html", false},
		{"crlf", "/x/.val\r\n/x/files/ex1.html\r\n", "/x/files/ex1.html", false},
		{"after very long line", strings.Repeat("x", 5<<20) + "\n/ocpu/tmp/x1/files/ex1.html\n", "/ocpu/tmp/x1/files/ex1.html", false},
		{"no html", "/ocpu/tmp/x0b2/R/.val\n/ocpu/tmp/x0b2/stdout\n", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := TextParser{}.RenderedPath([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrProtocol) {
					t.Errorf("error = %v, want ErrProtocol", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderedPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
