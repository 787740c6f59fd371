// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"runtime"
	"strings"

	"github.com/alnah/go-exfetch/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForCredentials returns hints for missing credentials.
func ForCredentials() string {
	return format("pass -u nome.cognome -m <matricola>, set EXFETCH_USER/EXFETCH_ID, or add them to a --config file")
}

// ForTransport returns hints for platform connection errors.
func ForTransport() string {
	return format("check your network connection; the platform may only be reachable from the university network or VPN")
}

// ForProtocol returns hints for unexpected platform responses.
func ForProtocol() string {
	return format("check username and matricola; rerun with -v to print server responses")
}

// ForConverterNotFound returns hints for a missing wkhtmltopdf.
func ForConverterNotFound(name string) string {
	var hs []string
	switch runtime.GOOS {
	case "darwin":
		hs = append(hs, "install with: brew install --cask wkhtmltopdf")
	case "windows":
		hs = append(hs, "install from https://wkhtmltopdf.org/downloads.html")
	default:
		hs = append(hs, "install the wkhtmltopdf package of your distribution")
	}
	if name != "" && !fileutil.IsFilePath(name) {
		hs = append(hs, "or pass its full path with --wk")
	}
	hs = append(hs, "or use --engine chrome, or --nopdf to skip conversion")
	return formatHints(hs)
}

// ForSerialConversion suggests installing the headless display helper.
// Returns "" where it would not help.
func ForSerialConversion() string {
	if runtime.GOOS != "linux" {
		return ""
	}
	return format("install xvfb (xvfb-run) to convert in parallel")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hs []string

	// Detect CI environment
	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	// Suggest ROD_NO_SANDBOX for container/CI environments
	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hs = append(hs, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	// Suggest ROD_BROWSER_BIN if not set
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hs = append(hs, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hs)
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/exfetch/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), ".config/exfetch") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hs []string) string {
	if len(hs) == 0 {
		return ""
	}
	return format(strings.Join(hs, "; "))
}
