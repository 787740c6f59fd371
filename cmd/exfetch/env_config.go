package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-exfetch/internal/config"
)

// envPrefix starts every recognized environment variable.
const envPrefix = "EXFETCH_"

// envConfig holds configuration from environment variables.
// Lets credentials stay out of shell history and config files.
type envConfig struct {
	ConfigPath      string // EXFETCH_CONFIG: config file name or path
	User            string // EXFETCH_USER: nome.cognome
	ID              string // EXFETCH_ID: matricola
	HTMLDir         string // EXFETCH_HTML_DIR: HTML output directory
	PDFDir          string // EXFETCH_PDF_DIR: PDF output directory
	Jobs            int    // EXFETCH_JOBS: worker count
	ArchiveAccess   string // EXFETCH_ARCHIVE_ACCESS_KEY
	ArchiveSecret   string // EXFETCH_ARCHIVE_SECRET_KEY
	InvalidJobsText string // raw EXFETCH_JOBS when it is not a positive integer
}

// knownEnvVars lists valid EXFETCH_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"EXFETCH_CONFIG":             true,
	"EXFETCH_USER":               true,
	"EXFETCH_ID":                 true,
	"EXFETCH_HTML_DIR":           true,
	"EXFETCH_PDF_DIR":            true,
	"EXFETCH_JOBS":               true,
	"EXFETCH_ARCHIVE_ACCESS_KEY": true,
	"EXFETCH_ARCHIVE_SECRET_KEY": true,
}

// loadEnvConfig reads configuration from environment variables.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath:    getenv("EXFETCH_CONFIG"),
		User:          getenv("EXFETCH_USER"),
		ID:            getenv("EXFETCH_ID"),
		HTMLDir:       getenv("EXFETCH_HTML_DIR"),
		PDFDir:        getenv("EXFETCH_PDF_DIR"),
		ArchiveAccess: getenv("EXFETCH_ARCHIVE_ACCESS_KEY"),
		ArchiveSecret: getenv("EXFETCH_ARCHIVE_SECRET_KEY"),
	}

	if jobs := getenv("EXFETCH_JOBS"); jobs != "" {
		if n, err := strconv.Atoi(jobs); err == nil && n > 0 {
			cfg.Jobs = n
		} else {
			cfg.InvalidJobsText = jobs
		}
	}

	return cfg
}

// warnUnknownEnvVars reports unrecognized EXFETCH_* variables.
// Helps catch typos like EXFETCH_MATRICOLA instead of EXFETCH_ID.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overlays set environment values on cfg.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.User != "" {
		cfg.Credentials.Username = env.User
	}
	if env.ID != "" {
		cfg.Credentials.Matricola = env.ID
	}
	if env.HTMLDir != "" {
		cfg.Output.HTMLDir = env.HTMLDir
	}
	if env.PDFDir != "" {
		cfg.Output.PDFDir = env.PDFDir
	}
	if env.Jobs > 0 {
		cfg.Convert.Jobs = env.Jobs
	}
	if env.ArchiveAccess != "" {
		cfg.Archive.AccessKey = env.ArchiveAccess
	}
	if env.ArchiveSecret != "" {
		cfg.Archive.SecretKey = env.ArchiveSecret
	}
}
