package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-exfetch/internal/fileutil"
	"github.com/alnah/go-exfetch/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxUsernameLength  = 100
	MaxMatricolaLength = 20
	MaxURLLength       = 2048
	MaxPathLength      = 4096
	MaxBucketLength    = 63 // S3 bucket name limit
	MaxKeyLength       = 256
	MaxJobs            = 64
)

// Engine names accepted by convert.engine.
const (
	EngineWkhtmltopdf = "wkhtmltopdf"
	EngineChrome      = "chrome"
)

// Defaults applied by DefaultConfig.
const (
	DefaultHTMLDir   = "./html/"
	DefaultPDFDir    = "./pdf/"
	DefaultConverter = "wkhtmltopdf"
	DefaultJobs      = 4
	DefaultBaseURL   = "http://datascience.maths.unitn.it"

	// DefaultConvertTimeout bounds one conversion; the process group is
	// killed when it elapses.
	DefaultConvertTimeout = "2m"
)

// appDir is the directory name under the user config directory.
const appDir = "exfetch"

// Config holds all configuration for a run.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Server      ServerConfig      `yaml:"server"`
	Output      OutputConfig      `yaml:"output"`
	Convert     ConvertConfig     `yaml:"convert"`
	Archive     ArchiveConfig     `yaml:"archive"`
}

// CredentialsConfig identifies the student.
type CredentialsConfig struct {
	Username  string `yaml:"username"`  // nome.cognome
	Matricola string `yaml:"matricola"` // student number
}

// ServerConfig defines the platform connection.
type ServerConfig struct {
	BaseURL string `yaml:"baseURL"`
	Timeout string `yaml:"timeout"` // Go duration, per request (empty = client default)
}

// OutputConfig defines where files are written.
type OutputConfig struct {
	HTMLDir string `yaml:"htmlDir"`
	PDFDir  string `yaml:"pdfDir"`
	NoIndex bool   `yaml:"noIndex"` // skip index.html generation
}

// ConvertConfig defines PDF conversion.
type ConvertConfig struct {
	Disabled  bool   `yaml:"disabled"`
	Engine    string `yaml:"engine"`    // "wkhtmltopdf" (default) or "chrome"
	Converter string `yaml:"converter"` // executable name or path
	Jobs      int    `yaml:"jobs"`      // 0 = auto
	Timeout   string `yaml:"timeout"`   // Go duration, per conversion
}

// ArchiveConfig defines the optional object store mirror.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"useSSL"`
}

// Validate checks field lengths and enumerated values.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"credentials.username", c.Credentials.Username, MaxUsernameLength},
		{"credentials.matricola", c.Credentials.Matricola, MaxMatricolaLength},
		{"server.baseURL", c.Server.BaseURL, MaxURLLength},
		{"output.htmlDir", c.Output.HTMLDir, MaxPathLength},
		{"output.pdfDir", c.Output.PDFDir, MaxPathLength},
		{"convert.converter", c.Convert.Converter, MaxPathLength},
		{"archive.endpoint", c.Archive.Endpoint, MaxURLLength},
		{"archive.accessKey", c.Archive.AccessKey, MaxKeyLength},
		{"archive.secretKey", c.Archive.SecretKey, MaxKeyLength},
		{"archive.bucket", c.Archive.Bucket, MaxBucketLength},
		{"archive.prefix", c.Archive.Prefix, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if u := c.Server.BaseURL; u != "" && !isHTTPURL(u) {
		return fmt.Errorf("%w: server.baseURL: %q must start with http:// or https://", ErrInvalidValue, u)
	}

	switch strings.ToLower(c.Convert.Engine) {
	case "", EngineWkhtmltopdf, EngineChrome:
	default:
		return fmt.Errorf("%w: convert.engine: %q (must be %s or %s)", ErrInvalidValue, c.Convert.Engine, EngineWkhtmltopdf, EngineChrome)
	}

	if c.Convert.Jobs < 0 || c.Convert.Jobs > MaxJobs {
		return fmt.Errorf("%w: convert.jobs: must be between 0 and %d, got %d", ErrInvalidValue, MaxJobs, c.Convert.Jobs)
	}

	if err := validateDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	if err := validateDuration("convert.timeout", c.Convert.Timeout); err != nil {
		return err
	}

	if (c.Archive.Endpoint == "") != (c.Archive.Bucket == "") {
		return fmt.Errorf("%w: archive: endpoint and bucket must be set together", ErrInvalidValue)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateDuration(fieldName, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, fieldName, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidValue, fieldName, value)
	}
	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{BaseURL: DefaultBaseURL},
		Output: OutputConfig{
			HTMLDir: DefaultHTMLDir,
			PDFDir:  DefaultPDFDir,
		},
		Convert: ConvertConfig{
			Engine:    EngineWkhtmltopdf,
			Converter: DefaultConverter,
			Jobs:      DefaultJobs,
			Timeout:   DefaultConvertTimeout,
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
// Fields absent from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.DecodeFile(configPath, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Archive.SecretKey != "" {
		out.Archive.SecretKey = redactedValue
	}
	if out.Credentials.Matricola != "" {
		out.Credentials.Matricola = redactedValue
	}
	return &out
}

const redactedValue = "********"

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yamlutil.Encode(c)
}

// SearchPaths returns the locations tried for a config name, in order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, appDir, name+ext))
		}
	}
	return paths
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/exfetch/
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
