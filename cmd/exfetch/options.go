package main

import (
	"fmt"
	"strings"
	"time"

	exfetch "github.com/alnah/go-exfetch"
	"github.com/alnah/go-exfetch/internal/archive"
	"github.com/alnah/go-exfetch/internal/config"
)

// options is the resolved configuration of one run.
type options struct {
	creds          exfetch.Credentials
	baseURL        string
	httpTimeout    time.Duration
	htmlDir        string
	pdfDir         string
	force          bool
	noPDF          bool
	noIndex        bool
	engine         string
	converter      string
	jobs           int
	convertTimeout time.Duration
	verbose        bool
	noColor        bool
	configName     string
	archive        archive.Config
	warnings       []string
}

// resolveOptions layers defaults, config file, environment and flags.
func resolveOptions(f *runFlags, env *Environment) (*options, error) {
	envCfg := loadEnvConfig(env.Getenv)

	name := f.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	mergeFlags(f, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{
		creds: exfetch.Credentials{
			User: cfg.Credentials.Username,
			ID:   cfg.Credentials.Matricola,
		},
		baseURL:    cfg.Server.BaseURL,
		htmlDir:    cfg.Output.HTMLDir,
		pdfDir:     cfg.Output.PDFDir,
		force:      f.force,
		noPDF:      cfg.Convert.Disabled,
		noIndex:    cfg.Output.NoIndex,
		engine:     strings.ToLower(cfg.Convert.Engine),
		converter:  cfg.Convert.Converter,
		jobs:       cfg.Convert.Jobs,
		verbose:    f.verbose,
		noColor:    f.noColor,
		configName: name,
		archive: archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			Prefix:    cfg.Archive.Prefix,
			UseSSL:    cfg.Archive.UseSSL,
		},
	}

	// Durations were checked by Validate.
	if cfg.Server.Timeout != "" {
		o.httpTimeout, _ = time.ParseDuration(cfg.Server.Timeout)
	}
	if cfg.Convert.Timeout != "" {
		o.convertTimeout, _ = time.ParseDuration(cfg.Convert.Timeout)
	}

	if envCfg.InvalidJobsText != "" {
		o.warnings = append(o.warnings, fmt.Sprintf("ignoring EXFETCH_JOBS=%q: not a positive integer", envCfg.InvalidJobsText))
	}

	return o, nil
}

// refreshCommand is the command line shown in the run index.
// The matricola is left to EXFETCH_ID so it is not written to disk.
func (o *options) refreshCommand() string {
	var b strings.Builder
	b.WriteString("EXFETCH_ID=<matricola> exfetch")
	fmt.Fprintf(&b, " -u %s", shellQuote(o.creds.User))
	fmt.Fprintf(&b, " -o %s", shellQuote(o.htmlDir))
	if o.noPDF {
		b.WriteString(" --nopdf")
	} else {
		fmt.Fprintf(&b, " -p %s", shellQuote(o.pdfDir))
		if o.engine == config.EngineChrome {
			b.WriteString(" --engine chrome")
		}
	}
	if o.configName != "" {
		fmt.Fprintf(&b, " -c %s", shellQuote(o.configName))
	}
	return b.String()
}

// shellQuote single-quotes s when it holds characters a POSIX shell would
// interpret.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
