package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	exfetch "github.com/alnah/go-exfetch"
	"github.com/alnah/go-exfetch/internal/config"
	"github.com/alnah/go-exfetch/internal/hints"
)

// versionProbeTimeout bounds each "--version" call.
const versionProbeTimeout = 10 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status    string        `json:"status"` // "ready", "warnings", "errors"
	Converter converterInfo `json:"converter"`
	Helper    helperInfo    `json:"headless_helper"`
	Chrome    chromeInfo    `json:"chrome"`
	Env       envInfo       `json:"environment"`
	System    systemInfo    `json:"system"`
	Config    *configInfo   `json:"config,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// converterInfo holds wkhtmltopdf detection results.
type converterInfo struct {
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// helperInfo holds xvfb-run detection and the resulting strategy.
type helperInfo struct {
	Found    bool   `json:"found"`
	Path     string `json:"path,omitempty"`
	Strategy string `json:"strategy"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// configInfo shows the effective config file, secrets masked.
type configInfo struct {
	Source string `json:"source"`
	YAML   string `json:"yaml"`
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	json   bool
	wk     string
	config string
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	f := &doctorFlags{}
	fs.BoolVar(&f.json, "json", false, "print results as JSON")
	fs.StringVar(&f.wk, "wk", "", "wkhtmltopdf name or path")
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.Usage = func() { printDoctorUsage(env.Stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsage
	}

	result := runDoctor(f, env)

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitFailure
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(f *doctorFlags, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         env.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  env.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: env.Getenv("ROD_BROWSER_BIN"),
		},
	}

	converter := config.DefaultConverter
	checkConfig(result, f.config, &converter)
	if f.wk != "" {
		converter = f.wk
	}

	checkConverter(result, env, converter)
	checkHelper(result, env)
	checkChrome(result, env)
	checkEnvironment(result, env)
	checkSystem(result)

	if !result.Converter.Found && !result.Chrome.Found {
		result.Errors = append(result.Errors,
			"No PDF engine available. Install wkhtmltopdf or Chrome, or run with --nopdf")
	}

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkConfig loads the named config and records its redacted form.
// A converter set in the config replaces the default name.
func checkConfig(result *doctorResult, name string, converter *string) {
	if name == "" {
		return
	}
	cfg, err := config.LoadConfig(name)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
		return
	}
	if cfg.Convert.Converter != "" {
		*converter = cfg.Convert.Converter
	}
	data, err := cfg.Redacted().Marshal()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Config: %v", err))
		return
	}
	result.Config = &configInfo{Source: name, YAML: string(data)}
}

// checkConverter locates wkhtmltopdf and reads its version.
func checkConverter(result *doctorResult, env *Environment, name string) {
	result.Converter.Name = name
	path, err := exfetch.ResolveConverter(name, env.Lookup)
	if err != nil {
		return
	}
	result.Converter.Found = true
	result.Converter.Path = path

	if v, err := probeVersion(env, path); err == nil {
		result.Converter.Version = v
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get %s version: %v", name, err))
	}
}

// checkHelper reports which conversion strategy the run would use.
func checkHelper(result *doctorResult, env *Environment) {
	strategy, helper := exfetch.SelectStrategy(env.Lookup, env.GOOS)
	result.Helper.Strategy = strategy.String()
	if strategy == exfetch.StrategyParallel {
		result.Helper.Found = true
		result.Helper.Path = helper
		return
	}
	if result.Converter.Found && env.GOOS == "linux" {
		result.Warnings = append(result.Warnings,
			exfetch.HeadlessHelper+" not found: PDFs will be converted one at a time")
	}
}

// checkChrome detects Chrome/Chromium for the chrome engine.
func checkChrome(result *doctorResult, env *Environment) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = env.LookChrome()
		if !found {
			if result.Converter.Found {
				return // optional when wkhtmltopdf is present
			}
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN to use --engine chrome")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	if v, err := probeVersion(env, chromePath); err == nil {
		result.Chrome.Version = v
	}

	// Sandbox status: disabled if ROD_NO_SANDBOX=1
	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// probeVersion runs "<path> --version" and returns its first output line.
func probeVersion(env *Environment, path string) (string, error) {
	r := env.Runner
	if r == nil {
		r = &exfetch.ExecRunner{Timeout: versionProbeTimeout}
	}
	stdout, _, err := r.Run(context.Background(), path, "--version")
	if err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(stdout), "\n")
	return strings.TrimSpace(first), nil
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env.Getenv)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if env.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if result.Chrome.Found && (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1 for --engine chrome")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	if getenv("EXFETCH_CONTAINER") == "1" {
		return true, "EXFETCH_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory used for partial downloads is writable.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	f, err := os.CreateTemp(tmpDir, "exfetch-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	_ = f.Close()
	_ = os.Remove(filepath.Clean(f.Name()))
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "exfetch doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Converter")
	if r.Converter.Found {
		fmt.Fprintf(w, "  [OK] %s at %s\n", r.Converter.Name, r.Converter.Path)
		if r.Converter.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Converter.Version)
		}
	} else {
		fmt.Fprintf(w, "  [--] %s not found\n", r.Converter.Name)
	}
	if r.Helper.Found {
		fmt.Fprintf(w, "  [OK] %s at %s (parallel)\n", exfetch.HeadlessHelper, r.Helper.Path)
	} else {
		fmt.Fprintf(w, "  [--] %s not found (serial)\n", exfetch.HeadlessHelper)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [--] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if r.Config != nil {
		fmt.Fprintf(w, "Config (%s)\n", r.Config.Source)
		for _, line := range strings.Split(strings.TrimRight(r.Config.YAML, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
