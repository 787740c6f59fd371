package main

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	exfetch "github.com/alnah/go-exfetch"
	"github.com/alnah/go-exfetch/internal/config"
	"github.com/alnah/go-exfetch/internal/console"
	"github.com/alnah/go-exfetch/internal/hints"
)

// run dispatches a command line and returns the process exit code.
// Without a command name the run command is implied.
func run(ctx context.Context, args []string, env *Environment) int {
	cmd, rest := splitCommand(args)

	switch cmd {
	case "version":
		fmt.Fprintf(env.Stdout, "exfetch %s\n", Version)
		return ExitSuccess
	case "help":
		return runHelp(rest, env)
	case "doctor":
		return runDoctorCmd(rest, env)
	default:
		return runFetchCmd(ctx, rest, env)
	}
}

// splitCommand separates a leading command name from its arguments.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "run", nil
	}
	switch args[0] {
	case "run", "doctor", "version", "help":
		return args[0], args[1:]
	case "--version":
		return "version", args[1:]
	}
	return "run", args
}

// runFetchCmd runs the download and conversion pipeline.
func runFetchCmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseRunFlags(args, env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		// pflag has already printed its own parse errors with the usage.
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(env.Stderr, "exfetch: %v\n", err)
			fmt.Fprintln(env.Stderr, "Run 'exfetch help' for usage.")
		}
		return ExitUsage
	}

	out := console.New(env.Stdout, flags.verbose, console.ColorEnabled(env.Stdout, flags.noColor))
	warnUnknownEnvVars(env.Stderr, env.Environ())

	opts, err := resolveOptions(flags, env)
	if err != nil {
		out.Error("%v%s", err, hintFor(err, flags.config, ""))
		return exitCodeFor(err)
	}
	for _, w := range opts.warnings {
		out.Warn("%s", w)
	}

	if err := runPipeline(ctx, opts, env, out); err != nil {
		if errors.Is(err, exfetch.ErrMissingCredentials) {
			out.Error("This tool needs valid DoExercises credentials. Use 'exfetch help' to get usage information%s", hints.ForCredentials())
			return exitCodeFor(err)
		}
		out.Error("%v%s", err, hintFor(err, opts.configName, opts.converter))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// hintFor returns the actionable hint matching err, or "".
func hintFor(err error, configName, converter string) string {
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(config.SearchPaths(configName))
	case errors.Is(err, exfetch.ErrTransport):
		return hints.ForTransport()
	case errors.Is(err, exfetch.ErrProtocol):
		return hints.ForProtocol()
	case errors.Is(err, exfetch.ErrExternalTool):
		return hints.ForConverterNotFound(converter)
	case errors.Is(err, exfetch.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, ErrOutputDir):
		return hints.ForOutputDirectory()
	}
	return ""
}
