package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: exfetch [run] [flags]")
	fmt.Fprintln(w, "       exfetch <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Download your DoExercises solutions as HTML and convert them to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run        Download and convert solutions (default)")
	fmt.Fprintln(w, "  doctor     Check converters and environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'exfetch help <command>' for details on a specific command.")
}

// printRunUsage prints usage for the run command.
func printRunUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: exfetch [run] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Log in, download every solution not yet on disk, then convert to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Credentials:")
	fmt.Fprintln(w, "  -u, --username <s>        Username (nome.cognome), or EXFETCH_USER")
	fmt.Fprintln(w, "  -m, --matricola <s>       Student number, or EXFETCH_ID")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --htmlout <dir>       HTML directory (default ./html/)")
	fmt.Fprintln(w, "  -p, --pdfout <dir>        PDF directory (default ./pdf/)")
	fmt.Fprintln(w, "  -f, --force               Download and convert again even if files exist")
	fmt.Fprintln(w, "      --no-index            Do not write index.html")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Conversion:")
	fmt.Fprintln(w, "      --nopdf               Skip PDF conversion")
	fmt.Fprintln(w, "      --wk <path>           wkhtmltopdf name or path (default wkhtmltopdf)")
	fmt.Fprintln(w, "      --engine <s>          PDF engine: wkhtmltopdf, chrome")
	fmt.Fprintln(w, "      --timeout <d>         Per-file conversion timeout (e.g. 90s, 2m)")
	fmt.Fprintln(w, "  -j, --jobs <n>            Parallel workers (default 4, 0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Platform:")
	fmt.Fprintln(w, "      --base-url <url>      Platform address")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path, or EXFETCH_CONFIG")
	fmt.Fprintln(w, "  -v, --verbose             Print server responses and timing")
	fmt.Fprintln(w, "      --no-color            Disable colored output (also NO_COLOR)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit status is 0 on success, 1 on failure or interrupt, 2 on usage errors.")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: exfetch doctor [--json] [--wk <path>] [-c <config>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that a PDF engine is installed and the environment is usable.")
	fmt.Fprintln(w, "Exits 1 when no PDF engine is available.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "run":
		printRunUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: exfetch version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: exfetch help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
