// Package reporter renders check results for humans and CI systems.
//
// Four reporters share the diagnostics.Reporter interface: pretty
// (colored, source context), text (one line per error), github
// (workflow commands) and sarif (code-scanning upload). All of them
// stream verbose per-file progress lines when enabled.
package reporter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/schemalint/schemalint/internal/diagnostics"
)

// Kind selects a reporter implementation.
type Kind string

const (
	KindPretty Kind = "pretty"
	KindText   Kind = "text"
	KindGithub Kind = "github"
	KindSARIF  Kind = "sarif"
)

// ParseKind parses a --reporter flag value.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPretty, KindText, KindGithub, KindSARIF:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown reporter %q, expected: pretty, text, github, sarif", s)
}

func (k Kind) String() string {
	return string(k)
}

// Options configures a reporter.
type Options struct {
	// Verbose streams a line per checked file with cache status tags.
	Verbose bool
	// ToolVersion is embedded in machine-readable output.
	ToolVersion string
	// Out receives machine-readable output (workflow commands, the SARIF
	// log). Defaults to stdout.
	Out io.Writer
	// Err receives human-facing errors, progress and summaries. Defaults
	// to stderr.
	Err io.Writer
}

// New builds the reporter for kind.
func New(kind Kind, opts Options) diagnostics.Reporter {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	stream := verboseStreamer{verbose: opts.Verbose, err: opts.Err}

	switch kind {
	case KindText:
		return &Text{verboseStreamer: stream, err: opts.Err}
	case KindGithub:
		return &Github{verboseStreamer: stream, out: opts.Out, err: opts.Err}
	case KindSARIF:
		return &SARIF{verboseStreamer: stream, out: opts.Out, toolVersion: opts.ToolVersion}
	default:
		return &Pretty{verboseStreamer: stream, err: opts.Err, color: isTerminal(opts.Err)}
	}
}

// verboseStreamer implements the FileChecked half of the Reporter
// interface, shared by every implementation.
type verboseStreamer struct {
	verbose bool
	err     io.Writer
}

// FileChecked prints the verbose progress line for one file.
func (v *verboseStreamer) FileChecked(file *diagnostics.CheckedFile) {
	if v.verbose {
		fmt.Fprintln(v.err, diagnostics.FormatCheckedVerbose(file))
	}
}

// isTerminal reports whether writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == os.Stdout || w == os.Stderr {
		// color.NoColor already folds in NO_COLOR and TTY detection
		return !color.NoColor
	}
	return false
}

// printSummary writes the shared closing line used by the text and
// github reporters.
func printSummary(w io.Writer, files, errorCount int, elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	if errorCount > 0 {
		fmt.Fprintf(w, "Checked %d files in %dms. %d %s found.\n", files, ms, errorCount, plural(errorCount))
	} else {
		fmt.Fprintf(w, "Checked %d files in %dms. No errors.\n", files, ms)
	}
}

func plural(n int) string {
	if n == 1 {
		return "error"
	}
	return "errors"
}
