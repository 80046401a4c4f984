package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/schemalint/schemalint/internal/diagnostics"
)

// maxContextWidth caps how much of a source line the context block
// shows. Minified JSON routinely puts a whole document on one line.
const maxContextWidth = 200

// Pretty renders colored diagnostics with a source-line context block.
// This is the default reporter for interactive runs.
type Pretty struct {
	verboseStreamer
	err   io.Writer
	color bool
}

// Report prints every diagnostic followed by the timing summary.
func (p *Pretty) Report(result *diagnostics.Result, elapsed time.Duration) {
	for _, d := range result.Errors {
		p.printDiagnostic(d)
	}

	n := result.FilesChecked()
	ms := elapsed.Milliseconds()
	if p.color {
		bold := color.New(color.Bold)
		dim := color.New(color.Faint)
		fmt.Fprintf(p.err, "%s %s\n", bold.Sprintf("Checked %d files", n), dim.Sprintf("in %dms.", ms))
	} else {
		fmt.Fprintf(p.err, "Checked %d files in %dms.\n", n, ms)
	}
}

func (p *Pretty) printDiagnostic(d *diagnostics.Diagnostic) {
	line, col := diagnostics.OffsetToLineCol(d.Source, d.Span.Start)
	loc := fmt.Sprintf("%s:%d:%d", d.Path, line, col)

	if p.color {
		bold := color.New(color.Bold)
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintf(p.err, "%s: %s: %s\n", bold.Sprint(loc), red.Sprint("error"), d.Message)
	} else {
		fmt.Fprintf(p.err, "%s: error: %s\n", loc, d.Message)
	}

	src := sourceLine(d.Source, line)
	if src == "" {
		return
	}
	src, col = contextWindow(src, col)
	marker := caretLine(src, col, d.Span.Len) + " " + d.Label()
	if p.color {
		marker = color.New(color.FgRed).Sprint(marker)
	}
	fmt.Fprintf(p.err, "    %s\n    %s\n", src, marker)
}

// sourceLine returns the 1-based line of content, or "" when out of
// range.
func sourceLine(content string, line int) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

// contextWindow trims a long line to a window around col, returning the
// trimmed text and the adjusted column.
func contextWindow(lineText string, col int) (string, int) {
	runes := []rune(lineText)
	if len(runes) <= maxContextWidth {
		return lineText, col
	}

	start := col - 1 - maxContextWidth/4
	if start < 0 {
		start = 0
	}
	end := start + maxContextWidth
	if end > len(runes) {
		end = len(runes)
		start = end - maxContextWidth
	}

	out := string(runes[start:end])
	newCol := col - start
	if start > 0 {
		out = "…" + out
		newCol++
	}
	if end < len(runes) {
		out += "…"
	}
	return out, newCol
}

// caretLine builds the ^^^ marker under the span, clamped to the
// visible line.
func caretLine(lineText string, col, spanLen int) string {
	if col < 1 {
		col = 1
	}
	n := spanLen
	if n < 1 {
		n = 1
	}
	rest := utf8.RuneCountInString(lineText) - (col - 1)
	if rest < 1 {
		rest = 1
	}
	if n > rest {
		n = rest
	}
	return strings.Repeat(" ", col-1) + strings.Repeat("^", n)
}
