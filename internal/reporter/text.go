package reporter

import (
	"fmt"
	"io"
	"time"

	"github.com/schemalint/schemalint/internal/diagnostics"
)

// Text prints one plain line per error, suitable for CI logs and
// pipelines. This is the default reporter for `schemalint ci`.
type Text struct {
	verboseStreamer
	err io.Writer
}

// Report prints the error lines and the summary.
func (t *Text) Report(result *diagnostics.Result, elapsed time.Duration) {
	for _, d := range result.Errors {
		line, col := diagnostics.OffsetToLineCol(d.Source, d.Span.Start)
		if d.Kind == diagnostics.KindValidation && d.InstancePath != "" {
			fmt.Fprintf(t.err, "error: %s:%d:%d: %s (at %s)\n", d.Path, line, col, d.Message, d.InstancePath)
		} else {
			fmt.Fprintf(t.err, "error: %s:%d:%d: %s\n", d.Path, line, col, d.Message)
		}
	}
	printSummary(t.err, result.FilesChecked(), len(result.Errors), elapsed)
}
