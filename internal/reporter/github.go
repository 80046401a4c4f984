package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schemalint/schemalint/internal/diagnostics"
)

// Github emits `::error` workflow commands so GitHub Actions annotates
// the offending files inline. Commands go to stdout (where the runner
// reads them); the summary goes to stderr.
type Github struct {
	verboseStreamer
	out io.Writer
	err io.Writer
}

// workflowEscaper encodes the characters GitHub workflow commands
// reserve: % -> %25, \n -> %0A, \r -> %0D.
var workflowEscaper = strings.NewReplacer("%", "%25", "\n", "%0A", "\r", "%0D")

// Report emits one workflow command per error, then the summary.
func (g *Github) Report(result *diagnostics.Result, elapsed time.Duration) {
	for _, d := range result.Errors {
		g.emit(d)
	}
	printSummary(g.err, result.FilesChecked(), len(result.Errors), elapsed)
}

func (g *Github) emit(d *diagnostics.Diagnostic) {
	path := strings.ReplaceAll(d.Path, `\`, "/")
	line, col := diagnostics.OffsetToLineCol(d.Source, d.Span.Start)
	message := workflowEscaper.Replace(d.Message)

	fmt.Fprintf(g.out, "::error file=%s,line=%d,col=%d,title=%s::%s\n", path, line, col, annotationTitle(d), message)
}

// annotationTitle picks the annotation title: the instance path when one
// exists, else a label for the diagnostic kind.
func annotationTitle(d *diagnostics.Diagnostic) string {
	if d.InstancePath != "" {
		return d.InstancePath
	}
	switch d.Kind {
	case diagnostics.KindParse:
		return "parse error"
	case diagnostics.KindValidation:
		return "validation error"
	case diagnostics.KindConfig:
		return "config error"
	case diagnostics.KindIO:
		return "io error"
	case diagnostics.KindSchemaFetch:
		return "schema fetch error"
	case diagnostics.KindSchemaCompile:
		return "schema compile error"
	default:
		return "error"
	}
}
