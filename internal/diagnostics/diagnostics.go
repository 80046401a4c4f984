// Package diagnostics defines the errors a lint run reports to users and
// the result types reporters consume.
package diagnostics

import (
	"fmt"
	"sort"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// KindParse is a syntax error in the document being checked.
	KindParse Kind = "parse"
	// KindValidation is a schema violation in a parsed document.
	KindValidation Kind = "validation"
	// KindConfig is a problem in schemalint.toml itself.
	KindConfig Kind = "config"
	// KindIO is a file that could not be read.
	KindIO Kind = "io"
	// KindSchemaFetch is a schema that could not be retrieved; it scopes
	// to the files depending on that schema, not the run.
	KindSchemaFetch Kind = "schema-fetch"
	// KindSchemaCompile is a resolved schema that is itself invalid.
	KindSchemaCompile Kind = "schema-compile"
)

// Span is a byte range in a source file. Len is 0 when only a position
// is known.
type Span struct {
	Start int
	Len   int
}

// Diagnostic is one user-facing problem found during a run. It
// implements error so failures can flow through error returns before
// being collected.
type Diagnostic struct {
	Kind    Kind
	Path    string
	Message string
	Span    Span
	// Source is the document text Span indexes into, carried so
	// reporters can render line:col positions and context without
	// re-reading files. For JSONL inputs this is the single line the
	// diagnostic addresses.
	Source string
	// InstancePath is the JSON Pointer to the failing value. Validation
	// diagnostics only.
	InstancePath string
	// SchemaURL is the schema the file was validated against. Validation
	// diagnostics only.
	SchemaURL string
	// SchemaPath is the schema location that raised the error,
	// e.g. "/properties/jobs/oneOf". Validation diagnostics only.
	SchemaPath string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

// Offset returns the byte offset used for sorting diagnostics within a
// file.
func (d *Diagnostic) Offset() int {
	return d.Span.Start
}

// Label returns the span annotation shown by the pretty reporter.
func (d *Diagnostic) Label() string {
	if d.InstancePath == "" {
		return DefaultLabel
	}
	return FormatLabel(d.InstancePath, d.SchemaPath)
}

// NewParseError builds a syntax-error diagnostic.
func NewParseError(path, message string, span Span) *Diagnostic {
	return &Diagnostic{Kind: KindParse, Path: path, Message: message, Span: span}
}

// NewValidationError builds a schema-violation diagnostic.
func NewValidationError(path, instancePath, message string, span Span, schemaURL, schemaPath string) *Diagnostic {
	return &Diagnostic{
		Kind:         KindValidation,
		Path:         path,
		Message:      message,
		Span:         span,
		InstancePath: instancePath,
		SchemaURL:    schemaURL,
		SchemaPath:   schemaPath,
	}
}

// NewConfigError builds a diagnostic for an invalid schemalint.toml.
func NewConfigError(path, instancePath, message string, span Span) *Diagnostic {
	return &Diagnostic{Kind: KindConfig, Path: path, Message: message, Span: span, InstancePath: instancePath}
}

// NewIOError builds a diagnostic for an unreadable file.
func NewIOError(path string, err error) *Diagnostic {
	return &Diagnostic{Kind: KindIO, Path: path, Message: err.Error()}
}

// NewSchemaFetchError builds a diagnostic for a schema that could not be
// retrieved.
func NewSchemaFetchError(path string, err error) *Diagnostic {
	return &Diagnostic{Kind: KindSchemaFetch, Path: path, Message: err.Error()}
}

// NewSchemaCompileError builds a diagnostic for a schema that failed to
// compile.
func NewSchemaCompileError(path string, err error) *Diagnostic {
	return &Diagnostic{Kind: KindSchemaCompile, Path: path, Message: err.Error()}
}

// Sort orders diagnostics by path, then byte offset, so output is
// deterministic across runs.
func Sort(diags []*Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Path != diags[j].Path {
			return diags[i].Path < diags[j].Path
		}
		if diags[i].Span.Start != diags[j].Span.Start {
			return diags[i].Span.Start < diags[j].Span.Start
		}
		return diags[i].InstancePath < diags[j].InstancePath
	})
}
