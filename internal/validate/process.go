package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/schemalint/schemalint/internal/diagnostics"
	"github.com/schemalint/schemalint/internal/parser"
)

// maxOpenFiles bounds how many inputs are read and parsed at once, so
// large trees do not exhaust file descriptors.
const maxOpenFiles = 128

// parsedFile is one document, or one JSONL line, matched to a schema
// and awaiting validation.
type parsedFile struct {
	// path is the display path; JSONL lines append ":N" for the
	// 1-based line number.
	path    string
	content string
	value   any
	// originalURI is the discovered reference before rewrite rules,
	// kept because overrides match against both forms.
	originalURI string
}

// groupedFile carries a parsed file together with its final schema
// reference.
type groupedFile struct {
	uri  string
	file *parsedFile
}

// fileOutcome is everything processing one input produced. A skipped
// file yields the zero value.
type fileOutcome struct {
	grouped []groupedFile
	diags   []*diagnostics.Diagnostic
}

// parseAndGroup reads, parses, and resolves every file concurrently.
// Outcomes keep the input ordering so downstream grouping is
// deterministic.
func parseAndGroup(ctx context.Context, files []string, resolver *Resolver, configDir string) []fileOutcome {
	outcomes := make([]fileOutcome, len(files))
	if len(files) == 0 {
		return outcomes
	}

	concurrency := maxOpenFiles
	if len(files) < concurrency {
		concurrency = len(files)
	}
	semaphore := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i := range files {
		select {
		case <-ctx.Done():
			wg.Wait()
			return outcomes
		case semaphore <- struct{}{}:
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			outcomes[i] = processFile(files[i], resolver, configDir)
		}(i)
	}
	wg.Wait()
	return outcomes
}

// processFile turns one input path into grouped work or diagnostics.
// Files with no discoverable schema are skipped, as are unrecognized
// extensions unless a config mapping or catalog entry claims them.
func processFile(path string, resolver *Resolver, configDir string) fileOutcome {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileOutcome{diags: []*diagnostics.Diagnostic{diagnostics.NewIOError(path, err)}}
	}

	format := parser.DetectFormat(path)
	filename := filepath.Base(path)

	if format == parser.FormatJSONL {
		return processJSONLFile(path, filename, content, resolver, configDir)
	}

	var (
		value any
		p     parser.Parser
	)
	if format != parser.FormatUnknown {
		p = parser.ParserFor(format)
		value, err = p.Parse(content, path)
		if err != nil {
			return fileOutcome{diags: []*diagnostics.Diagnostic{parseDiagnostic(path, string(content), err)}}
		}
	} else {
		if !resolver.HasMapping(path, filename) {
			return fileOutcome{}
		}
		parsed, detected, ok := parser.ParseAny(content, path)
		if !ok {
			return fileOutcome{}
		}
		value, p = parsed, parser.ParserFor(detected)
	}

	// Markdown without frontmatter and bare null documents have
	// nothing to validate.
	if value == nil {
		return fileOutcome{}
	}

	res, ok := resolver.Resolve(path, filename, content, value, p)
	if !ok {
		return fileOutcome{}
	}
	uri := resolver.ResolveSchemaPath(res, path, configDir)
	return fileOutcome{grouped: []groupedFile{{
		uri: uri,
		file: &parsedFile{
			path:        path,
			content:     string(content),
			value:       value,
			originalURI: res.URI,
		},
	}}}
}

// processJSONLFile treats each line of a JSONL file as its own
// document with its own schema resolution. Lines must agree on any
// inline $schema; disagreements become diagnostics on the offending
// lines.
func processJSONLFile(path, filename string, content []byte, resolver *Resolver, configDir string) fileOutcome {
	lines, err := parser.ParseJSONL(content)
	if err != nil {
		return fileOutcome{diags: []*diagnostics.Diagnostic{parseDiagnostic(path, string(content), err)}}
	}
	if len(lines) == 0 {
		d := diagnostics.NewParseError(path, "empty JSONL file", diagnostics.Span{})
		d.Source = string(content)
		return fileOutcome{diags: []*diagnostics.Diagnostic{d}}
	}

	var out fileOutcome
	for _, m := range parser.CheckSchemaConsistency(lines) {
		out.diags = append(out.diags, diagnostics.NewParseError(
			fmt.Sprintf("%s:%d", path, m.Number),
			fmt.Sprintf("expected consistent $schema but found %s", m.SchemaURI),
			diagnostics.Span{},
		))
	}

	for i := range lines {
		line := &lines[i]
		res, ok := resolver.Resolve(path, filename, nil, line.Value, nil)
		if !ok {
			continue
		}
		uri := resolver.ResolveSchemaPath(res, path, configDir)
		out.grouped = append(out.grouped, groupedFile{
			uri: uri,
			file: &parsedFile{
				path:        fmt.Sprintf("%s:%d", path, line.Number),
				content:     line.Raw,
				value:       line.Value,
				originalURI: res.URI,
			},
		})
	}
	return out
}

// parseDiagnostic converts a parser failure into a positioned
// diagnostic carrying the source text.
func parseDiagnostic(path, content string, err error) *diagnostics.Diagnostic {
	var perr *parser.Error
	d := diagnostics.NewParseError(path, err.Error(), diagnostics.Span{})
	if errors.As(err, &perr) {
		d = diagnostics.NewParseError(path, perr.Message, diagnostics.Span{Start: perr.Offset})
	}
	d.Source = content
	return d
}
