package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/schemalint/schemalint/internal/config"
	"github.com/schemalint/schemalint/internal/diagnostics"
	"github.com/schemalint/schemalint/internal/logger"
	"github.com/schemalint/schemalint/internal/schemacache"
	"github.com/schemalint/schemalint/internal/validationcache"
)

var errorPrinter = message.NewPrinter(language.English)

// runState carries everything the group stage shares across schema
// groups within one run.
type runState struct {
	cfg         *config.Config
	sc          *schemacache.Cache
	vcache      *validationcache.Cache
	log         logger.Logger
	result      *diagnostics.Result
	fileChecked func(*diagnostics.CheckedFile)

	prefetched map[string]fetchResult
	// localSchemas caches schema files read from disk so a schema
	// shared by many groups parses once per run.
	localSchemas map[string]any
}

// checkGroup validates every file that resolved to one schema
// reference: consult the verdict cache per file, compile the schema
// once for the misses, validate them, and store fresh verdicts.
func (s *runState) checkGroup(ctx context.Context, uri string, group []*parsedFile) {
	// The group shares one compiled validator, so format assertions
	// stay on only when every file in it allows them.
	validateFormats := true
	for _, pf := range group {
		if !s.cfg.ShouldValidateFormats(pf.path, []string{pf.originalURI, uri}) {
			validateFormats = false
			break
		}
	}

	value, status, ok := s.fetchGroupSchema(ctx, uri, group)
	if !ok {
		return
	}
	schemaHash := validationcache.SchemaHash(value)

	var misses []*parsedFile
	for _, pf := range group {
		key := validationcache.Key([]byte(pf.content), schemaHash, validateFormats)
		verdict, vstatus := s.vcache.Lookup(key)
		if verdict == nil {
			misses = append(misses, pf)
			continue
		}
		s.pushVerdictErrors(pf, uri, verdict.Errors)
		s.checked(pf.path, uri, status, vstatus)
	}
	if len(misses) == 0 {
		return
	}

	schema, err := s.compileSchema(ctx, uri, value, validateFormats)
	if err != nil {
		// A schema that leans on format assertions this group turned
		// off is skipped rather than reported against every file.
		if !validateFormats && strings.Contains(err.Error(), "uri-reference") {
			for _, pf := range misses {
				s.checked(pf.path, uri, status, validationcache.StatusMiss)
			}
			return
		}
		compileErr := fmt.Errorf("failed to compile schema: %w", err)
		for _, pf := range misses {
			s.checked(pf.path, uri, status, "")
			s.result.Errors = append(s.result.Errors, diagnostics.NewSchemaCompileError(pf.path, compileErr))
		}
		return
	}

	for _, pf := range misses {
		verdict := &validationcache.Verdict{Errors: validateValue(schema, pf.value)}
		s.vcache.Store(validationcache.Key([]byte(pf.content), schemaHash, validateFormats), verdict)
		s.pushVerdictErrors(pf, uri, verdict.Errors)
		s.checked(pf.path, uri, status, validationcache.StatusMiss)
	}
}

// fetchGroupSchema produces the decoded schema for a group: remote
// URIs come from the prefetch pass, local paths read from disk with
// per-run caching. On failure every file in the group gets a fetch
// diagnostic and the group is dropped.
func (s *runState) fetchGroupSchema(ctx context.Context, uri string, group []*parsedFile) (any, schemacache.Status, bool) {
	if isRemote(uri) {
		res, ok := s.prefetched[uri]
		if !ok {
			var err error
			res.value, res.status, err = s.sc.Fetch(ctx, uri)
			res.err = err
		}
		if res.err != nil {
			s.reportFetchFailure(uri, group, res.err)
			return nil, "", false
		}
		return res.value, res.status, true
	}

	if value, ok := s.localSchemas[uri]; ok {
		return value, "", true
	}
	data, err := os.ReadFile(uri)
	if err != nil {
		s.reportFetchFailure(uri, group, err)
		return nil, "", false
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		s.reportFetchFailure(uri, group, fmt.Errorf("parse local schema %s: %w", uri, err))
		return nil, "", false
	}
	s.localSchemas[uri] = value
	return value, "", true
}

func (s *runState) reportFetchFailure(uri string, group []*parsedFile, err error) {
	for _, pf := range group {
		s.checked(pf.path, uri, "", "")
		s.result.Errors = append(s.result.Errors, diagnostics.NewSchemaFetchError(pf.path, err))
	}
}

// compileSchema builds a validator for one schema value. The schema's
// own reference becomes its base URI so relative $ref targets resolve;
// local paths get a file:// form for the same reason.
func (s *runState) compileSchema(ctx context.Context, uri string, value any, validateFormats bool) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.UseLoader(s.sc.URLLoader(ctx))
	if validateFormats {
		compiler.AssertFormat()
	}

	base := uri
	if isRemote(uri) {
		if pos := strings.IndexByte(base, '#'); pos >= 0 {
			base = base[:pos]
		}
	} else {
		base = fileURL(uri)
	}
	if err := compiler.AddResource(base, value); err != nil {
		return nil, err
	}
	return compiler.Compile(base)
}

// fileURL converts a local filesystem path to a file:// URL.
func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return "file://" + abs
}

// validateValue runs a compiled validator over one document and
// renders the failures in cacheable form. A nil slice means the
// document passed.
func validateValue(schema *jsonschema.Schema, value any) []validationcache.ValidationError {
	err := schema.Validate(value)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []validationcache.ValidationError{{Message: cleanErrorMessage(err.Error())}}
	}

	var leaves []*jsonschema.ValidationError
	flattenError(verr, &leaves)

	errs := make([]validationcache.ValidationError, 0, len(leaves))
	for _, leaf := range leaves {
		errs = append(errs, validationcache.ValidationError{
			InstancePath: jsonPointer(leaf.InstanceLocation),
			Message:      cleanErrorMessage(leaf.ErrorKind.LocalizedString(errorPrinter)),
			SchemaPath:   schemaPointer(leaf),
		})
	}
	return errs
}

// flattenError walks the cause tree collecting reportable failures.
// anyOf, oneOf, and not failures surface as a single error instead of
// exploding into per-branch noise; everything else descends to the
// leaves.
func flattenError(e *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(e.Causes) == 0 {
		*out = append(*out, e)
		return
	}
	if kp := e.ErrorKind.KeywordPath(); len(kp) > 0 {
		switch kp[len(kp)-1] {
		case "anyOf", "oneOf", "not":
			*out = append(*out, e)
			return
		}
	}
	for _, cause := range e.Causes {
		flattenError(cause, out)
	}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// jsonPointer renders location tokens as a JSON Pointer; the document
// root is the empty pointer.
func jsonPointer(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(tok))
	}
	return b.String()
}

// schemaPointer renders the schema location that raised an error, like
// /properties/name/type.
func schemaPointer(e *jsonschema.ValidationError) string {
	p := ""
	if pos := strings.IndexByte(e.SchemaURL, '#'); pos >= 0 {
		p = e.SchemaURL[pos+1:]
	}
	for _, tok := range e.ErrorKind.KeywordPath() {
		p += "/" + pointerEscaper.Replace(tok)
	}
	return p
}

// cleanErrorMessage strips the redundant value dump some validators
// prepend to anyOf/oneOf failures; the annotated source already shows
// the value.
func cleanErrorMessage(msg string) string {
	const marker = " is not valid under any of the schemas listed in the '"
	if pos := strings.Index(msg, marker); pos >= 0 {
		return msg[pos+4:]
	}
	return msg
}

// pushVerdictErrors converts a verdict's stored failures into
// positioned diagnostics for one file.
func (s *runState) pushVerdictErrors(pf *parsedFile, schemaURL string, errs []validationcache.ValidationError) {
	for _, ve := range errs {
		span := diagnostics.FindInstancePathSpan(pf.content, ve.InstancePath)
		d := diagnostics.NewValidationError(pf.path, ve.InstancePath, ve.Message, span, schemaURL, ve.SchemaPath)
		d.Source = pf.content
		s.result.Errors = append(s.result.Errors, d)
	}
}

// checked records one completed file, both with the streaming callback
// and in the result.
func (s *runState) checked(path, schema string, status schemacache.Status, vstatus validationcache.Status) {
	cf := diagnostics.CheckedFile{
		Path:                  path,
		Schema:                schema,
		CacheStatus:           status,
		ValidationCacheStatus: vstatus,
	}
	s.fileChecked(&cf)
	s.result.Checked = append(s.result.Checked, cf)
}
