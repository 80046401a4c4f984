package validate

import (
	"path/filepath"
	"strings"

	"github.com/schemalint/schemalint/internal/catalog"
	"github.com/schemalint/schemalint/internal/config"
	"github.com/schemalint/schemalint/internal/parser"
)

// Source identifies which discovery tier matched a file to its schema.
// The numeric order is the precedence order.
type Source int

const (
	// SourceModeline is a format-specific comment directive such as
	// yaml-language-server's $schema= line.
	SourceModeline Source = iota
	// SourceInline is a $schema property inside the document.
	SourceInline
	// SourceConfig covers the schemas table of schemalint.toml and any
	// custom registries it declares.
	SourceConfig
	// SourceSupplementary is the supplementary catalog that fills gaps
	// in SchemaStore coverage.
	SourceSupplementary
	// SourcePublic is the public SchemaStore catalog.
	SourcePublic
)

func (s Source) String() string {
	switch s {
	case SourceModeline:
		return "modeline"
	case SourceInline:
		return "inline"
	case SourceConfig:
		return "config"
	case SourceSupplementary:
		return "supplementary catalog"
	case SourcePublic:
		return "public catalog"
	}
	return "unknown"
}

// Resolution is the outcome of schema discovery for one file.
type Resolution struct {
	Source Source
	// URI is the schema reference as discovered, before any rewrite
	// rules run. Overrides match against this form as well as the
	// rewritten one.
	URI string
	// InlineDoc reports whether the document itself declared the
	// schema. Relative schema paths then anchor at the file instead of
	// the config directory.
	InlineDoc bool
	// Pattern is the file-match glob that hit, for catalog sources.
	Pattern string
	// EntryName is the catalog entry's display name, when known.
	EntryName string
}

// TaggedCatalog pairs a compiled catalog with the discovery tier its
// matches report.
type TaggedCatalog struct {
	Source   Source
	Compiled *catalog.Compiled
}

// Resolver answers which schema governs a file. Tiers run in a fixed
// order: modeline, inline $schema, config mapping, then each catalog
// by priority.
type Resolver struct {
	cfg      *config.Config
	catalogs []TaggedCatalog
}

func NewResolver(cfg *config.Config, catalogs []TaggedCatalog) *Resolver {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Resolver{cfg: cfg, catalogs: catalogs}
}

// Resolve runs the discovery tiers for one parsed document. p may be
// nil when no format-specific parser applies (unrecognized extensions,
// JSONL lines); document-declared schemas are then read from the
// value's $schema property alone. The second return is false when no
// tier matched, which skips the file.
func (r *Resolver) Resolve(path, filename string, content []byte, value any, p parser.Parser) (*Resolution, bool) {
	if p != nil {
		if uri, ok := p.ExtractSchemaURI(content, value); ok {
			source := SourceModeline
			if prop, ok := parser.SchemaProperty(value); ok && prop == uri {
				source = SourceInline
			}
			return &Resolution{Source: source, URI: uri, InlineDoc: true}, true
		}
	} else if uri, ok := parser.SchemaProperty(value); ok {
		return &Resolution{Source: SourceInline, URI: uri, InlineDoc: true}, true
	}

	if uri, ok := r.cfg.FindSchemaMapping(path, filename); ok {
		return &Resolution{Source: SourceConfig, URI: uri}, true
	}

	for _, tc := range r.catalogs {
		if m, ok := tc.Compiled.FindSchemaDetailed(path, filename); ok {
			return &Resolution{
				Source:    tc.Source,
				URI:       m.URL,
				Pattern:   m.MatchedPattern,
				EntryName: m.Name,
			}, true
		}
	}
	return nil, false
}

// HasMapping reports whether a config mapping or catalog entry claims
// the path, without looking at the document content. Files with
// unrecognized extensions are only parsed when this is true.
func (r *Resolver) HasMapping(path, filename string) bool {
	if _, ok := r.cfg.FindSchemaMapping(path, filename); ok {
		return true
	}
	for _, tc := range r.catalogs {
		if _, ok := tc.Compiled.FindSchema(path, filename); ok {
			return true
		}
	}
	return false
}

// ResolveSchemaPath turns a discovered URI into the final reference
// handed to the schema layer: rewrite rules first, then // anchoring at
// the config directory, then relative local paths against the file's
// own directory for document-declared schemas or the config directory
// for config and catalog matches.
func (r *Resolver) ResolveSchemaPath(res *Resolution, filePath, configDir string) string {
	uri := config.ApplyRewrites(res.URI, r.cfg.Rewrite)
	uri = config.ResolveDoubleSlash(uri, configDir)
	if isRemote(uri) || filepath.IsAbs(uri) {
		return uri
	}
	if res.InlineDoc {
		return filepath.Join(filepath.Dir(filePath), uri)
	}
	return filepath.Join(configDir, uri)
}

func isRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}
