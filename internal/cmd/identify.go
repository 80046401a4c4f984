package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemalint/schemalint/internal/config"
	"github.com/schemalint/schemalint/internal/explain"
	"github.com/schemalint/schemalint/internal/globset"
	"github.com/schemalint/schemalint/internal/logger"
	"github.com/schemalint/schemalint/internal/parser"
	"github.com/schemalint/schemalint/internal/schemacache"
	"github.com/schemalint/schemalint/internal/validate"
)

// NewIdentifyCommand creates the identify command.
func NewIdentifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify <file>",
		Short: "Show which schema a file resolves to",
		Long: `Show which schema a file resolves to and through which discovery
tier: a modeline comment, an inline $schema property, a schemalint.toml
mapping, or a catalog match.

Examples:
  schemalint identify tsconfig.json
  schemalint identify .github/workflows/ci.yaml --explain

Exit code: 0 whether or not a schema is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentify(cmd, args[0])
		},
		SilenceUsage: true,
	}

	cmd.Flags().Bool("explain", false, "Render the resolved schema's documentation")
	addCacheFlags(cmd)

	return cmd
}

// Reasons identify gives up on a document before resolution runs.
const (
	parseFailureUnparseable  = "file could not be parsed"
	parseFailureUnrecognized = "unrecognized format"
)

// fileIdentification captures everything identify reports about a file.
type fileIdentification struct {
	// Resolution is nil when no discovery tier matched.
	Resolution *validate.Resolution
	// URI is the final schema reference, after rewrites and anchoring.
	URI         string
	DisplayName string
	// ConfigPattern is the schemas-table glob that matched. Config tier
	// only.
	ConfigPattern string
	// FileMatch and Description come from the matched catalog entry.
	// Catalog tiers only.
	FileMatch   []string
	Description string
	// ParseFailure says why the document could not be read as any
	// supported format, when it could not.
	ParseFailure string
}

func runIdentify(cmd *cobra.Command, path string) error {
	cache := readCacheFlags(cmd)
	log := buildLogger(cmd)
	sc := newSchemaCache(cache, log)

	id, err := identifyFile(cmd.Context(), sc, cache, path, log)
	if err != nil {
		return err
	}
	if id.Resolution == nil {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintln(errOut, path)
		if id.ParseFailure != "" {
			fmt.Fprintf(errOut, "  no schema found (%s)\n", id.ParseFailure)
		} else {
			fmt.Fprintln(errOut, "  no schema found")
		}
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, path)
	if id.DisplayName == id.URI {
		fmt.Fprintf(out, "  schema: %s\n", id.URI)
	} else {
		fmt.Fprintf(out, "  schema: %s (%s)\n", id.DisplayName, id.URI)
	}
	fmt.Fprintf(out, "  source: %s\n", id.Resolution.Source)

	switch id.Resolution.Source {
	case validate.SourceConfig:
		if id.ConfigPattern != "" {
			fmt.Fprintf(out, "  matched: %s\n", id.ConfigPattern)
		}
	case validate.SourceSupplementary, validate.SourcePublic:
		if id.Resolution.Pattern != "" {
			fmt.Fprintf(out, "  matched: %s\n", id.Resolution.Pattern)
		}
		if len(id.FileMatch) > 1 {
			fmt.Fprintf(out, "  globs: %s\n", strings.Join(id.FileMatch, ", "))
		}
		if id.Description != "" {
			fmt.Fprintf(out, "  description: %s\n", id.Description)
		}
	}

	if showExplain, _ := cmd.Flags().GetBool("explain"); showExplain {
		return renderResolvedSchema(cmd, sc, id.URI, id.DisplayName)
	}
	return nil
}

// identifyFile resolves which schema governs a file, through the same
// tiers a check run uses: modeline, inline $schema, config mapping,
// then catalogs.
func identifyFile(ctx context.Context, sc *schemacache.Cache, cache cacheFlags, path string, log logger.Logger) (*fileIdentification, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	filename := filepath.Base(path)

	cfg, configDir := loadConfigNear(path, log)

	catalogs, err := validate.FetchCatalogs(ctx, sc, cfg, cache.noCatalog, log)
	if err != nil {
		return nil, err
	}

	p, value, reason := parseDocument(content, path)
	if reason != "" {
		return &fileIdentification{ParseFailure: reason}, nil
	}

	resolver := validate.NewResolver(cfg, catalogs)
	res, ok := resolver.Resolve(path, filename, content, value, p)
	if !ok {
		return &fileIdentification{}, nil
	}

	id := &fileIdentification{
		Resolution: res,
		URI:        resolver.ResolveSchemaPath(res, path, configDir),
	}
	id.DisplayName = displayName(res, catalogs, id.URI)

	switch res.Source {
	case validate.SourceConfig:
		id.ConfigPattern = configPattern(cfg, path, filename)
	case validate.SourceSupplementary, validate.SourcePublic:
		for _, tc := range catalogs {
			if m, ok := tc.Compiled.FindSchemaDetailed(path, filename); ok {
				id.FileMatch = m.FileMatch
				id.Description = m.Description
				break
			}
		}
	}
	return id, nil
}

// parseDocument parses content with the parser its extension suggests,
// falling back to every parser. A non-empty reason means nothing could
// make sense of the content.
func parseDocument(content []byte, path string) (parser.Parser, any, string) {
	if f := parser.DetectFormat(path); f != parser.FormatUnknown {
		p := parser.ParserFor(f)
		if value, err := p.Parse(content, path); err == nil {
			return p, value, ""
		}
		if value, f2, ok := parser.ParseAny(content, path); ok {
			return parser.ParserFor(f2), value, ""
		}
		return nil, nil, parseFailureUnparseable
	}
	if value, f, ok := parser.ParseAny(content, path); ok {
		return parser.ParserFor(f), value, ""
	}
	return nil, nil, parseFailureUnrecognized
}

// loadConfigNear finds and loads schemalint.toml starting from the
// file's directory, falling back to defaults when the config is broken.
func loadConfigNear(path string, log logger.Logger) (*config.Config, string) {
	searchDir := filepath.Dir(path)
	cfg, configDir, err := config.FindAndLoad(searchDir)
	if err != nil {
		log.LogWarn(fmt.Sprintf("could not load config: %v", err))
		cfg = nil
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	if configDir == "" {
		if abs, err := filepath.Abs(searchDir); err == nil {
			configDir = abs
		} else {
			configDir = searchDir
		}
	}
	return cfg, configDir
}

// displayName picks a human-readable schema name: the matched catalog
// entry's, any catalog entry registered for the final URI, then the URI
// itself.
func displayName(res *validate.Resolution, catalogs []validate.TaggedCatalog, uri string) string {
	if res.EntryName != "" {
		return res.EntryName
	}
	for _, tc := range catalogs {
		if e, ok := tc.Compiled.EntryForURL(uri); ok && e.Name != "" {
			return e.Name
		}
	}
	return uri
}

// configPattern recovers which schemas-table glob matched the file, for
// display. Patterns are tried in sorted order, the order the mapping
// table compiles them in.
func configPattern(cfg *config.Config, path, filename string) string {
	trimmed := strings.TrimPrefix(path, "./")
	patterns := make([]string, 0, len(cfg.Schemas))
	for pattern := range cfg.Schemas {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		g, err := globset.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(trimmed) || g.Match(filename) {
			return pattern
		}
	}
	return ""
}

// renderResolvedSchema renders schema documentation underneath the
// identification summary. Fetch failures are reported inline rather
// than failing the command, since the identification itself succeeded.
func renderResolvedSchema(cmd *cobra.Command, sc *schemacache.Cache, uri, name string) error {
	var schema any
	var err error
	if isRemoteURI(uri) {
		if schema, _, err = sc.Fetch(cmd.Context(), uri); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "  error fetching schema: %v\n", err)
			return nil
		}
	} else if schema, err = readLocalSchema(uri); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprint(out, explain.Explain(schema, name, explainOptions(nil)))
	return nil
}

func isRemoteURI(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}
