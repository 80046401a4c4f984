package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemalint/schemalint/internal/catalog"
	"github.com/schemalint/schemalint/internal/schemacache"
	"github.com/schemalint/schemalint/internal/validate"
	"github.com/schemalint/schemalint/internal/validationcache"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "cache",
		Short:  "Cache debugging tools",
		Hidden: true,
	}
	cmd.AddCommand(NewCacheInspectSchemaCommand())
	cmd.AddCommand(NewCacheTraceCommand())
	return cmd
}

// NewCacheInspectSchemaCommand creates the cache inspect-schema command.
func NewCacheInspectSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect-schema <url>",
		Short: "Show cache file info for a schema URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspectSchema(cmd, args[0])
		},
		SilenceUsage: true,
	}
	cmd.Flags().String("cache-dir", "", "Override the schema cache directory")
	return cmd
}

func runInspectSchema(cmd *cobra.Command, url string) error {
	out := cmd.OutOrStdout()
	hash := schemacache.HashURI(url)
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	if cacheDir == "" {
		cacheDir = schemacache.EnsureCacheDir()
	}
	cachePath := filepath.Join(cacheDir, hash+".json")

	fmt.Fprintf(out, "URL:        %s\n", url)
	fmt.Fprintf(out, "Hash:       %s\n", hash)
	fmt.Fprintf(out, "Cache file: %s\n", cachePath)

	meta, err := os.Stat(cachePath)
	if err != nil {
		fmt.Fprintln(out, "Status:     not cached")
		return nil
	}
	fmt.Fprintf(out, "Size:       %d bytes\n", meta.Size())
	if age := time.Since(meta.ModTime()); age >= 0 {
		fmt.Fprintf(out, "Modified:   %s ago\n", formatAge(age))
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return fmt.Errorf("failed to read cache file: %s: %w", cachePath, err)
	}

	entry, err := schemacache.DecodeEntry(content)
	if err != nil {
		fmt.Fprintln(out, "Valid JSON: no")
		firstLine, _, _ := strings.Cut(string(content), "\n")
		if len(firstLine) > 80 {
			fmt.Fprintf(out, "First line: %s...\n", firstLine[:80])
		} else {
			fmt.Fprintf(out, "First line: %s\n", firstLine)
		}
		return nil
	}
	fmt.Fprintln(out, "Valid JSON: yes")
	fmt.Fprintf(out, "Preview:    %s\n", jsonPreview(entry.Value))
	return nil
}

// NewCacheTraceCommand creates the cache trace command.
func NewCacheTraceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <file>",
		Short: "Trace cache involvement for a file's validation",
		Long: `Walk the resolution and cache chain for one file, printing what each
stage would do: catalog cache state, the discovery tier that matched,
the schema cache entry, and the validation verdict cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, args[0])
		},
		SilenceUsage: true,
	}
	cmd.Flags().String("cache-dir", "", "Override the schema cache directory")
	cmd.Flags().Duration("schema-cache-ttl", 0, "How long disk-cached schemas stay fresh (default 12h)")
	cmd.Flags().Bool("no-catalog", false, "Disable schema catalog lookups")
	return cmd
}

func runTrace(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	filename := filepath.Base(path)

	var f cacheFlags
	f.cacheDir, _ = cmd.Flags().GetString("cache-dir")
	f.schemaCacheTTL, _ = cmd.Flags().GetDuration("schema-cache-ttl")
	f.noCatalog, _ = cmd.Flags().GetBool("no-catalog")

	log := buildLogger(cmd)
	sc := newSchemaCache(f, log)
	cfg, configDir := loadConfigNear(path, log)

	fmt.Fprintf(out, "file: %s\n", path)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "catalog:")
	catalogs, err := validate.FetchCatalogs(cmd.Context(), sc, cfg, f.noCatalog, log)
	if err != nil {
		return err
	}
	if f.noCatalog {
		fmt.Fprintln(out, "  status: disabled (--no-catalog)")
	} else {
		hash := schemacache.HashURI(catalog.PublicCatalogURL)
		fmt.Fprintf(out, "  url: %s\n", catalog.PublicCatalogURL)
		fmt.Fprintf(out, "  hash: %s\n", hash)
		printCacheFileInfo(out, filepath.Join(sc.Dir(), hash+".json"), "  ")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "schema resolution:")
	p, value, reason := parseDocument(content, path)
	if reason == parseFailureUnrecognized {
		return fmt.Errorf("unrecognized format for %s", path)
	}
	if reason != "" {
		return fmt.Errorf("could not parse %s", path)
	}
	resolver := validate.NewResolver(cfg, catalogs)
	res, found := resolver.Resolve(path, filename, content, value, p)
	if !found {
		fmt.Fprintln(out, "  result: no schema found")
		return nil
	}
	switch res.Source {
	case validate.SourceModeline, validate.SourceInline:
		fmt.Fprintln(out, "  source: inline ($schema / modeline)")
	case validate.SourceConfig:
		fmt.Fprintln(out, "  source: config mapping")
		if pattern := configPattern(cfg, path, filename); pattern != "" {
			fmt.Fprintf(out, "  pattern: %s\n", pattern)
		}
	default:
		fmt.Fprintf(out, "  source: %s\n", res.Source)
		fmt.Fprintf(out, "  matched: %s\n", res.Pattern)
		if res.EntryName != "" {
			fmt.Fprintf(out, "  name: %s\n", res.EntryName)
		}
	}
	uri := resolver.ResolveSchemaPath(res, path, configDir)
	fmt.Fprintf(out, "  uri: %s\n", uri)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "schema cache:")
	remote := isRemoteURI(uri)
	if remote {
		hash := schemacache.HashURI(uri)
		cachePath := filepath.Join(sc.Dir(), hash+".json")
		fmt.Fprintf(out, "  hash: %s\n", hash)
		fmt.Fprintf(out, "  path: %s\n", cachePath)
		printCacheFileInfo(out, cachePath, "  ")
		if _, status, err := sc.Fetch(cmd.Context(), uri); err != nil {
			fmt.Fprintf(out, "  fetch error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  fetch status: %s\n", fetchStatusLabel(status))
		}
	} else {
		fmt.Fprintf(out, "  local schema: %s\n", uri)
		if meta, err := os.Stat(uri); err == nil {
			fmt.Fprintf(out, "  size: %d bytes\n", meta.Size())
		} else {
			fmt.Fprintln(out, "  warning: file not found")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "validation cache:")
	vdir := validationcache.EnsureCacheDir()
	fmt.Fprintf(out, "  dir: %s\n", vdir)

	var schema any
	if remote {
		if v, _, err := sc.Fetch(cmd.Context(), uri); err == nil {
			schema = v
		}
	} else if v, err := readLocalSchema(uri); err == nil {
		schema = v
	}
	if schema == nil {
		fmt.Fprintln(out, "  status: unavailable (could not load schema for hash)")
		return nil
	}

	key := validationcache.Key(content, validationcache.SchemaHash(schema), cfg.ShouldValidateFormats(path, []string{uri}))
	fmt.Fprintf(out, "  key: %s\n", key)
	vc := validationcache.New(vdir, false, log)
	if _, status := vc.Lookup(key); status == validationcache.StatusHit {
		fmt.Fprintln(out, "  status: hit")
	} else {
		fmt.Fprintln(out, "  status: miss")
	}
	return nil
}

// printCacheFileInfo prints size and age for a cache entry file, or
// that it is absent.
func printCacheFileInfo(w io.Writer, path, indent string) {
	meta, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "%scache: miss (not on disk)\n", indent)
		return
	}
	fmt.Fprintf(w, "%ssize: %d bytes\n", indent, meta.Size())
	if age := time.Since(meta.ModTime()); age >= 0 {
		fmt.Fprintf(w, "%smodified: %s ago\n", indent, formatAge(age))
	}
}

// fetchStatusLabel renders a schema fetch status for trace output.
func fetchStatusLabel(status schemacache.Status) string {
	switch status {
	case schemacache.StatusHitMemory:
		return "hit (memory)"
	case schemacache.StatusHitDisk:
		return "hit (disk)"
	case schemacache.StatusDisabled:
		return "disabled"
	default:
		return "miss (fetched from network)"
	}
}

// formatAge renders a file age like 26h3m4s, dropping sub-second noise.
func formatAge(age time.Duration) string {
	return age.Truncate(time.Second).String()
}

// jsonPreview summarizes a cached JSON value in one line.
func jsonPreview(value any) string {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 5 {
			return fmt.Sprintf("{%s,...} (%d keys)", strings.Join(keys[:5], ", "), len(v))
		}
		return fmt.Sprintf("{%s} (%d keys)", strings.Join(keys, ", "), len(v))
	case []any:
		return fmt.Sprintf("[...] (%d items)", len(v))
	default:
		repr, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		if len(repr) > 80 {
			return string(repr[:80]) + "..."
		}
		return string(repr)
	}
}
