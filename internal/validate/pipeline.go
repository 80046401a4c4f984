// Package validate implements the check pipeline: discover input
// files, match each one to a schema, fetch and compile schemas through
// the cache layers, and validate documents, producing positioned
// diagnostics and a per-file checked report.
package validate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/schemalint/schemalint/internal/catalog"
	"github.com/schemalint/schemalint/internal/config"
	"github.com/schemalint/schemalint/internal/diagnostics"
	"github.com/schemalint/schemalint/internal/logger"
	"github.com/schemalint/schemalint/internal/schemacache"
	"github.com/schemalint/schemalint/internal/validationcache"
)

// Args configures a validation run.
type Args struct {
	// Globs selects input files: literal paths, directories, or glob
	// patterns. Empty walks the working directory.
	Globs []string
	// Exclude holds glob patterns to skip, applied after any excludes
	// from schemalint.toml.
	Exclude []string
	// CacheDir overrides where fetched schemas are stored on disk.
	// Empty uses the user cache directory.
	CacheDir string
	// ValidationCacheDir overrides where validation verdicts are
	// stored. Empty uses the user cache directory.
	ValidationCacheDir string
	// ForceSchemaFetch bypasses schema cache reads; fetched schemas
	// are still written back.
	ForceSchemaFetch bool
	// ForceValidation disables verdict cache reads and writes.
	ForceValidation bool
	// NoCatalog disables catalog fetching entirely, leaving modelines,
	// inline $schema properties, and config mappings as the only
	// discovery tiers.
	NoCatalog bool
	// ConfigDir starts the schemalint.toml search somewhere other than
	// the working directory.
	ConfigDir string
	// SchemaCacheTTL overrides how long disk-cached schemas count as
	// fresh.
	SchemaCacheTTL time.Duration
	// Logger receives pipeline progress output. Nil discards it.
	Logger logger.Logger
}

// Run executes a full validation pass. fileChecked, when non-nil, is
// called as each file completes so reporters can stream progress; the
// same entries also accumulate in the result. A non-nil error means
// the run itself could not proceed, as opposed to files failing
// validation.
func Run(ctx context.Context, args Args, fileChecked func(*diagnostics.CheckedFile)) (*diagnostics.Result, error) {
	return RunWith(ctx, args, nil, fileChecked)
}

// RunWith is Run with an injected schema cache, letting callers supply
// a pre-populated memory cache or one shared across runs.
func RunWith(ctx context.Context, args Args, sc *schemacache.Cache, fileChecked func(*diagnostics.CheckedFile)) (*diagnostics.Result, error) {
	if fileChecked == nil {
		fileChecked = func(*diagnostics.CheckedFile) {}
	}
	log := args.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if sc == nil {
		sc = buildSchemaCache(args, log)
	}

	startDir := args.ConfigDir
	if startDir == "" {
		startDir = "."
	}
	configPath, configFound := config.FindPath(startDir)
	cfg, configDir, err := config.FindAndLoad(startDir)
	if err != nil {
		// A config that cannot load falls back to defaults; the
		// self-check below reports what is wrong with the file.
		log.LogWarn(fmt.Sprintf("could not load %s: %v", configPath, err))
		cfg, configDir = nil, ""
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	if configDir == "" {
		if configFound {
			configDir = filepath.Dir(configPath)
		} else if configDir, err = filepath.Abs(startDir); err != nil {
			return nil, err
		}
	}

	excludes := make([]string, 0, len(cfg.Exclude)+len(args.Exclude))
	excludes = append(excludes, cfg.Exclude...)
	excludes = append(excludes, args.Exclude...)

	files, err := collectFiles(args.Globs, excludes)
	if err != nil {
		return nil, err
	}
	log.LogDebug(fmt.Sprintf("checking %d files", len(files)))

	catalogs, err := FetchCatalogs(ctx, sc, cfg, args.NoCatalog, log)
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(cfg, catalogs)

	vdir := args.ValidationCacheDir
	if vdir == "" {
		vdir = validationcache.EnsureCacheDir()
	}

	state := &runState{
		cfg:          cfg,
		sc:           sc,
		vcache:       validationcache.New(vdir, args.ForceValidation, log),
		log:          log,
		result:       &diagnostics.Result{},
		fileChecked:  fileChecked,
		localSchemas: make(map[string]any),
	}

	// schemalint.toml is itself validated against a built-in schema
	// whenever one was found, loadable or not.
	if configFound {
		state.checkConfigFile(configPath)
	}

	outcomes := parseAndGroup(ctx, files, resolver, configDir)

	// Group parsed files by final schema reference so each schema is
	// fetched and compiled once. URI order fixes the group order.
	groups := make(map[string][]*parsedFile)
	var uris []string
	for _, out := range outcomes {
		state.result.Errors = append(state.result.Errors, out.diags...)
		for _, g := range out.grouped {
			if _, seen := groups[g.uri]; !seen {
				uris = append(uris, g.uri)
			}
			groups[g.uri] = append(groups[g.uri], g.file)
		}
	}
	sort.Strings(uris)

	state.prefetched = prefetchSchemas(ctx, sc, uris)

	for _, uri := range uris {
		state.checkGroup(ctx, uri, groups[uri])
	}

	diagnostics.Sort(state.result.Errors)
	return state.result, nil
}

func buildSchemaCache(args Args, log logger.Logger) *schemacache.Cache {
	opts := []schemacache.Option{
		schemacache.WithForceFetch(args.ForceSchemaFetch),
		schemacache.WithLogger(log),
	}
	if args.CacheDir != "" {
		opts = append(opts, schemacache.WithCacheDir(args.CacheDir))
	}
	if args.SchemaCacheTTL > 0 {
		opts = append(opts, schemacache.WithTTL(args.SchemaCacheTTL))
	}
	return schemacache.New(opts...)
}

// FetchCatalogs retrieves and compiles every catalog the run consults,
// concurrently: custom registries in config order, then the
// supplementary catalog, then SchemaStore. A catalog that fails to
// fetch degrades to a warning; one that fetches but does not compile
// aborts the run, because it would otherwise silently under-match
// every file.
func FetchCatalogs(ctx context.Context, sc *schemacache.Cache, cfg *config.Config, noCatalog bool, log logger.Logger) ([]TaggedCatalog, error) {
	if noCatalog {
		return nil, nil
	}

	type request struct {
		source Source
		url    string
	}
	var requests []request
	for _, url := range cfg.Registries {
		requests = append(requests, request{SourceConfig, url})
	}
	if !cfg.NoDefaultCatalog {
		requests = append(requests, request{SourceSupplementary, catalog.SupplementaryCatalogURL})
	}
	requests = append(requests, request{SourcePublic, catalog.PublicCatalogURL})

	type outcome struct {
		compiled   *catalog.Compiled
		fetchErr   error
		compileErr error
	}
	outcomes := make([]outcome, len(requests))
	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req request) {
			defer wg.Done()
			cat, err := catalog.FetchCatalog(ctx, sc, req.url)
			if err != nil {
				outcomes[i] = outcome{fetchErr: err}
				return
			}
			compiled, err := catalog.Compile(cat)
			if err != nil {
				outcomes[i] = outcome{compileErr: fmt.Errorf("catalog %s: %w", req.url, err)}
				return
			}
			outcomes[i] = outcome{compiled: compiled}
		}(i, req)
	}
	wg.Wait()

	catalogs := make([]TaggedCatalog, 0, len(requests))
	for i, out := range outcomes {
		switch {
		case out.compileErr != nil:
			return nil, out.compileErr
		case out.fetchErr != nil:
			log.LogWarn(fmt.Sprintf("failed to fetch catalog %s: %v", requests[i].url, out.fetchErr))
		default:
			catalogs = append(catalogs, TaggedCatalog{Source: requests[i].source, Compiled: out.compiled})
		}
	}
	return catalogs, nil
}

// fetchResult is one prefetched remote schema, or the error fetching
// it produced.
type fetchResult struct {
	value  any
	status schemacache.Status
	err    error
}

// prefetchSchemas fetches every remote schema concurrently before
// validation starts. The cache coalesces duplicate URIs and bounds
// outbound requests, so this fans out one goroutine per URI.
func prefetchSchemas(ctx context.Context, sc *schemacache.Cache, uris []string) map[string]fetchResult {
	prefetched := make(map[string]fetchResult, len(uris))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, uri := range uris {
		if !isRemote(uri) {
			continue
		}
		wg.Add(1)
		go func(uri string) {
			defer wg.Done()
			value, status, err := sc.Fetch(ctx, uri)
			mu.Lock()
			prefetched[uri] = fetchResult{value: value, status: status, err: err}
			mu.Unlock()
		}(uri)
	}
	wg.Wait()
	return prefetched
}
