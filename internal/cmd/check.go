package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/schemalint/schemalint/internal/logger"
	"github.com/schemalint/schemalint/internal/reporter"
	"github.com/schemalint/schemalint/internal/schemacache"
	"github.com/schemalint/schemalint/internal/validate"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [glob...]",
		Short: "Validate files against their schemas",
		Long: `Validate files against the JSON Schemas they resolve to.

With no arguments the working directory is walked, honoring .gitignore
files and the excludes from schemalint.toml. Arguments may be literal
paths, directories, or glob patterns such as '**/*.yaml'.

Examples:
  schemalint check
  schemalint check config/*.yaml deploy/
  schemalint check --reporter github
  schemalint check --force --verbose

Exit code: 0 if valid, 1 if errors found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, reporter.KindPretty)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringArray("exclude", nil, "Glob patterns to skip (repeatable)")
	cmd.Flags().String("reporter", "", "Output format: pretty, text, github, sarif")
	addCacheFlags(cmd)

	return cmd
}

// NewCICommand creates the ci command.
func NewCICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci [glob...]",
		Short: "Validate files with CI-friendly output",
		Long: `Validate files like check, defaulting to the plain text reporter so
output stays readable in build logs. Use --reporter github inside
GitHub Actions to get annotations on the offending lines.

Exit code: 0 if valid, 1 if errors found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, reporter.KindText)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringArray("exclude", nil, "Glob patterns to skip (repeatable)")
	cmd.Flags().String("reporter", "", "Output format: pretty, text, github, sarif")
	addCacheFlags(cmd)

	return cmd
}

// cacheFlags holds the cache-control flag values shared by commands
// that touch the schema or validation caches.
type cacheFlags struct {
	cacheDir         string
	schemaCacheTTL   time.Duration
	forceSchemaFetch bool
	forceValidation  bool
	noCatalog        bool
}

func addCacheFlags(cmd *cobra.Command) {
	cmd.Flags().String("cache-dir", "", "Override the schema cache directory")
	cmd.Flags().Duration("schema-cache-ttl", 0, "How long disk-cached schemas stay fresh (default 12h)")
	cmd.Flags().Bool("force-schema-fetch", false, "Re-fetch schemas even when cached")
	cmd.Flags().Bool("force-validation", false, "Re-validate files even when verdicts are cached")
	cmd.Flags().Bool("force", false, "Shorthand for --force-schema-fetch --force-validation")
	cmd.Flags().Bool("no-catalog", false, "Disable schema catalog lookups")
}

// readCacheFlags collects the cache flag values. --force folds into the
// two narrower flags here, so downstream code never sees it.
func readCacheFlags(cmd *cobra.Command) cacheFlags {
	var f cacheFlags
	f.cacheDir, _ = cmd.Flags().GetString("cache-dir")
	f.schemaCacheTTL, _ = cmd.Flags().GetDuration("schema-cache-ttl")
	f.forceSchemaFetch, _ = cmd.Flags().GetBool("force-schema-fetch")
	f.forceValidation, _ = cmd.Flags().GetBool("force-validation")
	f.noCatalog, _ = cmd.Flags().GetBool("no-catalog")
	if force, _ := cmd.Flags().GetBool("force"); force {
		f.forceSchemaFetch = true
		f.forceValidation = true
	}
	return f
}

// newSchemaCache builds the schema cache commands resolve schemas
// through, honoring the cache flags.
func newSchemaCache(f cacheFlags, log logger.Logger) *schemacache.Cache {
	opts := []schemacache.Option{
		schemacache.WithForceFetch(f.forceSchemaFetch),
		schemacache.WithLogger(log),
	}
	if f.cacheDir != "" {
		opts = append(opts, schemacache.WithCacheDir(f.cacheDir))
	}
	if f.schemaCacheTTL > 0 {
		opts = append(opts, schemacache.WithTTL(f.schemaCacheTTL))
	}
	return schemacache.New(opts...)
}

// runCheck executes the validation pipeline and renders the result
// through the selected reporter.
func runCheck(cmd *cobra.Command, globs []string, defaultKind reporter.Kind) error {
	kind := defaultKind
	if s, _ := cmd.Flags().GetString("reporter"); s != "" {
		parsed, err := reporter.ParseKind(s)
		if err != nil {
			return err
		}
		kind = parsed
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	exclude, _ := cmd.Flags().GetStringArray("exclude")
	cache := readCacheFlags(cmd)

	rep := reporter.New(kind, reporter.Options{
		Verbose:     verbose,
		ToolVersion: Version,
		Out:         cmd.OutOrStdout(),
		Err:         cmd.ErrOrStderr(),
	})

	start := time.Now()
	result, err := validate.Run(cmd.Context(), validate.Args{
		Globs:            globs,
		Exclude:          exclude,
		CacheDir:         cache.cacheDir,
		ForceSchemaFetch: cache.forceSchemaFetch,
		ForceValidation:  cache.forceValidation,
		NoCatalog:        cache.noCatalog,
		SchemaCacheTTL:   cache.schemaCacheTTL,
		Logger:           buildLogger(cmd),
	}, rep.FileChecked)
	if err != nil {
		return err
	}
	rep.Report(result, time.Since(start))

	if result.HasErrors() {
		return ErrChecksFailed
	}
	return nil
}
