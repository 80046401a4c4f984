package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/schemalint/schemalint/internal/diagnostics"
	"github.com/schemalint/schemalint/internal/explain"
	"github.com/schemalint/schemalint/internal/logger"
	"github.com/schemalint/schemalint/internal/validate"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain (--schema <URL|FILE> | --path <FILE>) [pointer]",
		Short: "Show JSON Schema documentation for a schema or file",
		Long: `Render a schema's documentation for the terminal: title, description,
types, properties, constraints and variants, with markdown descriptions
formatted and wrapped.

--schema takes a schema URL or local schema file directly. --path takes
a data file instead, resolves its schema the same way check does, then
validates the file and folds any errors for the explained part into the
output.

The optional positional argument narrows the output to a sub-schema,
given as a JSON Pointer or a JSONPath:

  schemalint explain --schema https://json.schemastore.org/package.json
  schemalint explain --path package.json /properties/scripts
  schemalint explain --path package.json '$.scripts'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pointerArg := ""
			if len(args) == 1 {
				pointerArg = args[0]
			}
			return runExplain(cmd, pointerArg)
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("schema", "", "Schema URL or local file path to explain")
	cmd.Flags().String("path", "", "Data file to resolve the schema from")
	addCacheFlags(cmd)

	return cmd
}

func runExplain(cmd *cobra.Command, pointerArg string) error {
	schemaArg, _ := cmd.Flags().GetString("schema")
	pathArg, _ := cmd.Flags().GetString("path")
	if schemaArg == "" && pathArg == "" {
		return errors.New("either --schema <URL|FILE> or --path <FILE> is required")
	}

	cache := readCacheFlags(cmd)
	log := buildLogger(cmd)
	sc := newSchemaCache(cache, log)

	uri, name := schemaArg, schemaArg
	if pathArg != "" {
		id, err := identifyFile(cmd.Context(), sc, cache, pathArg, log)
		if err != nil {
			return err
		}
		if id.Resolution == nil {
			return fmt.Errorf("no schema found for %s", pathArg)
		}
		uri, name = id.URI, id.DisplayName
	}

	var schema any
	var err error
	if isRemoteURI(uri) {
		if schema, _, err = sc.Fetch(cmd.Context(), uri); err != nil {
			return fmt.Errorf("failed to fetch schema '%s': %w", uri, err)
		}
	} else if schema, err = readLocalSchema(uri); err != nil {
		return err
	}

	pointer := ""
	if pointerArg != "" {
		if pointer, err = explain.ToSchemaPointer(pointerArg); err != nil {
			return err
		}
	}

	var errs []explain.ValidationError
	if pathArg != "" {
		errs = collectValidationErrors(cmd.Context(), pathArg, cache, instancePrefix(pointer), log)
	}

	opts := explainOptions(errs)
	output := ""
	if pointerArg != "" {
		if output, err = explain.ExplainAtPath(schema, pointer, name, opts); err != nil {
			return err
		}
	} else {
		output = explain.Explain(schema, name, opts)
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}

// readLocalSchema loads a schema from disk. Schemas are JSON regardless
// of the document formats they validate.
func readLocalSchema(path string) (any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %s: %w", path, err)
	}
	var value any
	if err := json.Unmarshal(content, &value); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %s: %w", path, err)
	}
	return value, nil
}

// collectValidationErrors validates the data file and keeps the errors
// that land under the explained part of the document. Validation
// problems never fail the explain itself.
func collectValidationErrors(ctx context.Context, path string, cache cacheFlags, prefix string, log logger.Logger) []explain.ValidationError {
	result, err := validate.Run(ctx, validate.Args{
		Globs:            []string{path},
		CacheDir:         cache.cacheDir,
		ForceSchemaFetch: cache.forceSchemaFetch,
		NoCatalog:        cache.noCatalog,
		ConfigDir:        filepath.Dir(path),
		SchemaCacheTTL:   cache.schemaCacheTTL,
		Logger:           log,
	}, nil)
	if err != nil {
		log.LogDebug(fmt.Sprintf("validation failed: %v", err))
		return nil
	}

	var errs []explain.ValidationError
	for _, d := range result.Errors {
		if d.Kind != diagnostics.KindValidation {
			continue
		}
		if prefix == "" || d.InstancePath == prefix || strings.HasPrefix(d.InstancePath, prefix+"/") {
			errs = append(errs, explain.ValidationError{InstancePath: d.InstancePath, Message: d.Message})
		}
	}
	return errs
}

// instancePrefix converts a schema pointer like /properties/badges into
// the instance path prefix it governs, /badges. A properties segment
// names the property that follows it; an items segment descends without
// adding anything.
func instancePrefix(schemaPointer string) string {
	var b strings.Builder
	segments := strings.Split(schemaPointer, "/")
	for i := 1; i < len(segments); i++ {
		switch segments[i] {
		case "properties":
			if i+1 < len(segments) {
				i++
				b.WriteString("/")
				b.WriteString(segments[i])
			}
		case "items":
		default:
			b.WriteString("/")
			b.WriteString(segments[i])
		}
	}
	return b.String()
}

// explainOptions builds render options from the terminal: color when
// stdout is a terminal and NO_COLOR is unset, width from the terminal
// size or COLUMNS, defaulting to 80.
func explainOptions(errs []explain.ValidationError) explain.Options {
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return explain.Options{
		Color:  isTTY && !color.NoColor,
		Width:  terminalWidth(),
		Errors: errs,
	}
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if s := os.Getenv("COLUMNS"); s != "" {
		if w, err := strconv.Atoi(s); err == nil && w > 0 {
			return w
		}
	}
	return 80
}
