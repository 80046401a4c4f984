// Package cmd wires the schemalint command tree.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemalint/schemalint/internal/logger"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// ErrChecksFailed marks a run that completed but found invalid files.
// The reporter has already shown the errors, so Execute maps it to exit
// code 1 with no extra output.
var ErrChecksFailed = errors.New("checks failed")

// NewRootCommand creates the root schemalint command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemalint",
		Short: "Validate JSON and YAML files against JSON Schema",
		Long: `schemalint validates JSON, JSONC, JSON5, YAML, TOML and Markdown
frontmatter files against JSON Schemas. Schemas are resolved from
modeline comments, inline $schema properties, schemalint.toml mappings
and SchemaStore catalogs, and cached on disk between runs.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text; errors are
		// printed once by Execute with the exit code they map to.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Log pipeline activity at this level: trace, debug, info, warn, error")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Stream a line for every checked file")

	// Add subcommands
	cmd.AddCommand(NewCheckCommand())
	cmd.AddCommand(NewCICommand())
	cmd.AddCommand(NewIdentifyCommand())
	cmd.AddCommand(NewExplainCommand())
	cmd.AddCommand(NewCacheCommand())
	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schemalint %s\n", Version)
		},
	}
}

// Execute runs the command tree and maps the outcome to a process exit
// code: 0 for a clean run, 1 for validation errors, 2 for anything
// operational (bad flags, unreadable files, catalogs that will not
// compile).
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		if errors.Is(err, ErrChecksFailed) {
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// buildLogger turns the persistent --log-level flag into a pipeline
// logger. Empty means silent, keeping command output clean by default.
func buildLogger(cmd *cobra.Command) logger.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		return logger.NewNoOpLogger()
	}
	return logger.NewConsoleLogger(os.Stderr, level)
}
