package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemalint/schemalint/internal/config"
	"github.com/schemalint/schemalint/internal/filelock"
)

const configTemplate = `# schemalint configuration
# https://github.com/schemalint/schemalint

# Uncomment to stop parent config inheritance:
# root = true

# Exclude patterns (glob)
exclude = []

# Custom schema mappings: glob pattern -> schema URL
# [schemas]
# "my-config.json" = "https://example.com/schema.json"

# Additional schema catalog registries (SchemaStore format)
# registries = []

# Schema URI rewrite rules
# [rewrite]
# "https://old-domain.com/" = "https://new-domain.com/"

# Per-file overrides
# [[override]]
# files = ["vendor/**"]
# validate_formats = false
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a schemalint.toml configuration file",
		Long: `Write a starter schemalint.toml in the current directory, with the
common settings present but commented out. Refuses to overwrite an
existing file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd)
		},
		SilenceUsage: true,
	}
}

func runInit(cmd *cobra.Command) error {
	if _, err := os.Stat(config.ConfigFilename); err == nil {
		return fmt.Errorf("%s already exists", config.ConfigFilename)
	}
	if err := filelock.AtomicWrite(config.ConfigFilename, []byte(configTemplate)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Created %s\n", config.ConfigFilename)
	return nil
}
