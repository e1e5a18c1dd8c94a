// Package commands defines all Cobra CLI commands for the notewise binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/calder-n/notewise/internal/audit"
	"github.com/calder-n/notewise/internal/config"
	"github.com/calder-n/notewise/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "notewise",
		Short: "notewise — a personal knowledge base that answers questions from your notes",
		Long: `notewise stores free-text notes, indexes them in a vector store, and
answers natural-language questions by retrieving the most relevant notes
and handing them to an LLM as context.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.notewise/config.yaml).
See 'notewise --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.NewFromEnv()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.notewise/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewAddCmd(),
		NewVersionCmd(),
	)

	return root
}
