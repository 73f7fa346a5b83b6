// Package commands defines all Cobra CLI commands for the sitechat binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quillhaven/sitechat/internal/audit"
	"github.com/quillhaven/sitechat/internal/config"
	"github.com/quillhaven/sitechat/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sitechat",
		Short: "Retrieval-augmented chat backend for a personal website",
		Long: `sitechat serves a personal website with an AI chat assistant grounded in
the site owner's own documents.

At startup it ingests a directory of plain-text documents into an in-memory
knowledge base. Each chat question retrieves the most relevant passages and
injects them into the model prompt, so answers stay anchored to what the
site actually says. The server also hosts the static frontend and a
contact form delivered over SMTP.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.sitechat/config.yaml).
See 'sitechat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env if present; a missing file is not an error.
			_ = godotenv.Load()

			log := logging.New()

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

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.sitechat/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
