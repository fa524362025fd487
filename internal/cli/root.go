/*
PURPOSE:
  Defines the root Cobra command for the Tag Runner CLI.
  Handles global flags and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Logger format/level must be set before any subcommand logs.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/tag-runner/main.go
  - Calls: Child commands (run, profiles, list-models)
  - Modifies: output.Logger (via PersistentPreRunE).

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands, Root is usually empty or helps.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/tag-runner/main.go
  - internal/output/logger.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/daryltucker/tag-runner/internal/config"
	"github.com/daryltucker/tag-runner/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	logFormat string
	logLevel  string

	rootCmd = &cobra.Command{
		Use:   "tag-runner",
		Short: "Test harness for AI photo tagging with local Ollama vision models",
		Long: `Runs a fixed battery of tagging and description prompts against a local
Ollama vision model and saves every outcome as a JSON record for comparison.
Use 'run --help' for test options.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return output.Configure(os.Stderr, logFormat, logLevel)
		},
	}
)

// Execute executes the root command. Cancelling ctx aborts the current request.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads .env, the config file and TAG_RUNNER_* overrides, in that order.
func loadConfig() (*config.Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tag_runner.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
