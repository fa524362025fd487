/*
PURPOSE:
  Defines the 'list-models' subcommand.
  Helps debug connectivity and model discovery.

REQUIREMENTS:
  User-specified:
  - List available models.

  Implementation-discovered:
  - Useful validation step before full run.
  - Marks which installed models match a known profile.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Probe() (via Engine)

ERROR HANDLING:
  - Returns error if URL incorrect or Ollama unreachable.

IMPLEMENTATION RULES:
  - Simple output to stdout.

USAGE:
  tag-runner list-models --url http://localhost:11434

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/probe.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/tag-runner/internal/engine"
)

var listURL string

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List models installed on the Ollama server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if listURL != "" {
			cfg.OllamaURL = listURL
		}
		reg, err := cfg.Registry()
		if err != nil {
			return err
		}

		e := engine.New(cfg)
		fmt.Fprintf(cmd.OutOrStdout(), "Querying %s...\n", e.BaseURL)
		models, err := e.Probe(cmd.Context())
		if err != nil {
			return err
		}

		kept, _ := engine.FilterInstalled(reg.List(), models)
		for _, m := range models {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", m)
		}
		for _, p := range kept {
			fmt.Fprintf(cmd.OutOrStdout(), "profile %s is installed (%s)\n", p.Name, p.Model)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
	listModelsCmd.Flags().StringVar(&listURL, "url", "", "Ollama base URL")
}
