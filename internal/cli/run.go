/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the four-phase tagging test for one profile or all of them.

REQUIREMENTS:
  User-specified:
  - Run the tests against the default model, a chosen one, or all (--compare).
  - Specific flags for overrides.
  - Optional context hint for the last group phase.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config.
  - Profiles whose model is not installed are skipped with a warning.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine (Probe, DiscoverImages, Runner.RunAll)
  - Uses: internal/config, internal/metadata, internal/output

ERROR HANDLING:
  - Returns error if config load fails, Ollama is unreachable, or no
    profile or image is available.
  - Per-image failures never surface here; they live in the record.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Validate -> Probe -> Runner.RunAll.

USAGE:
  tag-runner run -m llava --context "Barcelona, summer 2024"

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/tag-runner/internal/config"
	"github.com/daryltucker/tag-runner/internal/engine"
	"github.com/daryltucker/tag-runner/internal/metadata"
	"github.com/daryltucker/tag-runner/internal/output"
	"github.com/daryltucker/tag-runner/internal/profile"
)

var (
	modelOverride   string
	compareAll      bool
	imagesOverride  string
	resultsOverride string
	urlOverride     string
	contextHint     string
	askContext      bool
	noCSV           bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tagging test suite",
	Long: `Runs the tagging test suite against a local Ollama vision model.
Each run executes four phases in order:
1. detailed_single: metadata and four prompt strategies on the first 3 images.
2. quick_all: metadata and short tags on every image.
3. group_no_context: per-image tags and one group call on the first 7 images.
4. group_with_context: the same on the remaining images, only with a context hint.

A failed request is recorded and the run continues. One JSON record (and a CSV
view) is written per model to the results directory.`,
	Example: `  # Run with the default model (uses tag_runner.yaml if present)
  tag-runner run

  # Use LLaVA and a different image directory
  tag-runner run -m llava --images ./holiday

  # Compare every known model, with a context hint for phase 4
  tag-runner run --compare --context "Vacation in Barcelona, summer 2024"

  # Ask for the context hint interactively
  tag-runner run --ask-context`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// 2. Overrides
		applyRunOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		reg, err := cfg.Registry()
		if err != nil {
			return err
		}
		selected, err := selectProfiles(reg, cfg.DefaultModel)
		if err != nil {
			return err
		}

		// 3. Reachability
		ctx := cmd.Context()
		e := engine.New(cfg)
		installed, err := e.Probe(ctx)
		if err != nil {
			return fmt.Errorf("%w (make sure Ollama is running: ollama serve)", err)
		}

		kept, missing := engine.FilterInstalled(selected, installed)
		for _, p := range missing {
			output.Logger.Warn("Model not found, skipping", "profile", p.Name, "model", p.Model, "hint", "ollama pull "+p.Model)
		}
		if len(kept) == 0 {
			return errors.New("no models available for testing")
		}

		// 4. Images
		images, err := engine.DiscoverImages(cfg.ImageDir, cfg.Extensions)
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return fmt.Errorf("%w in %s", engine.ErrNoImages, cfg.ImageDir)
		}

		// 5. Execution
		runner := engine.NewRunner(e, metadata.New(cfg.BaseDir), output.NewRunStore(cfg.ResultsDir, cfg.WriteCSV))
		switch {
		case contextHint != "":
			runner.Hint = engine.StaticHint(contextHint)
		case askContext:
			runner.Hint = newPromptHint(cmd.InOrStdin(), cmd.OutOrStdout())
		}

		results, runErr := runner.RunAll(ctx, kept, images)
		for _, r := range results {
			output.PrintSummary(cmd.OutOrStdout(), r.Run)
			if r.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nResults saved in: %s\n", r.Path)
			}
		}
		return runErr
	},
}

func applyRunOverrides(cfg *config.Config) {
	if imagesOverride != "" {
		cfg.ImageDir = imagesOverride
	}
	if resultsOverride != "" {
		cfg.ResultsDir = resultsOverride
	}
	if urlOverride != "" {
		cfg.OllamaURL = urlOverride
	}
	if modelOverride != "" {
		cfg.DefaultModel = modelOverride
	}
	if noCSV {
		cfg.WriteCSV = false
	}
}

// selectProfiles returns every profile in compare mode, otherwise the named one.
func selectProfiles(reg *profile.Registry, name string) ([]profile.Profile, error) {
	if compareAll {
		output.Logger.Info("Compare mode: testing all known models", "count", len(reg.Names()))
		return reg.List(), nil
	}
	p, err := reg.Resolve(name)
	if err != nil {
		return nil, err
	}
	return []profile.Profile{p}, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "Model profile to use (default from config, qwen3-vl:8b)")
	runCmd.Flags().BoolVarP(&compareAll, "compare", "c", false, "Run every known model profile in turn")
	runCmd.Flags().StringVar(&imagesOverride, "images", "", "Directory containing test images")
	runCmd.Flags().StringVar(&resultsOverride, "results", "", "Directory for result records")
	runCmd.Flags().StringVar(&urlOverride, "url", "", "Ollama base URL")
	runCmd.Flags().StringVar(&contextHint, "context", "", "Context hint for the group_with_context phase")
	runCmd.Flags().BoolVar(&askContext, "ask-context", false, "Prompt for the context hint on stdin")
	runCmd.Flags().BoolVar(&noCSV, "no-csv", false, "Do not write the CSV view of each record")
	runCmd.MarkFlagsMutuallyExclusive("model", "compare")
	runCmd.MarkFlagsMutuallyExclusive("context", "ask-context")
}
