package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"list"},
	Short:   "List known model profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := cfg.Registry()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "AVAILABLE MODELS")
		for _, p := range reg.List() {
			fmt.Fprintf(w, "\n%s:\n", p.Name)
			fmt.Fprintf(w, "  Name: %s\n", p.Model)
			fmt.Fprintf(w, "  Description: %s\n", p.Description)
			fmt.Fprintf(w, "  Temperature: %g\n", p.Temperature)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
