// Command cfbcontrast runs the change-from-baseline contrast analysis
// from a configuration file and renders the results.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cfbcontrast",
	Short: "Change-from-baseline treatment contrast analysis",
	Long: `cfbcontrast loads a clinical measurement dataset, derives change
from baseline per subject, fits a mixed model with treatment, visit and
subgroup interactions, and reports the treatment-vs-placebo contrast at
each visit and subgroup level.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
