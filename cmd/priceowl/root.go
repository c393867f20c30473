package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	priceowllog "github.com/davetashner/priceowl/internal/log"
)

// Global flag values.
var (
	verbose bool
	quiet   bool
	noColor bool
)

// rootCmd is the base command for priceowl.
var rootCmd = &cobra.Command{
	Use:   "priceowl",
	Short: "Match product listings across sources and find the best price",
	Long: `Priceowl compares product listings scraped from different shopping sites.
It normalizes names and prices, matches listings that describe the same
product (textually, or semantically via a language model), and reports the
savings opportunity per product group.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		priceowllog.Setup(verbose, quiet)
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(versionCmd)
}
