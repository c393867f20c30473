package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd prints the priceowl version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version of the priceowl binary.",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("priceowl %s\n", Version)
	},
}
