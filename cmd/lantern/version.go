package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/lantern"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lantern",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lantern version %s\n", strings.TrimSpace(lantern.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
