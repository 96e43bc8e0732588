package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/suitemux"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of suitemux",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "suitemux version %s\n", strings.TrimSpace(suitemux.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
