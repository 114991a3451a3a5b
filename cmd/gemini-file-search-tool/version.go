package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of gemini-file-search-tool",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gemini-file-search-tool %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
