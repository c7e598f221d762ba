package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkstone-tools/kobomark/internal/sqlite"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of kobomark",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kobomark %s (sqlite driver: %s)\n", version, sqlite.DriverType())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
