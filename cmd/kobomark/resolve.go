// Copyright Inkstone Tools, 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkstone-tools/kobomark/internal/metadata"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [bookmark-ids...]",
	Short: "Look up output names for bookmark identifiers",
	Long: `Resolve queries the device database for the book title, chapter label
and reading position behind each bookmark identifier, exactly as compose
would name the composite. Useful for checking what a markup belongs to
before running a batch.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().String("database", "", "path to the device's KoboReader.sqlite")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more bookmark identifiers")
	}

	dbPath := stringSetting(cmd, "database", "database_path")
	if dbPath == "" {
		return fmt.Errorf("database path not set")
	}
	store, err := metadata.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	unresolved := 0
	for _, id := range args {
		label, err := store.Resolve(cmd.Context(), id)
		if err != nil {
			fmt.Fprintf(os.Stdout, "%s: fallback to %q (%v)\n", id, label.Title, err)
			unresolved++
			continue
		}
		fmt.Fprintf(os.Stdout, "%s:\n  title:   %s\n", id, label.Title)
		if label.ChapterLabel != "" {
			fmt.Fprintf(os.Stdout, "  chapter: %s\n", label.ChapterLabel)
		}
		if label.PartStem != "" {
			fmt.Fprintf(os.Stdout, "  part:    %s\n", label.PartStem)
		}
		if label.PointLocation != "" {
			fmt.Fprintf(os.Stdout, "  point:   %s\n", label.PointLocation)
		}
	}

	if unresolved > 0 {
		return fmt.Errorf("%d identifier(s) not in database", unresolved)
	}
	return nil
}
