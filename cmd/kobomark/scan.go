// Copyright Inkstone Tools, 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/inkstone-tools/kobomark/internal/markups"
	"github.com/inkstone-tools/kobomark/internal/render"
	"github.com/inkstone-tools/kobomark/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List markup pairs without compositing anything",
	Long: `Scan walks the markups directory and reports which page captures and
annotation files pair up, which base names are incomplete or ambiguous,
and (with --stats) what each annotation actually draws. Nothing is
written; scan is the dry run for compose.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("markups", "", "directory holding markup pairs (e.g. <device>/.kobo/markups)")
	scanCmd.Flags().Bool("recursive", false, "descend into subdirectories of the markups directory")
	scanCmd.Flags().Bool("stats", false, "inspect each annotation and report its element usage")
	scanCmd.Flags().Bool("json", false, "emit the scan as JSON instead of text")

	rootCmd.AddCommand(scanCmd)
}

// scanOutput is the JSON document emitted by scan --json.
type scanOutput struct {
	Pairs   []types.MarkupPair      `json:"pairs"`
	Skipped []types.SkippedGroup    `json:"skipped,omitempty"`
	Stats   map[string]render.Stats `json:"stats,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := stringSetting(cmd, "markups", "markups_dir")
	recursive := boolSetting(cmd, "recursive", "recursive")
	withStats, _ := cmd.Flags().GetBool("stats")
	asJSON, _ := cmd.Flags().GetBool("json")

	if dir == "" {
		return fmt.Errorf("markups directory not set")
	}

	pairs, skipped, err := markups.Scan(dir, recursive)
	if err != nil {
		return err
	}

	var stats map[string]render.Stats
	if withStats {
		stats = make(map[string]render.Stats, len(pairs))
		for _, pair := range pairs {
			st, err := render.Inspect(pair.AnnotationPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %s: %v\n", pair.BaseName, err)
				continue
			}
			stats[pair.BaseName] = st
		}
	}

	if asJSON {
		out := scanOutput{Pairs: pairs, Skipped: skipped, Stats: stats}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling scan: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	for _, pair := range pairs {
		fmt.Fprintf(os.Stdout, "pair: %s (%s + %s)\n", pair.BaseName, pair.PagePath, pair.AnnotationPath)
		if st, ok := stats[pair.BaseName]; ok {
			fmt.Fprintf(os.Stdout, "  elements: %s\n", formatElements(st.Elements))
			if len(st.Unsupported) > 0 {
				fmt.Fprintf(os.Stdout, "  warning: unsupported elements: %v\n", st.Unsupported)
			}
		}
	}
	for _, group := range skipped {
		fmt.Fprintf(os.Stdout, "skipped: %s (%s: %s)\n", group.BaseName, group.Kind, group.Files[0])
	}
	fmt.Fprintf(os.Stdout, "\n%d pair(s), %d skipped group(s)\n", len(pairs), len(skipped))
	return nil
}

// formatElements renders an element histogram as "path=12 g=1", sorted by
// element name so output is stable.
func formatElements(elements map[string]int) string {
	names := make([]string, 0, len(elements))
	for name := range elements {
		names = append(names, name)
	}
	sort.Strings(names)

	out := ""
	for i, name := range names {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", name, elements[name])
	}
	return out
}
