// Copyright Inkstone Tools, 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkstone-tools/kobomark/internal/metadata"
	"github.com/inkstone-tools/kobomark/internal/pipeline"
	"github.com/inkstone-tools/kobomark/internal/render"
	"github.com/inkstone-tools/kobomark/pkg/types"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Composite markup pairs into annotated PNGs",
	Long: `Compose scans the markups directory for page-capture/annotation pairs,
renders each annotation over its page, and writes one PNG per markup under
the output root, grouped by book title. A pair that cannot be composited
is reported and the batch moves on; existing output files are never
overwritten.

Without --database, composites are named after their markup identifiers.`,
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().String("markups", "", "directory holding markup pairs (e.g. <device>/.kobo/markups)")
	composeCmd.Flags().String("database", "", "path to the device's KoboReader.sqlite (optional)")
	composeCmd.Flags().String("output", "", "directory to organize composites under")
	composeCmd.Flags().Bool("recursive", false, "descend into subdirectories of the markups directory")
	composeCmd.Flags().String("geometry", "", "force composite geometry as WxH (e.g. 1264x1680); default is native page size")
	composeCmd.Flags().String("report", "", "write a YAML run report to this path")

	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg := types.ComposeConfig{
		DatabasePath: stringSetting(cmd, "database", "database_path"),
		OutputRoot:   stringSetting(cmd, "output", "output_root"),
		ReportPath:   stringSetting(cmd, "report", "report_path"),
	}
	cfg.MarkupsDir = stringSetting(cmd, "markups", "markups_dir")
	cfg.Recursive = boolSetting(cmd, "recursive", "recursive")

	geometry := stringSetting(cmd, "geometry", "geometry")
	w, h, err := parseGeometry(geometry)
	if err != nil {
		return err
	}
	cfg.PageWidth, cfg.PageHeight = w, h

	resolver, cleanup := openResolver(cfg.DatabasePath)
	defer cleanup()

	result, err := pipeline.Run(cmd.Context(), cfg, resolver, render.New(), os.Stdout)
	if err != nil {
		return err
	}

	if cfg.ReportPath != "" {
		if err := pipeline.WriteReport(cfg.ReportPath, cfg, result); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Report written to", cfg.ReportPath)
	}

	// Per-pair failures are already in the summary; only conditions that
	// stopped the whole run exit non-zero.
	if result.HasFailures() {
		fmt.Fprintf(os.Stderr, "%d markup pair(s) failed, see summary above\n", result.Failed)
	}
	return nil
}

// openResolver opens the device database when one is configured. An
// unopenable database degrades to identifier naming instead of aborting
// the run.
func openResolver(dbPath string) (metadata.Resolver, func()) {
	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "No database configured, naming composites by identifier")
		return metadata.Nop{}, func() {}
	}
	store, err := metadata.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open database (%v), naming composites by identifier\n", err)
		return metadata.Nop{}, func() {}
	}
	return store, func() { _ = store.Close() }
}

// parseGeometry parses a WxH value such as "1264x1680". Empty input keeps
// native page dimensions.
func parseGeometry(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("geometry %q: want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("geometry width %q: %w", ws, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("geometry height %q: %w", hs, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("geometry %q: dimensions must be positive", s)
	}
	return w, h, nil
}
