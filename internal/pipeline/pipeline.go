// Copyright Inkstone Tools, 2026. All rights reserved.

// Package pipeline drives a whole compose run: discover markup pairs,
// resolve names against the device database, rasterize annotation layers,
// blend them over the page rasters and write the composites out. One bad
// pair never aborts the batch; its failure is recorded and the run moves on.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/inkstone-tools/kobomark/internal/composite"
	"github.com/inkstone-tools/kobomark/internal/markups"
	"github.com/inkstone-tools/kobomark/internal/metadata"
	"github.com/inkstone-tools/kobomark/internal/output"
	"github.com/inkstone-tools/kobomark/internal/render"
	"github.com/inkstone-tools/kobomark/pkg/types"
)

// Stage names the pipeline step a pair last entered. Failures carry the
// stage so a report reader can tell a bad page raster from a bad database
// row without re-running anything.
type Stage string

const (
	StageResolving   Stage = "resolving"
	StageRasterizing Stage = "rasterizing"
	StageCompositing Stage = "compositing"
	StageWriting     Stage = "writing"
	StageDone        Stage = "done"
)

// PairResult records the outcome of one markup pair.
type PairResult struct {
	Pair       types.MarkupPair    `json:"pair" yaml:"pair"`
	Label      types.ResolvedLabel `json:"label" yaml:"label"`
	OutputPath string              `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Stage      Stage               `json:"stage" yaml:"stage"`
	Err        string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the pair stopped before reaching StageDone.
func (r PairResult) Failed() bool {
	return r.Err != ""
}

// RunResult summarizes a compose run.
type RunResult struct {
	Pairs         []PairResult         `json:"pairs" yaml:"pairs"`
	SkippedGroups []types.SkippedGroup `json:"skipped_groups,omitempty" yaml:"skipped_groups,omitempty"`
	Composited    int                  `json:"composited" yaml:"composited"`
	Failed        int                  `json:"failed" yaml:"failed"`
	Skipped       int                  `json:"skipped" yaml:"skipped"`
}

// Total returns the number of base names the run looked at.
func (r RunResult) Total() int {
	return r.Composited + r.Failed + r.Skipped
}

// HasFailures reports whether any pair failed.
func (r RunResult) HasFailures() bool {
	return r.Failed > 0
}

// Run processes every markup pair under cfg.MarkupsDir sequentially,
// printing per-pair status to w. It returns an error only for conditions
// that invalidate the whole run: an unreadable markups directory, an
// unusable output root, or context cancellation. Everything else is
// per-pair state in the result.
func Run(ctx context.Context, cfg types.ComposeConfig, resolver metadata.Resolver, rast render.Rasterizer, w io.Writer) (RunResult, error) {
	var result RunResult

	if err := cfg.Validate(); err != nil {
		return result, err
	}
	if !strings.Contains(filepath.ToSlash(cfg.MarkupsDir), ".kobo/markups") {
		fmt.Fprintf(w, "note: %s is not a conventional .kobo/markups directory\n", cfg.MarkupsDir)
	}

	pairs, skipped, err := markups.Scan(cfg.MarkupsDir, cfg.Recursive)
	if err != nil {
		return result, err
	}

	org, err := output.NewOrganizer(cfg.OutputRoot)
	if err != nil {
		return result, err
	}

	result.SkippedGroups = skipped
	result.Skipped = len(skipped)
	for _, group := range skipped {
		fmt.Fprintf(w, "skipped: %s (%s: %s)\n", group.BaseName, group.Kind, group.Files[0])
	}
	fmt.Fprintf(w, "Found %d markup pair(s) in %s\n", len(pairs), cfg.MarkupsDir)

	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(w, "\naborted after %d of %d pair(s)\n", i, len(pairs))
			return result, err
		}

		res := composePair(ctx, cfg, pair, resolver, rast, org, w)
		result.Pairs = append(result.Pairs, res)
		if res.Failed() {
			result.Failed++
			fmt.Fprintf(w, "[%d/%d] failed:  %s (%s: %s)\n", i+1, len(pairs), pair.BaseName, res.Stage, res.Err)
			continue
		}
		result.Composited++
		fmt.Fprintf(w, "[%d/%d] composited: %s -> %s\n", i+1, len(pairs), pair.BaseName, res.OutputPath)
	}

	fmt.Fprintf(w, "\nBatch summary: %d composited, %d failed, %d skipped (total: %d)\n",
		result.Composited, result.Failed, result.Skipped, result.Total())
	return result, nil
}

// composePair runs a single pair through all stages. It always returns a
// result; failures set Err and leave Stage at the step that broke.
func composePair(ctx context.Context, cfg types.ComposeConfig, pair types.MarkupPair, resolver metadata.Resolver, rast render.Rasterizer, org *output.Organizer, w io.Writer) PairResult {
	res := PairResult{Pair: pair, Stage: StageResolving}

	if pair.ContentID == "" {
		res.Label = metadata.FallbackLabel(pair.BaseName)
		fmt.Fprintf(w, "warning: %s has no device identity, naming by file stem\n", pair.BaseName)
	} else {
		label, err := resolver.Resolve(ctx, pair.ContentID)
		if err != nil {
			fmt.Fprintf(w, "warning: naming %s by identifier (%v)\n", pair.BaseName, err)
		}
		res.Label = label
	}

	res.Stage = StageRasterizing
	page, err := composite.Decode(pair.PagePath)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	if cfg.FixedGeometry() {
		if page.Bounds().Dx() != cfg.PageWidth || page.Bounds().Dy() != cfg.PageHeight {
			page = composite.Resize(page, cfg.PageWidth, cfg.PageHeight)
		}
	}

	layer, err := rast.Rasterize(pair.AnnotationPath, page.Bounds().Dx(), page.Bounds().Dy())
	if err != nil {
		res.Err = err.Error()
		return res
	}

	res.Stage = StageCompositing
	merged, err := composite.Overlay(page, layer)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	res.Stage = StageWriting
	dest, err := org.Write(res.Label, pair.BaseName, merged)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	res.OutputPath = dest
	res.Stage = StageDone
	return res
}
