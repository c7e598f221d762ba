// Copyright Inkstone Tools, 2026. All rights reserved.

// Package render turns vector annotation documents into pixel layers
// matched to the page geometry. Rasterization runs in-process on a pure-Go
// scanline engine; no external renderer is shelled out to.
package render

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Rasterizer renders a vector annotation file onto a transparent layer of
// the given size. Implementations must return a layer whose bounds are
// exactly width x height.
type Rasterizer interface {
	Rasterize(path string, width, height int) (*image.RGBA, error)
}

// VectorRasterizer is the production Rasterizer. It parses annotation
// documents strictly, so drawing primitives the engine cannot honor fail
// the pair instead of producing a silently wrong composite.
type VectorRasterizer struct{}

// New returns a ready-to-use VectorRasterizer.
func New() *VectorRasterizer {
	return &VectorRasterizer{}
}

// Rasterize implements Rasterizer. The document's view box is stretched to
// the target geometry, matching how the device overlays annotations on the
// page raster it captured them against.
func (VectorRasterizer) Rasterize(path string, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid layer geometry %dx%d", width, height)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening annotation: %w", err)
	}
	defer f.Close()

	icon, err := oksvg.ReadIconStream(f, oksvg.StrictErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parsing annotation %s: %w", filepath.Base(path), err)
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	layer := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, layer, layer.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	return layer, nil
}
