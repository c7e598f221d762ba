// Copyright Inkstone Tools, 2026. All rights reserved.

// Package composite decodes page rasters and blends annotation layers over
// them. All work happens on in-memory RGBA buffers; encoding the result is
// the output package's concern.
package composite

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // page rasters are JPEG
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// ErrDimensionMismatch reports a layer whose geometry differs from the page
// it should cover. Callers treat it as a per-pair failure.
var ErrDimensionMismatch = errors.New("layer geometry does not match page")

// Decode loads a page raster from disk and normalizes it to RGBA so the
// blend and encode stages work on one pixel format.
func Decode(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding page %s: %w", filepath.Base(path), err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}

// Overlay alpha-blends the annotation layer over the page and returns the
// result as a new image. Neither input is modified. The layer must match
// the page pixel-for-pixel; scaling decisions belong to the caller.
func Overlay(page, layer *image.RGBA) (*image.RGBA, error) {
	pw, ph := page.Bounds().Dx(), page.Bounds().Dy()
	lw, lh := layer.Bounds().Dx(), layer.Bounds().Dy()
	if pw != lw || ph != lh {
		return nil, fmt.Errorf("%w: page %dx%d, layer %dx%d", ErrDimensionMismatch, pw, ph, lw, lh)
	}

	out := image.NewRGBA(image.Rect(0, 0, pw, ph))
	draw.Draw(out, out.Bounds(), page, page.Bounds().Min, draw.Src)
	draw.Draw(out, out.Bounds(), layer, layer.Bounds().Min, draw.Over)
	return out, nil
}

// Resize scales an image to the given geometry with Catmull-Rom resampling,
// which keeps ink strokes crisp at the cost of a little speed.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
