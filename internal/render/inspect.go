// Copyright Inkstone Tools, 2026. All rights reserved.

package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// ErrUnsupportedElement marks annotation documents that use drawing
// primitives the scanline engine does not implement.
var ErrUnsupportedElement = errors.New("unsupported annotation element")

// supportedElements is the primitive set the rasterizer honors. Device
// firmware emits a small subset of this (paths, polylines and groups), so
// anything outside the set points at a hand-edited or foreign document.
var supportedElements = map[string]struct{}{
	"svg": {}, "g": {}, "defs": {}, "use": {},
	"path": {}, "rect": {}, "circle": {}, "ellipse": {},
	"line": {}, "polyline": {}, "polygon": {},
	"linearGradient": {}, "radialGradient": {}, "stop": {},
	"title": {}, "desc": {}, "metadata": {},
}

var elementQuery = xpath.MustCompile("//*")

// Stats summarizes the drawable content of one annotation document.
type Stats struct {
	// Elements counts occurrences per element name.
	Elements map[string]int `json:"elements" yaml:"elements"`
	// Strokes lists the distinct pen colors used, sorted.
	Strokes []string `json:"strokes,omitempty" yaml:"strokes,omitempty"`
	// Unsupported lists element names the rasterizer would reject, sorted.
	Unsupported []string `json:"unsupported,omitempty" yaml:"unsupported,omitempty"`
}

// Inspect parses an annotation document and reports which elements it uses.
// It never renders anything, so it also works on documents the rasterizer
// would reject.
func Inspect(path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("opening annotation: %w", err)
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return Stats{}, fmt.Errorf("parsing annotation %s: %w", filepath.Base(path), err)
	}

	stats := Stats{Elements: map[string]int{}}
	unsupported := map[string]struct{}{}
	strokes := map[string]struct{}{}
	for _, node := range xmlquery.QuerySelectorAll(doc, elementQuery) {
		name := node.Data
		stats.Elements[name]++
		if _, ok := supportedElements[name]; !ok {
			unsupported[name] = struct{}{}
		}
		if stroke := node.SelectAttr("stroke"); stroke != "" && stroke != "none" {
			strokes[stroke] = struct{}{}
		}
	}
	for name := range unsupported {
		stats.Unsupported = append(stats.Unsupported, name)
	}
	sort.Strings(stats.Unsupported)
	for color := range strokes {
		stats.Strokes = append(stats.Strokes, color)
	}
	sort.Strings(stats.Strokes)

	return stats, nil
}

// Validate reports whether an annotation document stays inside the
// supported primitive set.
func Validate(path string) error {
	stats, err := Inspect(path)
	if err != nil {
		return err
	}
	if len(stats.Unsupported) > 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedElement, strings.Join(stats.Unsupported, ", "))
	}
	return nil
}
