// Copyright Inkstone Tools, 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkstone-tools/kobomark/internal/metadata"
	"github.com/inkstone-tools/kobomark/internal/render"
	"github.com/inkstone-tools/kobomark/pkg/types"
)

const (
	bookmarkA = "aa06c2d1-7f3a-4e01-9c44-0c2f6f8d1001"
	bookmarkB = "bb17d3e2-8a4b-4f12-8d55-1d3a7a9e2002"
	bookmarkC = "cc28e4f3-9b5c-4023-9e66-2e4b8baf3003"
)

// fakeRasterizer paints one semi-transparent pixel, or fails for selected
// base names, and remembers the last geometry it was asked for.
type fakeRasterizer struct {
	failOn       map[string]bool
	lastW, lastH int
}

func (f *fakeRasterizer) Rasterize(path string, w, h int) (*image.RGBA, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if f.failOn[base] {
		return nil, errors.New("scanline engine exploded")
	}
	f.lastW, f.lastH = w, h
	layer := image.NewRGBA(image.Rect(0, 0, w, h))
	layer.SetRGBA(0, 0, color.RGBA{R: 0x80, A: 0x80})
	return layer, nil
}

// fakeResolver serves canned labels and falls back like the real store.
type fakeResolver struct {
	labels map[string]types.ResolvedLabel
}

func (f fakeResolver) Resolve(_ context.Context, contentID string) (types.ResolvedLabel, error) {
	if label, ok := f.labels[contentID]; ok {
		return label, nil
	}
	return metadata.FallbackLabel(contentID), fmt.Errorf("bookmark %s not in database", contentID)
}

func writePage(t *testing.T, dir, base string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		}
	}
	f, err := os.Create(filepath.Join(dir, base+".jpg"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

func writeAnnotation(t *testing.T, dir, base, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, base+".svg"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

const plainSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="8" height="8">` +
	`<path d="M0 0 L4 4"/></svg>`

func writePair(t *testing.T, dir, base string) {
	t.Helper()
	writePage(t, dir, base, 8, 8)
	writeAnnotation(t, dir, base, plainSVG)
}

func testConfig(t *testing.T) types.ComposeConfig {
	t.Helper()
	cfg := types.ComposeConfig{OutputRoot: filepath.Join(t.TempDir(), "out")}
	cfg.MarkupsDir = t.TempDir()
	return cfg
}

func TestRunComposesAllPairs(t *testing.T) {
	cfg := testConfig(t)
	writePair(t, cfg.MarkupsDir, bookmarkA)
	writePair(t, cfg.MarkupsDir, bookmarkB)

	resolver := fakeResolver{labels: map[string]types.ResolvedLabel{
		bookmarkA: {Title: "The Long Field", ChapterLabel: "Chapter 3"},
		bookmarkB: {Title: "The Long Field", ChapterLabel: "Chapter 7"},
	}}

	var buf bytes.Buffer
	result, err := Run(context.Background(), cfg, resolver, &fakeRasterizer{}, &buf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Composited != 2 || result.Failed != 0 || result.Skipped != 0 {
		t.Fatalf("counters = %d/%d/%d, want 2/0/0", result.Composited, result.Failed, result.Skipped)
	}
	if result.HasFailures() {
		t.Error("HasFailures() = true for a clean run")
	}

	for _, chapter := range []string{"Chapter 3", "Chapter 7"} {
		path := filepath.Join(cfg.OutputRoot, "The Long Field", chapter+".png")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing composite %s: %v", path, err)
		}
	}

	first := result.Pairs[0]
	if first.Stage != StageDone || first.Failed() || first.OutputPath == "" {
		t.Errorf("first pair result = %+v, want done with output path", first)
	}
	log := buf.String()
	if !strings.Contains(log, "[2/2] composited:") {
		t.Errorf("log missing progress line:\n%s", log)
	}
	if !strings.Contains(log, "Batch summary: 2 composited, 0 failed, 0 skipped (total: 2)") {
		t.Errorf("log missing summary:\n%s", log)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	cfg := testConfig(t)
	writePair(t, cfg.MarkupsDir, bookmarkA)
	writePair(t, cfg.MarkupsDir, bookmarkB)
	writePair(t, cfg.MarkupsDir, bookmarkC)

	resolver := fakeResolver{labels: map[string]types.ResolvedLabel{
		bookmarkA: {Title: "Book", ChapterLabel: "One"},
		bookmarkB: {Title: "Book", ChapterLabel: "Two"},
		bookmarkC: {Title: "Book", ChapterLabel: "Three"},
	}}
	rast := &fakeRasterizer{failOn: map[string]bool{bookmarkB: true}}

	var buf bytes.Buffer
	result, err := Run(context.Background(), cfg, resolver, rast, &buf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Composited != 2 || result.Failed != 1 {
		t.Fatalf("counters = %d composited, %d failed, want 2, 1", result.Composited, result.Failed)
	}
	if !result.HasFailures() {
		t.Error("HasFailures() = false with a failed pair")
	}

	failed := result.Pairs[1]
	if failed.Stage != StageRasterizing || failed.Err == "" {
		t.Errorf("failed pair = %+v, want rasterizing-stage error", failed)
	}
	for _, chapter := range []string{"One", "Three"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputRoot, "Book", chapter+".png")); err != nil {
			t.Errorf("surviving composite missing: %v", err)
		}
	}
	if !strings.Contains(buf.String(), "failed:  "+bookmarkB) {
		t.Errorf("log missing failure line:\n%s", buf.String())
	}
}

func TestRunFallbackNaming(t *testing.T) {
	cfg := testConfig(t)
	writePair(t, cfg.MarkupsDir, "page007")

	var buf bytes.Buffer
	result, err := Run(context.Background(), cfg, metadata.Nop{}, &fakeRasterizer{}, &buf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := filepath.Join(cfg.OutputRoot, "page007", "page007.png")
	if result.Pairs[0].OutputPath != want {
		t.Errorf("output = %s, want %s", result.Pairs[0].OutputPath, want)
	}
	if !result.Pairs[0].Label.Fallback {
		t.Error("label should be marked as fallback")
	}
	if !strings.Contains(buf.String(), "warning: page007 has no device identity") {
		t.Errorf("log missing fallback warning:\n%s", buf.String())
	}
}

func TestRunNeverOverwrites(t *testing.T) {
	cfg := testConfig(t)
	writePair(t, cfg.MarkupsDir, bookmarkA)
	resolver := fakeResolver{labels: map[string]types.ResolvedLabel{
		bookmarkA: {Title: "Book", ChapterLabel: "Notes"},
	}}

	var buf bytes.Buffer
	if _, err := Run(context.Background(), cfg, resolver, &fakeRasterizer{}, &buf); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	second, err := Run(context.Background(), cfg, resolver, &fakeRasterizer{}, &buf)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if got := second.Pairs[0].OutputPath; got != filepath.Join(cfg.OutputRoot, "Book", "Notes_2.png") {
		t.Errorf("second run output = %s, want Notes_2.png", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputRoot, "Book", "Notes.png")); err != nil {
		t.Errorf("first composite was disturbed: %v", err)
	}
}

func TestRunReportsSkippedGroups(t *testing.T) {
	cfg := testConfig(t)
	writePair(t, cfg.MarkupsDir, bookmarkA)
	writePage(t, cfg.MarkupsDir, "orphan", 4, 4)

	resolver := fakeResolver{labels: map[string]types.ResolvedLabel{
		bookmarkA: {Title: "Book", ChapterLabel: "One"},
	}}

	var buf bytes.Buffer
	result, err := Run(context.Background(), cfg, resolver, &fakeRasterizer{}, &buf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Skipped != 1 || len(result.SkippedGroups) != 1 {
		t.Fatalf("skipped = %d (%d groups), want 1", result.Skipped, len(result.SkippedGroups))
	}
	if result.SkippedGroups[0].Kind != types.SkipIncomplete {
		t.Errorf("skip kind = %s, want %s", result.SkippedGroups[0].Kind, types.SkipIncomplete)
	}
	if !strings.Contains(buf.String(), "skipped: orphan") {
		t.Errorf("log missing skip line:\n%s", buf.String())
	}
}

func TestRunForcedGeometry(t *testing.T) {
	cfg := testConfig(t)
	cfg.PageWidth, cfg.PageHeight = 16, 16
	writePair(t, cfg.MarkupsDir, bookmarkA)

	rast := &fakeRasterizer{}
	var buf bytes.Buffer
	result, err := Run(context.Background(), cfg, metadata.Nop{}, rast, &buf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rast.lastW != 16 || rast.lastH != 16 {
		t.Errorf("layer geometry = %dx%d, want 16x16", rast.lastW, rast.lastH)
	}
	img := decodePNG(t, result.Pairs[0].OutputPath)
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("composite bounds = %v, want 16x16", img.Bounds())
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	writePair(t, cfg.MarkupsDir, bookmarkA)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	result, err := Run(ctx, cfg, metadata.Nop{}, &fakeRasterizer{}, &buf)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if result.Composited != 0 {
		t.Errorf("composited = %d after immediate cancel", result.Composited)
	}
	if !strings.Contains(buf.String(), "aborted after 0 of 1") {
		t.Errorf("log missing abort notice:\n%s", buf.String())
	}
}

func TestRunValidatesConfig(t *testing.T) {
	var buf bytes.Buffer
	_, err := Run(context.Background(), types.ComposeConfig{}, metadata.Nop{}, &fakeRasterizer{}, &buf)
	if err == nil {
		t.Fatal("Run() with empty config should fail")
	}
}

// TestRunRealRasterizer drives the production scanline engine end to end.
func TestRunRealRasterizer(t *testing.T) {
	cfg := testConfig(t)
	writePage(t, cfg.MarkupsDir, bookmarkA, 8, 8)
	writeAnnotation(t, cfg.MarkupsDir, bookmarkA,
		`<svg xmlns="http://www.w3.org/2000/svg" width="8" height="8" viewBox="0 0 8 8">`+
			`<rect x="0" y="0" width="4" height="8" fill="#FF0000"/></svg>`)

	var buf bytes.Buffer
	result, err := Run(context.Background(), cfg, metadata.Nop{}, render.New(), &buf)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Composited != 1 {
		t.Fatalf("composited = %d, want 1\n%s", result.Composited, buf.String())
	}

	img := decodePNG(t, result.Pairs[0].OutputPath)
	r, g, _, a := img.At(1, 1).RGBA()
	if a != 0xffff || r < 0xf000 || g > 0x2000 {
		t.Errorf("inked pixel = r=%#x g=%#x a=%#x, want opaque red", r, g, a)
	}
	_, g, _, _ = img.At(6, 6).RGBA()
	if g < 0xf000 {
		t.Errorf("clean pixel g=%#x, want near-white page", g)
	}
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	return img
}
