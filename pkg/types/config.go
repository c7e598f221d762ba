// Copyright Inkstone Tools, 2026. All rights reserved.

package types

import "fmt"

// DiscoveryConfig holds settings shared by every command that scans a
// markups directory.
type DiscoveryConfig struct {
	// MarkupsDir is the directory holding page-capture/annotation pairs,
	// conventionally <device>/.kobo/markups.
	MarkupsDir string `json:"markups_dir" yaml:"markups_dir"`

	// Recursive scans the whole tree below MarkupsDir instead of a single
	// directory level.
	Recursive bool `json:"recursive" yaml:"recursive"`
}

// ComposeConfig holds settings for a compositing run.
type ComposeConfig struct {
	DiscoveryConfig `yaml:",inline"`

	// DatabasePath is the optional path to the device's KoboReader.sqlite.
	// When empty or unopenable, output naming falls back to the content
	// identifier.
	DatabasePath string `json:"database_path,omitempty" yaml:"database_path,omitempty"`

	// OutputRoot is the directory composites are organized under. Created
	// if absent; failure to create or access it aborts the run before any
	// pair is processed.
	OutputRoot string `json:"output_root" yaml:"output_root"`

	// PageWidth and PageHeight optionally force the composite geometry by
	// resizing the page capture before compositing. Zero means native
	// page dimensions. Older device exports used a fixed 1264x1680 here.
	PageWidth  int `json:"page_width,omitempty" yaml:"page_width,omitempty"`
	PageHeight int `json:"page_height,omitempty" yaml:"page_height,omitempty"`

	// ReportPath, when set, persists the run outcome as a YAML report.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`
}

// FixedGeometry reports whether the run forces composite dimensions rather
// than following each page capture.
func (c ComposeConfig) FixedGeometry() bool {
	return c.PageWidth > 0 && c.PageHeight > 0
}

// Validate checks the settings a compositing run cannot start without.
func (c ComposeConfig) Validate() error {
	if c.MarkupsDir == "" {
		return fmt.Errorf("markups directory not set")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("output root not set")
	}
	if (c.PageWidth > 0) != (c.PageHeight > 0) {
		return fmt.Errorf("geometry needs both width and height, got %dx%d", c.PageWidth, c.PageHeight)
	}
	if c.PageWidth < 0 || c.PageHeight < 0 {
		return fmt.Errorf("geometry must be positive, got %dx%d", c.PageWidth, c.PageHeight)
	}
	return nil
}
