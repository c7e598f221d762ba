// Copyright Inkstone Tools, 2026. All rights reserved.

// Package types defines shared data structures for the kobomark pipeline:
// the markup pair model produced by discovery, the labels produced by
// metadata resolution, and the per-stage configuration blocks.
package types

// MarkupPair is one complete page-capture/annotation pair discovered under
// the markups directory. Both paths exist and share the same base name,
// differing only in extension.
type MarkupPair struct {
	// BaseName is the shared file stem, e.g.
	// "c2b9bb51-4e85-4f96-a229-1788f9f37bb4".
	BaseName string `json:"base_name" yaml:"base_name"`

	// PagePath is the absolute or root-relative path to the page capture
	// (the device writes a JPEG screenshot of the annotated page).
	PagePath string `json:"page_path" yaml:"page_path"`

	// AnnotationPath is the path to the vector annotation layer (SVG).
	AnnotationPath string `json:"annotation_path" yaml:"annotation_path"`

	// ContentID is the device bookmark identifier derived from the base
	// name. Empty when the base name does not look like a bookmark ID;
	// resolution then falls back to identifier-based naming.
	ContentID string `json:"content_id,omitempty" yaml:"content_id,omitempty"`
}

// SkipKind classifies why a file group was not emitted as a MarkupPair.
type SkipKind string

const (
	// SkipIncomplete marks a group missing one side of the pair, e.g. a
	// page capture without an annotation layer. Informational, never an
	// error.
	SkipIncomplete SkipKind = "incomplete"

	// SkipAmbiguous marks a group with multiple candidates for one side,
	// e.g. duplicate extensions differing only in case.
	SkipAmbiguous SkipKind = "ambiguous"
)

// SkippedGroup records a file group the locator declined to pair, so runs
// can report exactly what was left behind.
type SkippedGroup struct {
	// BaseName is the shared file stem of the group.
	BaseName string `json:"base_name" yaml:"base_name"`

	// Kind is the skip classification.
	Kind SkipKind `json:"kind" yaml:"kind"`

	// Files lists the group members that were found, sorted.
	Files []string `json:"files" yaml:"files"`
}

// ResolvedLabel carries the human-readable naming for one markup pair,
// looked up from the device database or derived from the identifier when
// no database row matches.
type ResolvedLabel struct {
	// Title is the book title. Never empty: lookup failure falls back to
	// the sanitized content identifier.
	Title string `json:"title" yaml:"title"`

	// ChapterLabel is the title of the chapter or section containing the
	// annotated page. Empty when the database has no usable row; output
	// naming then uses the pair's base name.
	ChapterLabel string `json:"chapter_label,omitempty" yaml:"chapter_label,omitempty"`

	// PartStem is the spine item the annotation sits in, derived from the
	// content row's adobe_location (e.g. "part0012"). Report-only.
	PartStem string `json:"part_stem,omitempty" yaml:"part_stem,omitempty"`

	// PointLocation is the dotted reading-order position extracted from
	// the bookmark's StartContainerPath, e.g. ".4.10.1.3". Report-only.
	PointLocation string `json:"point_location,omitempty" yaml:"point_location,omitempty"`

	// Fallback reports whether identifier-derived naming was used instead
	// of database metadata.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}
