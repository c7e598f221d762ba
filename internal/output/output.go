// Copyright Inkstone Tools, 2026. All rights reserved.

// Package output lays finished composites out on disk, one directory per
// book, one PNG per markup. Writes are atomic: the encoder targets a temp
// file in the destination directory which is renamed into place, so a
// crashed run never leaves a truncated composite behind.
package output

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/inkstone-tools/kobomark/pkg/types"
)

// maxSegmentRunes bounds a sanitized path segment well under common
// filesystem name limits, leaving room for the extension and a collision
// suffix.
const maxSegmentRunes = 120

// reservedChars replaces path separators and characters reserved on common
// filesystems.
var reservedChars = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-",
)

// Sanitize converts a resolved title or chapter label into a single safe
// path segment. Input that sanitizes to nothing becomes "Untitled".
func Sanitize(name string) string {
	s := norm.NFC.String(name)
	s = reservedChars.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '-'
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	if runes := []rune(s); len(runes) > maxSegmentRunes {
		s = string(runes[:maxSegmentRunes])
	}
	s = strings.Trim(s, ". ")
	if s == "" {
		return "Untitled"
	}
	return s
}

// Organizer writes composites under a single output root.
type Organizer struct {
	root string
}

// NewOrganizer validates the output root, creating it if missing.
func NewOrganizer(root string) (*Organizer, error) {
	if root == "" {
		return nil, errors.New("output root not set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating output root: %w", err)
	}
	return &Organizer{root: root}, nil
}

// Root returns the organizer's output root.
func (o *Organizer) Root() string {
	return o.root
}

// Write encodes the composite as a lossless PNG at
//
//	<root>/<sanitized title>/<sanitized chapter label or base name>.png
//
// and returns the final path. When the preferred name is already taken the
// file gets a numeric suffix (_2, _3, ...) instead of overwriting an
// earlier composite.
func (o *Organizer) Write(label types.ResolvedLabel, baseName string, img image.Image) (string, error) {
	dir := filepath.Join(o.root, Sanitize(label.Title))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating book directory: %w", err)
	}

	stem := label.ChapterLabel
	if stem == "" {
		stem = baseName
	}
	stem = Sanitize(stem)

	dest := filepath.Join(dir, stem+".png")
	for n := 2; ; n++ {
		_, err := os.Stat(dest)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("probing %s: %w", filepath.Base(dest), err)
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d.png", stem, n))
	}

	tmpFile, err := os.CreateTemp(dir, ".kobomark-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	encodeErr := png.Encode(tmpFile, img)
	closeErr := tmpFile.Close()
	if encodeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("encoding composite: %w", encodeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return dest, nil
}
