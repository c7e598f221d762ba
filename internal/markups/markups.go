// Copyright Inkstone Tools, 2026. All rights reserved.

// Package markups discovers page-capture/annotation pairs in a device
// markups directory. Discovery is a standalone step producing typed pairs
// so it can be tested and reported on without running the compositor.
package markups

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/inkstone-tools/kobomark/pkg/types"
)

// The device stores one JPEG page capture and one SVG annotation layer per
// markup, sharing the bookmark ID as file stem.
const (
	pageExt       = ".jpg"
	annotationExt = ".svg"
)

// groupKey identifies a candidate pair: files must sit in the same
// directory and share a base name to belong together.
type groupKey struct {
	dir  string
	base string
}

// group collects the candidate files for one key, split by side.
type group struct {
	pages       []string
	annotations []string
}

// Scan enumerates regular files under root, groups them by directory and
// base name, and returns every complete pair plus a record for each group
// that was left behind. By default only the top level is scanned, matching
// the flat layout the device writes; recursive walks the whole tree.
//
// Pairs are ordered lexicographically by page path and skips by base name,
// so repeated runs over the same tree process and report in the same order.
// Only a root that cannot be read at all is an error; everything else is
// data.
func Scan(root string, recursive bool) ([]types.MarkupPair, []types.SkippedGroup, error) {
	groups := make(map[groupKey]*group)

	collect := func(dir, name string) {
		ext := strings.ToLower(filepath.Ext(name))
		if ext != pageExt && ext != annotationExt {
			return
		}
		key := groupKey{dir: dir, base: strings.TrimSuffix(name, filepath.Ext(name))}
		g := groups[key]
		if g == nil {
			g = &group{}
			groups[key] = g
		}
		path := filepath.Join(dir, name)
		if ext == pageExt {
			g.pages = append(g.pages, path)
		} else {
			g.annotations = append(g.annotations, path)
		}
	}

	if recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subtrees are skipped; only the root is fatal.
				if path == root {
					return err
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			collect(filepath.Dir(path), d.Name())
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, nil, fmt.Errorf("scanning %s: %w", root, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !entry.Type().IsRegular() {
				continue
			}
			collect(root, entry.Name())
		}
	}

	var pairs []types.MarkupPair
	var skips []types.SkippedGroup

	for key, g := range groups {
		if len(g.pages) == 1 && len(g.annotations) == 1 {
			pairs = append(pairs, types.MarkupPair{
				BaseName:       key.base,
				PagePath:       g.pages[0],
				AnnotationPath: g.annotations[0],
				ContentID:      ContentID(key.base),
			})
			continue
		}

		files := append(append([]string{}, g.pages...), g.annotations...)
		sort.Strings(files)
		kind := types.SkipIncomplete
		if len(g.pages) > 1 || len(g.annotations) > 1 {
			kind = types.SkipAmbiguous
		}
		skips = append(skips, types.SkippedGroup{
			BaseName: key.base,
			Kind:     kind,
			Files:    files,
		})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].PagePath < pairs[j].PagePath })
	sort.Slice(skips, func(i, j int) bool {
		if skips[i].BaseName != skips[j].BaseName {
			return skips[i].BaseName < skips[j].BaseName
		}
		return skips[i].Files[0] < skips[j].Files[0]
	})

	return pairs, skips, nil
}

// ContentID derives the device bookmark identifier from a file stem. The
// device names both sides of a markup after the Bookmark row's UUID, so a
// stem that parses as a UUID is the lookup key; anything else (renamed or
// foreign files) yields no identifier and resolution falls back to the
// stem itself.
func ContentID(baseName string) string {
	if _, err := uuid.Parse(baseName); err != nil {
		return ""
	}
	return baseName
}
