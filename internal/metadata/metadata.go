// Copyright Inkstone Tools, 2026. All rights reserved.

// Package metadata resolves device bookmark identifiers to book titles and
// chapter labels using the reader's KoboReader.sqlite database. The
// database is opened once per run, read-only, and every lookup failure
// degrades to identifier-based naming instead of failing the pair.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/inkstone-tools/kobomark/internal/sqlite"
	"github.com/inkstone-tools/kobomark/pkg/types"
)

// Resolver maps a content identifier to the label used for output naming.
// The returned label is always usable; a non-nil error only explains why
// fallback naming was chosen.
type Resolver interface {
	Resolve(ctx context.Context, contentID string) (types.ResolvedLabel, error)
}

// Store is a read-only handle on the device database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the device database read-only. The file is probed immediately
// so a missing or unreadable database surfaces to the caller, which may
// still choose to continue with fallback naming.
func Open(dbPath string) (*Store, error) {
	db, err := sqlite.OpenReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path the store was opened on.
func (s *Store) Path() string {
	return s.path
}

// pointPattern extracts the reading-order point from a bookmark's
// StartContainerPath, e.g. "span#kobo\.31\.1 … point(/1/4/10/3:42)".
var pointPattern = regexp.MustCompile(`point\((/[\d/]+:\d+)\)`)

// pointCleaner converts a raw point location into the dotted form used in
// reports, e.g. "/1/4/10/3:42" -> ".1.4.10.3.42".
var pointCleaner = strings.NewReplacer("/", ".", ":", ".")

// Resolve looks up the book title and chapter label for a bookmark ID.
//
// The Bookmark row supplies the owning volume and the raw position; the
// joined content row supplies the chapter title and spine location. A
// missing bookmark row, an unusable VolumeID, or any query failure falls
// back to the identifier itself as title. A resolved title with a missing
// chapter row is not a failure: the chapter label is simply absent and
// output naming uses the pair's base name.
func (s *Store) Resolve(ctx context.Context, contentID string) (types.ResolvedLabel, error) {
	if contentID == "" {
		return FallbackLabel(contentID), errors.New("no content identifier on pair")
	}

	var volumeID, startPath sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT VolumeID, StartContainerPath FROM Bookmark WHERE BookmarkID = ?`,
		contentID,
	).Scan(&volumeID, &startPath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FallbackLabel(contentID), fmt.Errorf("bookmark %s not in database", contentID)
		}
		return FallbackLabel(contentID), fmt.Errorf("querying bookmark %s: %w", contentID, err)
	}

	title := titleFromVolumeID(volumeID.String)
	if title == "" {
		return FallbackLabel(contentID), fmt.Errorf("bookmark %s has no usable volume", contentID)
	}

	label := types.ResolvedLabel{Title: title}
	if m := pointPattern.FindStringSubmatch(startPath.String); m != nil {
		label.PointLocation = pointCleaner.Replace(m[1])
	}

	// Chapter metadata is best-effort: a straggling bookmark whose content
	// row is gone still composites under the resolved title.
	var chapter, adobeLocation sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT Title, adobe_location FROM content
		 WHERE ContentID = (SELECT ContentID FROM Bookmark WHERE BookmarkID = ?)`,
		contentID,
	).Scan(&chapter, &adobeLocation)
	if err == nil {
		label.ChapterLabel = strings.TrimSpace(chapter.String)
		label.PartStem = stemFromLocation(adobeLocation.String)
	}

	return label, nil
}

// FallbackLabel builds the identifier-derived label used when the database
// is absent or has no usable row for the pair.
func FallbackLabel(contentID string) types.ResolvedLabel {
	title := strings.TrimSpace(contentID)
	if title == "" {
		title = "unknown"
	}
	return types.ResolvedLabel{Title: title, Fallback: true}
}

// titleFromVolumeID extracts a display title from a Bookmark.VolumeID such
// as "file:///mnt/onboard/Jane Doe - The Long Field.epub".
func titleFromVolumeID(volumeID string) string {
	if volumeID == "" {
		return ""
	}
	base := path.Base(strings.TrimRight(volumeID, "/"))
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSpace(base)
}

// stemFromLocation extracts the spine item stem from a content row's
// adobe_location, e.g. "OEBPS/part0012.html" -> "part0012".
func stemFromLocation(location string) string {
	if location == "" {
		return ""
	}
	base := path.Base(location)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Nop is a Resolver for runs without a configured database: every pair
// resolves to its identifier-derived fallback label.
type Nop struct{}

// Resolve implements Resolver using fallback naming only.
func (Nop) Resolve(_ context.Context, contentID string) (types.ResolvedLabel, error) {
	return FallbackLabel(contentID), nil
}
