// Copyright Inkstone Tools, 2026. All rights reserved.

// Package sqlite selects a SQLite driver and exposes open helpers used by
// the metadata resolver and by test fixtures.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite, so the tool cross-compiles and
//     installs without a C toolchain.
//   - -tags cgo_sqlite (CGO_ENABLED=1): mattn/go-sqlite3.
//
// Use Open or OpenReadOnly instead of sql.Open so the driver name matches
// the build mode.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
)

// DriverName returns the database/sql driver name for the current build.
func DriverName() string {
	return driverName
}

// DriverType identifies the underlying implementation: "purego" for
// modernc.org/sqlite, "cgo" for mattn/go-sqlite3.
func DriverType() string {
	return driverType
}

// IsCGO reports whether the CGO implementation is in use.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a read-write SQLite database. Production code only reads the
// device database; this entry point exists for fixtures and tooling.
func Open(path string) (*sql.DB, error) {
	return sql.Open(driverName, fileURI(path, ""))
}

// OpenReadOnly opens a SQLite database in read-only mode. The device
// database is never written through this package.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, fileURI(path, "mode=ro"))
	if err != nil {
		return nil, fmt.Errorf("opening %s read-only: %w", path, err)
	}
	// sql.Open defers real work; force the file open so a missing or
	// unreadable database surfaces here rather than on first query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s read-only: %w", path, err)
	}
	return db, nil
}

// uriEscaper encodes the characters that break SQLite file: URI parsing.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// fileURI builds a file: DSN understood by both drivers.
func fileURI(path, query string) string {
	p := uriEscaper.Replace(filepath.ToSlash(path))
	if query == "" {
		return "file:" + p
	}
	return "file:" + p + "?" + query
}
