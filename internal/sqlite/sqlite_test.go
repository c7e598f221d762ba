// Copyright Inkstone Tools, 2026. All rights reserved.

package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesAndQueries(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "scratch.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t (name) VALUES (?)`, "alpha")
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRow(`SELECT name FROM t WHERE id = 1`).Scan(&name))
	assert.Equal(t, "alpha", name)
}

func TestOpenReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.sqlite")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer ro.Close()

	var n int
	require.NoError(t, ro.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Zero(t, n)

	_, err = ro.Exec(`INSERT INTO t (id) VALUES (1)`)
	assert.Error(t, err)
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "nope.sqlite"))
	assert.Error(t, err)
}

func TestDriverIdentity(t *testing.T) {
	switch DriverType() {
	case "purego":
		assert.Equal(t, "sqlite", DriverName())
		assert.False(t, IsCGO())
	case "cgo":
		assert.Equal(t, "sqlite3", DriverName())
		assert.True(t, IsCGO())
	default:
		t.Fatalf("unexpected driver type %q", DriverType())
	}
}

func TestFileURI(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		query string
		want  string
	}{
		{"plain", "/tmp/db.sqlite", "", "file:/tmp/db.sqlite"},
		{"with query", "/tmp/db.sqlite", "mode=ro", "file:/tmp/db.sqlite?mode=ro"},
		{"question mark", "/tmp/a?b.sqlite", "", "file:/tmp/a%3Fb.sqlite"},
		{"percent", "/tmp/100%.sqlite", "mode=ro", "file:/tmp/100%25.sqlite?mode=ro"},
		{"hash", "/tmp/#1.sqlite", "", "file:/tmp/%231.sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fileURI(tt.path, tt.query))
		})
	}
}
