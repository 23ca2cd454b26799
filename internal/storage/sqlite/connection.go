package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// modernc.org/sqlite uses the "sqlite" driver name (not "sqlite3") - pure
	// Go, no cgo, the teacher's actual driver.
	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) the SQLite database at path and applies
// the pragmas the job store needs for safe concurrent access from the
// worker pool and the HTTP API.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// goqite and the job store both hit this database from many worker
	// goroutines; SQLite only supports one writer at a time so we keep a
	// single connection and let WAL + busy_timeout serialize the rest.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	return db, nil
}
