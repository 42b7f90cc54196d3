package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/tubeq/tubeq/internal/utils"
)

var (
	db     *sql.DB
	dbPath string
	dbMu   sync.Mutex
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	channel      TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT '',
	destination  TEXT NOT NULL DEFAULT '',
	output_path  TEXT NOT NULL DEFAULT '',
	media_type   TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);

CREATE TABLE IF NOT EXISTS schedules (
	id           TEXT PRIMARY KEY,
	trigger_at   INTEGER NOT NULL,
	task         TEXT NOT NULL,
	recurrence   TEXT NOT NULL,
	status       TEXT NOT NULL,
	last_task_id TEXT NOT NULL DEFAULT ''
);
`

// Configure sets the database path. The database is opened lazily by GetDB.
func Configure(path string) {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db != nil && path != dbPath {
		_ = db.Close()
		db = nil
	}
	dbPath = path
}

// GetDB opens the configured database on first use and applies the schema.
func GetDB() (*sql.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db != nil {
		return db, nil
	}
	if dbPath == "" {
		return nil, fmt.Errorf("state database not configured")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; serialise through a single connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	utils.Debug("Opened state database %s", dbPath)
	db = conn
	return db, nil
}

// CloseDB closes the database if it is open.
func CloseDB() {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db != nil {
		_ = db.Close()
		db = nil
	}
}
