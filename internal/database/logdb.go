package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// LogDB wraps the append-only execution log database. Kept on a separate
// file so audit writes never contend with operational writes.
type LogDB struct {
	conn *sql.DB
	path string
}

// NewLogDB opens (creating if needed) the execution log database
func NewLogDB(dbPath string) (*LogDB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open log database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping log database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS execution_logs (
		id            TEXT PRIMARY KEY,
		sku           TEXT NOT NULL,
		platform      TEXT NOT NULL,
		account_id    TEXT NOT NULL,
		success       INTEGER NOT NULL,
		listing_id    TEXT NOT NULL DEFAULT '',
		error_type    TEXT NOT NULL DEFAULT '',
		error_code    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		retry_count   INTEGER NOT NULL DEFAULT 0,
		executed_at   TEXT NOT NULL
	)`
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create execution_logs table: %w", err)
	}
	if _, err := conn.Exec(`CREATE INDEX IF NOT EXISTS idx_execution_logs_sku
		ON execution_logs (sku, executed_at DESC)`); err != nil {
		return nil, fmt.Errorf("failed to create execution_logs index: %w", err)
	}

	return &LogDB{conn: conn, path: dbPath}, nil
}

// Close closes the log database connection
func (db *LogDB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *LogDB) Conn() *sql.DB {
	return db.conn
}
