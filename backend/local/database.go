package local

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database wraps sql.DB with the key-value helpers the local store needs
type Database struct {
	*sql.DB
	path string
}

// InitDatabase opens (or creates) the SQLite file and sets up the schema.
// An empty customPath selects the XDG data location.
func InitDatabase(customPath string) (*Database, error) {
	dbPath, err := DefaultPath(customPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers within the process.
	db.SetMaxOpenConns(1)

	database := &Database{
		DB:   db,
		path: dbPath,
	}

	if err := database.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// DefaultPath returns the path to the SQLite database file
// Priority: customPath > $XDG_DATA_HOME/aitasks/local.db > ~/.local/share/aitasks/local.db
func DefaultPath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}

	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "aitasks", "local.db"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", "aitasks", "local.db"), nil
}

func (db *Database) initializeSchema() error {
	for _, pragma := range PragmaStatements() {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %q: %w", pragma, err)
		}
	}

	for _, schema := range AllTableSchemas() {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := db.recordSchemaVersion(); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

func (db *Database) recordSchemaVersion() error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", SchemaVersion).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if count > 0 {
		return nil
	}

	_, err = db.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		SchemaVersion,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert schema version: %w", err)
	}

	return nil
}

// GetSchemaVersion returns the current schema version from the database
func (db *Database) GetSchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Path returns the filesystem path to the database file
func (db *Database) Path() string {
	return db.path
}

// Get returns the value stored under key. ok is false when the key is absent.
func (db *Database) Get(key string) (value string, ok bool, err error) {
	err = db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

// Put replaces the value stored under key.
func (db *Database) Put(key, value string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}

	return tx.Commit()
}

// GetStats returns basic database statistics
func (db *Database) GetStats() (DatabaseStats, error) {
	stats := DatabaseStats{}

	err := db.QueryRow("SELECT COUNT(*) FROM kv").Scan(&stats.KeyCount)
	if err != nil {
		return stats, fmt.Errorf("failed to count keys: %w", err)
	}

	err = db.QueryRow("SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv").Scan(&stats.DocumentBytes)
	if err != nil {
		return stats, fmt.Errorf("failed to measure documents: %w", err)
	}

	fileInfo, err := os.Stat(db.path)
	if err != nil {
		return stats, fmt.Errorf("failed to stat database file: %w", err)
	}
	stats.DatabaseSize = fileInfo.Size()

	return stats, nil
}

// DatabaseStats holds statistics about the database
type DatabaseStats struct {
	KeyCount      int
	DocumentBytes int64
	DatabaseSize  int64 // in bytes
}

// String returns a human-readable representation of database statistics
func (s DatabaseStats) String() string {
	sizeKB := float64(s.DatabaseSize) / 1024
	return fmt.Sprintf("Keys: %d | Documents: %d B | Size: %.1f KB", s.KeyCount, s.DocumentBytes, sizeKB)
}
