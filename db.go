package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// recorderSchema runs in order on every open; each statement is idempotent.
var recorderSchema = []string{
	`CREATE TABLE IF NOT EXISTS flight_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		adapter TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		latitude REAL,
		longitude REAL,
		altitude REAL,
		heading REAL,
		pitch REAL,
		roll REAL,
		airspeed REAL,
		ground_speed REAL,
		vertical_speed REAL,
		on_ground INTEGER,
		snapshot BLOB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flight_data_session ON flight_data(session_id, id)`,
}

// initDB opens the recorder database at dbPath, creating its directory
// and tables as needed.
func initDB(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := "file:" + filepath.ToSlash(dbPath) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// the stream loop and exports share one writer
	db.SetMaxOpenConns(1)

	for i, stmt := range recorderSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema step %d: %w", i, err)
		}
	}
	return db, nil
}
