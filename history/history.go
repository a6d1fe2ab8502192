// Package history keeps a lightweight audit log of which links were
// analysed and by whom. It stores no derived profile data.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Entry is one audit record.
type Entry struct {
	Link           string
	Creator        string
	FirstRequested time.Time
}

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the audit database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL keeps readers unblocked while a request is being recorded.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link TEXT NOT NULL,
		creator TEXT NOT NULL DEFAULT 'none',
		first_requested DATETIME NOT NULL,
		UNIQUE(link, creator)
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Record notes that creator requested link. Repeat requests keep the
// original first-requested time.
func (db *DB) Record(link, creator string) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO accounts (link, creator, first_requested) VALUES (?, ?, ?)",
		link, creator, time.Now().UTC(),
	)
	return err
}

// ByCreator returns a creator's audit entries, most recent first.
func (db *DB) ByCreator(creator string) ([]Entry, error) {
	rows, err := db.conn.Query(
		"SELECT link, creator, first_requested FROM accounts WHERE creator = ? ORDER BY first_requested DESC",
		creator,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Link, &e.Creator, &e.FirstRequested); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
