package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO required
)

// SQLiteStore is a durable content-addressed object store backed by a
// single SQLite database file, grounded on the teacher's WAL-mode,
// busy-timeout connection setup. It demonstrates that the dimension
// facade is storage-agnostic: nothing above pkg/store knows or cares
// that records live in SQLite rather than memory.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed store
// at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS records (
		id   TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		body BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS refs (
		source_id   TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		seq         INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_refs_lookup ON refs(source_id, target_type, seq);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutUnversioned implements Adapter.
func (s *SQLiteStore) PutUnversioned(ctx context.Context, record Record) (string, bool, error) {
	id := record.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM records WHERE id = ?`, id).Scan(&existing); err != nil {
		return "", false, fmt.Errorf("store: check existing: %w", err)
	}
	if existing > 0 {
		return id, false, nil
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO records (id, type, body) VALUES (?, ?, ?)`, id, string(record.Type), record.Body); err != nil {
		return "", false, fmt.Errorf("store: insert record: %w", err)
	}

	for seq, ref := range record.References {
		if _, err := tx.ExecContext(ctx, `INSERT INTO refs (source_id, target_type, target_id, seq) VALUES (?, ?, ?, ?)`, ref, string(record.Type), id, seq); err != nil {
			return "", false, fmt.Errorf("store: insert ref: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("store: commit: %w", err)
	}

	return id, true, nil
}

// Get implements Adapter.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, bool, error) {
	var typ string
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT type, body FROM records WHERE id = ?`, id).Scan(&typ, &body)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("store: get: %w", err)
	}
	return Record{Type: RecordType(typ), Body: body}, true, nil
}

// ReverseMap implements Adapter.
func (s *SQLiteStore) ReverseMap(ctx context.Context, sourceID string, targetType RecordType) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT target_id FROM refs WHERE source_id = ? AND target_type = ? ORDER BY rowid ASC`, sourceID, string(targetType))
	if err != nil {
		return nil, fmt.Errorf("store: reverse map: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: reverse map scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
