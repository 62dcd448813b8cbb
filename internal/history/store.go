package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNoRecords is returned by Latest when the table is empty.
var ErrNoRecords = errors.New("no historical records")

const schema = `
CREATE TABLE IF NOT EXISTS records (
    year INTEGER PRIMARY KEY,
    rainfall_mm REAL NOT NULL,
    subsidy_level TEXT NOT NULL
);
`

// Store persists reference records in SQLite at <root>/.oracle/history.db.
// The built-in table is loaded when the database is first created.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the history database under root.
func Open(ctx context.Context, root string) (*Store, error) {
	dir := filepath.Join(root, ".oracle")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .oracle directory: %w", err)
	}
	return OpenPath(ctx, filepath.Join(dir, "history.db"))
}

// OpenPath opens the history database at an explicit path.
func OpenPath(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.seed(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed built-in records: %w", err)
	}
	return s, nil
}

// seed loads the built-in table into an empty database.
func (s *Store) seed(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range Builtin() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (year, rainfall_mm, subsidy_level) VALUES (?, ?, ?)`,
			r.Year, r.RainfallMM, r.SubsidyLevel); err != nil {
			return fmt.Errorf("failed to insert %d: %w", r.Year, err)
		}
	}
	return tx.Commit()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Add inserts a record, replacing any existing record for the same year.
func (s *Store) Add(ctx context.Context, r Record) error {
	r.SubsidyLevel = strings.ToLower(strings.TrimSpace(r.SubsidyLevel))
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (year, rainfall_mm, subsidy_level) VALUES (?, ?, ?)`,
		r.Year, r.RainfallMM, r.SubsidyLevel)
	if err != nil {
		return fmt.Errorf("failed to add record %d: %w", r.Year, err)
	}
	return nil
}

// List returns all records ordered by year.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT year, rainfall_mm, subsidy_level FROM records ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Year, &r.RainfallMM, &r.SubsidyLevel); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Latest returns the most recent year's record.
func (s *Store) Latest(ctx context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r Record
	err := s.db.QueryRowContext(ctx,
		`SELECT year, rainfall_mm, subsidy_level FROM records ORDER BY year DESC LIMIT 1`).
		Scan(&r.Year, &r.RainfallMM, &r.SubsidyLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoRecords
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query latest record: %w", err)
	}
	return r, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
