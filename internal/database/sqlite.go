package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = "2006-01-02 15:04:05"

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite serialises writers anyway, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	sqlite := &SQLiteDB{db: db}
	if err := sqlite.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return sqlite, nil
}

func (s *SQLiteDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lookups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		vendor TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lookups_created_at ON lookups(created_at);
	CREATE INDEX IF NOT EXISTS idx_lookups_outcome ON lookups(outcome);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateLookup inserts the entry and sets its ID. A zero CreatedAt is set to now.
func (s *SQLiteDB) CreateLookup(lookup *Lookup) error {
	if lookup.CreatedAt.IsZero() {
		lookup.CreatedAt = time.Now()
	}
	lookup.CreatedAt = lookup.CreatedAt.UTC().Truncate(time.Second)

	res, err := s.db.Exec(`
	INSERT INTO lookups (url, vendor, outcome, error, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		lookup.URL, lookup.Vendor, lookup.Outcome, lookup.Error,
		lookup.DurationMs, lookup.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return err
	}

	lookup.ID, err = res.LastInsertId()
	return err
}

// GetLookups returns matching entries, newest first.
func (s *SQLiteDB) GetLookups(filters LookupFilters) ([]Lookup, error) {
	query := `
	SELECT id, url, vendor, outcome, error, duration_ms, created_at
	FROM lookups WHERE 1=1`

	var args []interface{}
	var conditions []string

	if filters.Vendor != "" {
		conditions = append(conditions, "vendor = ?")
		args = append(args, filters.Vendor)
	}
	if filters.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filters.Outcome)
	}
	if filters.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filters.Since.UTC().Format(timeLayout))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lookups := []Lookup{}
	for rows.Next() {
		var l Lookup
		var createdAt string

		if err := rows.Scan(&l.ID, &l.URL, &l.Vendor, &l.Outcome, &l.Error, &l.DurationMs, &createdAt); err != nil {
			return nil, err
		}
		if l.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("lookup %d: bad created_at %q: %w", l.ID, createdAt, err)
		}

		lookups = append(lookups, l)
	}

	return lookups, rows.Err()
}

func (s *SQLiteDB) GetStats() (*Stats, error) {
	stats := &Stats{
		ByOutcome: map[string]int{},
		ByVendor:  map[string]int{},
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM lookups").Scan(&stats.Total); err != nil {
		return nil, err
	}
	if err := s.countBy("outcome", stats.ByOutcome); err != nil {
		return nil, err
	}
	if err := s.countBy("vendor", stats.ByVendor); err != nil {
		return nil, err
	}

	return stats, nil
}

// column is one of our own column names, never user input.
func (s *SQLiteDB) countBy(column string, into map[string]int) error {
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s, COUNT(*) FROM lookups GROUP BY %s", column, column))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		if key == "" {
			key = "none"
		}
		into[key] += n
	}
	return rows.Err()
}

// PruneBefore deletes entries created before t and reports how many went.
func (s *SQLiteDB) PruneBefore(t time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM lookups WHERE created_at < ?", t.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
