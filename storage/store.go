package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"apartment-tracker/models"
)

var (
	// ErrNotFound is returned by Get, Update and Archive when the name has
	// no row in the active table.
	ErrNotFound = errors.New("storage: listing not found")
	// ErrDuplicate is returned by Create when the name is already active.
	ErrDuplicate = errors.New("storage: listing already exists")
)

// Store persists listings in SQL. It works against SQLite (default, pure-Go
// driver) or PostgreSQL; both accept $N placeholders and the shared schema.
type Store struct {
	db *sql.DB

	// now is swapped out in tests to control timestamps.
	now func() int64
}

const schema = `
CREATE TABLE IF NOT EXISTS active_listings (
	name       TEXT PRIMARY KEY,
	floor      TEXT NOT NULL,
	style      TEXT,
	page_url   TEXT NOT NULL,
	price      BIGINT NOT NULL,
	details    TEXT NOT NULL DEFAULT '[]',
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS archived_listings (
	name       TEXT PRIMARY KEY,
	floor      TEXT NOT NULL,
	style      TEXT,
	page_url   TEXT NOT NULL,
	price      BIGINT NOT NULL,
	details    TEXT NOT NULL DEFAULT '[]',
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL,
	deleted_at BIGINT NOT NULL
);
`

// Open connects to the database for the given driver ("sqlite" or
// "postgres"), applies pragmas and the schema, and returns a ready Store.
func Open(driver, dsn string) (*Store, error) {
	var db *sql.DB
	var err error

	switch driver {
	case "sqlite":
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("storage: create data dir: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open sqlite: %w", err)
		}
		for _, pragma := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 10000",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("storage: %s: %w", pragma, err)
			}
		}

	case "postgres":
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		for i := 0; i < 10; i++ {
			if err = db.Ping(); err == nil {
				break
			}
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: ping failed after retries: %w", err)
		}

	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	return &Store{db: db, now: func() int64 { return time.Now().Unix() }}, nil
}

// OpenMemory opens an in-memory SQLite store for tests. MaxOpenConns(1)
// keeps every query on the same connection, since each connection to
// ":memory:" is a separate database. The store is closed via t.Cleanup.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("storage.OpenMemory: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

// SetClock replaces the timestamp source, for tests that pin time.
func (s *Store) SetClock(now func() int64) {
	s.now = now
}

// Get looks up one listing in the active table only.
func (s *Store) Get(ctx context.Context, name string) (*models.Listing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, floor, style, page_url, price, details, created_at, updated_at
		FROM active_listings
		WHERE name = $1
	`, name)

	l, err := scanListing(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %q: %w", name, err)
	}
	return l, nil
}

// GetAllActive returns all active listings ordered by name ascending.
func (s *Store) GetAllActive(ctx context.Context) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, floor, style, page_url, price, details, created_at, updated_at
		FROM active_listings
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage: get all active: %w", err)
	}
	defer rows.Close()

	listings := []*models.Listing{}
	for rows.Next() {
		l, err := scanListing(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("storage: scan active row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// GetAllArchived returns all archived listings, most recently archived first.
func (s *Store) GetAllArchived(ctx context.Context) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, floor, style, page_url, price, details, created_at, updated_at, deleted_at
		FROM archived_listings
		ORDER BY deleted_at DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage: get all archived: %w", err)
	}
	defer rows.Close()

	listings := []*models.Listing{}
	for rows.Next() {
		l := &models.Listing{}
		var style sql.NullString
		var details string
		if err := rows.Scan(&l.Name, &l.Floor, &style, &l.PageURL, &l.Price,
			&details, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("storage: scan archived row: %w", err)
		}
		if style.Valid {
			l.Style = &style.String
		}
		if err := json.Unmarshal([]byte(details), &l.Details); err != nil {
			return nil, fmt.Errorf("storage: decode details for %q: %w", l.Name, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Create inserts a new active listing with created_at = updated_at = now.
// This is not an upsert: an existing active name yields ErrDuplicate.
func (s *Store) Create(ctx context.Context, l *models.Listing) error {
	details, err := json.Marshal(detailsOrEmpty(l.Details))
	if err != nil {
		return fmt.Errorf("storage: encode details for %q: %w", l.Name, err)
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO active_listings (name, floor, style, page_url, price, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO NOTHING
	`, l.Name, l.Floor, nullableStyle(l.Style), l.PageURL, l.Price, string(details), now, now)
	if err != nil {
		return fmt.Errorf("storage: create %q: %w", l.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: create %q: %w", l.Name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, l.Name)
	}
	return nil
}

// Update overwrites the mutable fields of the active row identified by name,
// leaving created_at untouched.
func (s *Store) Update(ctx context.Context, name string, l *models.Listing) error {
	details, err := json.Marshal(detailsOrEmpty(l.Details))
	if err != nil {
		return fmt.Errorf("storage: encode details for %q: %w", name, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE active_listings
		SET floor = $1, style = $2, page_url = $3, price = $4, details = $5, updated_at = $6
		WHERE name = $7
	`, l.Floor, nullableStyle(l.Style), l.PageURL, l.Price, string(details), s.now(), name)
	if err != nil {
		return fmt.Errorf("storage: update %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Archive moves an active row into the archive table, stamping deleted_at.
// The read-insert-delete sequence runs in one transaction so a fault cannot
// leave the listing in both tables or neither. Archiving a name that already
// has an archived copy replaces that copy, keeping name unique in the
// archive.
func (s *Store) Archive(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: archive %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT name, floor, style, page_url, price, details, created_at, updated_at
		FROM active_listings
		WHERE name = $1
	`, name)

	var l models.Listing
	var style sql.NullString
	var details string
	err = row.Scan(&l.Name, &l.Floor, &style, &l.PageURL, &l.Price,
		&details, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("storage: archive %q: read: %w", name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO archived_listings (name, floor, style, page_url, price, details, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			floor = excluded.floor,
			style = excluded.style,
			page_url = excluded.page_url,
			price = excluded.price,
			details = excluded.details,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at
	`, l.Name, l.Floor, style, l.PageURL, l.Price, details, l.CreatedAt, l.UpdatedAt, s.now())
	if err != nil {
		return fmt.Errorf("storage: archive %q: insert: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_listings WHERE name = $1`, name); err != nil {
		return fmt.Errorf("storage: archive %q: delete: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: archive %q: commit: %w", name, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// scanListing reads one active-table row.
func scanListing(scan func(...any) error) (*models.Listing, error) {
	l := &models.Listing{}
	var style sql.NullString
	var details string
	if err := scan(&l.Name, &l.Floor, &style, &l.PageURL, &l.Price,
		&details, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if style.Valid {
		l.Style = &style.String
	}
	if err := json.Unmarshal([]byte(details), &l.Details); err != nil {
		return nil, fmt.Errorf("decode details for %q: %w", l.Name, err)
	}
	return l, nil
}

func nullableStyle(style *string) sql.NullString {
	if style == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *style, Valid: true}
}

// detailsOrEmpty keeps the stored encoding a JSON array even when the
// scraped details list is nil.
func detailsOrEmpty(details []string) []string {
	if details == nil {
		return []string{}
	}
	return details
}
