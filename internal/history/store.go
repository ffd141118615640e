// Package history persists captured creatures, newest first.
//
// The store speaks SQLite (modernc.org/sqlite, the default) or PostgreSQL
// (lib/pq) through sqlx; queries are written with ? placeholders and rebound
// for the active driver.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

// Table is the namespaced table holding the history.
const Table = "pokethrow_history"

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for an unknown local id.
var ErrNotFound = errors.New("history: entry not found")

// Entry is one captured creature.
type Entry struct {
	LocalID    string    `json:"localId"`
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
	Types      []string  `json:"types"`
	CapturedAt time.Time `json:"capturedAt"`

	Force    float64 `json:"force"`
	Accuracy float64 `json:"accuracy"`
	Rate     float64 `json:"rate"`
	Roll     float64 `json:"roll"`
	Grade    string  `json:"grade,omitempty"`
}

// Record returns the creature part of the entry.
func (e Entry) Record() pokemon.Record {
	return pokemon.Record{ID: e.ID, Name: e.Name, Image: e.Image, Types: e.Types}
}

type entryRow struct {
	Seq        int64   `db:"seq"`
	LocalID    string  `db:"local_id"`
	PokemonID  int     `db:"pokemon_id"`
	Name       string  `db:"name"`
	Image      string  `db:"image"`
	Types      string  `db:"types"`
	CapturedAt string  `db:"captured_at"`
	Force      float64 `db:"force"`
	Accuracy   float64 `db:"accuracy"`
	Rate       float64 `db:"rate"`
	Roll       float64 `db:"roll"`
	Grade      string  `db:"grade"`
}

func (r entryRow) entry() (Entry, error) {
	at, err := time.Parse(timeLayout, r.CapturedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("history: parse captured_at %q: %w", r.CapturedAt, err)
	}
	var types []string
	if r.Types != "" {
		types = strings.Split(r.Types, ",")
	}
	return Entry{
		LocalID:    r.LocalID,
		ID:         r.PokemonID,
		Name:       r.Name,
		Image:      r.Image,
		Types:      types,
		CapturedAt: at,
		Force:      r.Force,
		Accuracy:   r.Accuracy,
		Rate:       r.Rate,
		Roll:       r.Roll,
		Grade:      r.Grade,
	}, nil
}

// Page is a paginated list response.
type Page struct {
	Entries    []Entry `json:"entries"`
	TotalCount int     `json:"totalCount"`
	Page       int     `json:"page"`
	PerPage    int     `json:"perPage"`
	TotalPages int     `json:"totalPages"`
}

// Store provides history persistence.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects with driver (sqlite or postgres) to dsn.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("history: unsupported driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer at a time
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: enable WAL: %w", err)
		}
	} else if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	return NewFromDB(db), nil
}

// OpenSQLite opens a SQLite history at path.
func OpenSQLite(path string) (*Store, error) {
	return Open(DriverSQLite, path)
}

// NewFromDB wraps an existing sqlx.DB.
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates the history table.
func (s *Store) Migrate(ctx context.Context) error {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.db.DriverName() == DriverPostgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS ` + Table + ` (
			` + seq + `,
			local_id TEXT NOT NULL UNIQUE,
			pokemon_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			image TEXT NOT NULL,
			types TEXT NOT NULL,
			captured_at TEXT NOT NULL,
			force DOUBLE PRECISION NOT NULL DEFAULT 0,
			accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
			rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			roll DOUBLE PRECISION NOT NULL DEFAULT 0,
			grade TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + Table + `_pokemon ON ` + Table + `(pokemon_id)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("history: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add appends an entry. A missing LocalID or CapturedAt is filled in; the
// stored entry is returned.
func (s *Store) Add(ctx context.Context, e Entry) (Entry, error) {
	rec := e.Record().Normalize()
	if err := rec.Validate(); err != nil {
		return Entry{}, fmt.Errorf("history: add: %w", err)
	}
	e.Name, e.Image, e.Types = rec.Name, rec.Image, rec.Types
	if e.LocalID == "" {
		e.LocalID = uuid.NewString()
	}
	if e.CapturedAt.IsZero() {
		e.CapturedAt = s.now()
	}
	e.CapturedAt = e.CapturedAt.UTC()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO `+Table+` (local_id, pokemon_id, name, image, types, captured_at, force, accuracy, rate, roll, grade)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.LocalID, e.ID, e.Name, e.Image, strings.Join(e.Types, ","), e.CapturedAt.Format(timeLayout),
		e.Force, e.Accuracy, e.Rate, e.Roll, e.Grade,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("history: add: %w", err)
	}
	return e, nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+Table); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

// List returns one page of entries, newest first. Pages start at 1.
func (s *Store) List(ctx context.Context, page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 500 {
		perPage = 500
	}

	total, err := s.Count(ctx)
	if err != nil {
		return Page{}, err
	}

	var rows []entryRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT seq, local_id, pokemon_id, name, image, types, captured_at, force, accuracy, rate, roll, grade
		 FROM `+Table+` ORDER BY seq DESC LIMIT ? OFFSET ?`),
		perPage, (page-1)*perPage,
	)
	if err != nil {
		return Page{}, fmt.Errorf("history: list: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.entry()
		if err != nil {
			return Page{}, err
		}
		entries = append(entries, e)
	}

	totalPages := total / perPage
	if total%perPage != 0 {
		totalPages++
	}
	return Page{
		Entries:    entries,
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// Get fetches one entry by local id.
func (s *Store) Get(ctx context.Context, localID string) (Entry, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT seq, local_id, pokemon_id, name, image, types, captured_at, force, accuracy, rate, roll, grade
		 FROM `+Table+` WHERE local_id = ?`), localID)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("history: get: %w", err)
	}
	return row.entry()
}

// Clear deletes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+Table)
	if err != nil {
		return 0, fmt.Errorf("history: clear: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: clear: %w", err)
	}
	return n, nil
}
