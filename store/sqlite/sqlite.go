/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Persists event records and exclusion calendars for cmd/server. Events are
  stored as their canonical JSON definition (factory.EventJSON), so the
  database never needs a migration when the event shape grows a field.

INTERFACES IMPLEMENTED:
  generic.EventStore:    Event records
  generic.CalendarStore: Calendars and their holidays
  generic.Store:         Both, plus Reset

KEY TABLES:
  events:    One row per event, definition in config_json
  calendars: Named exclusion calendars
  holidays:  Holidays, owned by a calendar (ON DELETE CASCADE)

INDEXES:
  - idx_holidays_unique: (calendar_id, date, name), the upsert key
  - idx_events_calendar: events referencing a calendar

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which also
  keeps ":memory:" databases alive across queries.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/occurrences.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - factory/event.go: JSON form stored in config_json
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/occurrence-engine/factory"
	"github.com/warp/occurrence-engine/generic"
)

// Store implements generic.Store using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.EventFactory
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, factory: factory.NewEventFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Events (definition as JSON)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL,
		calendar_id TEXT NOT NULL DEFAULT '',
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_calendar
		ON events(calendar_id) WHERE calendar_id != '';

	-- Exclusion calendars
	CREATE TABLE IF NOT EXISTS calendars (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Holidays (one calendar each)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_calendar_date
		ON holidays(calendar_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(calendar_id, date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EVENT STORE
// =============================================================================

// SaveEvent inserts or replaces an event. created_at survives updates.
func (s *Store) SaveEvent(ctx context.Context, rec generic.EventRecord) error {
	if rec.Event.ID == "" {
		return fmt.Errorf("%w: event id is empty", generic.ErrInvalidField)
	}
	configJSON, err := s.factory.ToJSONString(rec)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", rec.Event.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO events (id, title, frequency, calendar_id, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			frequency = excluded.frequency,
			calendar_id = excluded.calendar_id,
			config_json = excluded.config_json,
			version = events.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		rec.Event.ID, rec.Event.Title, string(rec.Event.Frequency), rec.CalendarID,
		configJSON, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save event %s: %w", rec.Event.ID, err)
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (generic.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json, created_at, updated_at FROM events WHERE id = ?",
		id,
	).Scan(&configJSON, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return generic.EventRecord{}, fmt.Errorf("%w: %s", generic.ErrEventNotFound, id)
	}
	if err != nil {
		return generic.EventRecord{}, err
	}
	return s.decodeEvent(configJSON, createdAt, updatedAt)
}

// ListEvents returns all events ordered by ID.
func (s *Store) ListEvents(ctx context.Context) ([]generic.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT config_json, created_at, updated_at FROM events ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []generic.EventRecord{}
	for rows.Next() {
		var configJSON, createdAt, updatedAt string
		if err := rows.Scan(&configJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rec, err := s.decodeEvent(configJSON, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, generic.ErrEventNotFound, id)
}

func (s *Store) decodeEvent(configJSON, createdAt, updatedAt string) (generic.EventRecord, error) {
	rec, err := s.factory.ParseEvent(configJSON)
	if err != nil {
		return generic.EventRecord{}, fmt.Errorf("corrupt event definition: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

// =============================================================================
// CALENDAR STORE
// =============================================================================

// SaveCalendar upserts the calendar and adds its holidays in one
// transaction.
func (s *Store) SaveCalendar(ctx context.Context, cal generic.Calendar) error {
	if cal.ID == "" {
		return fmt.Errorf("%w: calendar id is empty", generic.ErrInvalidField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calendars (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, cal.ID, cal.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save calendar %s: %w", cal.ID, err)
	}

	for _, h := range cal.Holidays {
		h.CalendarID = cal.ID
		if err := saveHoliday(ctx, tx, h); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCalendar returns a calendar with its holidays sorted by date.
func (s *Store) GetCalendar(ctx context.Context, id string) (generic.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal := generic.Calendar{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT name FROM calendars WHERE id = ?", id).Scan(&cal.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Calendar{}, fmt.Errorf("%w: %s", generic.ErrCalendarNotFound, id)
	}
	if err != nil {
		return generic.Calendar{}, err
	}

	byCalendar, err := s.loadHolidays(ctx, "WHERE calendar_id = ?", id)
	if err != nil {
		return generic.Calendar{}, err
	}
	cal.Holidays = byCalendar[id]
	return cal, nil
}

// ListCalendars returns every calendar, holidays included, ordered by ID.
func (s *Store) ListCalendars(ctx context.Context) ([]generic.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM calendars ORDER BY id")
	if err != nil {
		return nil, err
	}
	calendars := []generic.Calendar{}
	for rows.Next() {
		var cal generic.Calendar
		if err := rows.Scan(&cal.ID, &cal.Name); err != nil {
			rows.Close()
			return nil, err
		}
		calendars = append(calendars, cal)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byCalendar, err := s.loadHolidays(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range calendars {
		calendars[i].Holidays = byCalendar[calendars[i].ID]
	}
	return calendars, nil
}

// DeleteCalendar removes a calendar and its holidays.
func (s *Store) DeleteCalendar(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE calendar_id = ?", id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM calendars WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, generic.ErrCalendarNotFound, id)
}

// SaveHoliday adds a holiday to an existing calendar.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calendars WHERE id = ?", h.CalendarID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", generic.ErrCalendarNotFound, h.CalendarID)
	}
	return saveHoliday(ctx, s.db, h)
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveHoliday(ctx context.Context, db execer, h generic.Holiday) error {
	query := `
		INSERT INTO holidays (id, calendar_id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(calendar_id, date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := db.ExecContext(ctx, query,
		h.ID,
		h.CalendarID,
		h.Date.String(),
		h.Name,
		h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintError(err, "FOREIGN KEY") {
			return fmt.Errorf("%w: %s", generic.ErrCalendarNotFound, h.CalendarID)
		}
		return fmt.Errorf("failed to save holiday %q: %w", h.Name, err)
	}
	return nil
}

// loadHolidays groups holidays by calendar. where is an optional filter.
func (s *Store) loadHolidays(ctx context.Context, where string, args ...any) (map[string][]generic.Holiday, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, calendar_id, date, name, recurring FROM holidays "+where+" ORDER BY date ASC, name ASC",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byCalendar := make(map[string][]generic.Holiday)
	for rows.Next() {
		var h generic.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &h.CalendarID, &dateStr, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = generic.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("corrupt holiday %s: %w", h.ID, err)
		}
		byCalendar[h.CalendarID] = append(byCalendar[h.CalendarID], h)
	}
	return byCalendar, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"holidays", "calendars", "events"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func requireAffected(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

func isConstraintError(err error, kind string) bool {
	return err != nil && strings.Contains(err.Error(), kind+" constraint failed")
}
