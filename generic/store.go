/*
store.go - Persistence interfaces for events and exclusion calendars

PURPOSE:
  Defines the boundary between the query surface (api, cmd) and storage.
  The engine itself never touches a store: callers load an EventRecord and
  its Calendar, compile a Schedule, and query it in memory.

KEY INTERFACES:
  EventStore:    Event records (CRUD, keyed by Event.ID)
  CalendarStore: Exclusion calendars and their holidays
  Store:         Both, what the API depends on

NOT FOUND:
  Lookups of a missing ID return ErrEventNotFound / ErrCalendarNotFound
  (wrapped), so callers can use IsNotFound.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite, used by cmd/server
  - generic/store/memory.go: In-memory, used by tests and cmd/occur

SEE ALSO:
  - calendar.go: EventRecord, Calendar, Holiday
*/
package generic

import "context"

// =============================================================================
// EVENT STORE
// =============================================================================

// EventStore persists event records.
type EventStore interface {
	// SaveEvent inserts or replaces the record with the same Event.ID.
	SaveEvent(ctx context.Context, rec EventRecord) error

	// GetEvent returns the record or ErrEventNotFound.
	GetEvent(ctx context.Context, id string) (EventRecord, error)

	// ListEvents returns all records ordered by ID.
	ListEvents(ctx context.Context) ([]EventRecord, error)

	// DeleteEvent removes the record or returns ErrEventNotFound.
	DeleteEvent(ctx context.Context, id string) error
}

// =============================================================================
// CALENDAR STORE
// =============================================================================

// CalendarStore persists exclusion calendars. Holidays belong to exactly
// one calendar and are deleted with it.
type CalendarStore interface {
	// SaveCalendar inserts or renames a calendar. Holidays on the value
	// are added, existing ones are kept.
	SaveCalendar(ctx context.Context, cal Calendar) error

	// GetCalendar returns the calendar with all its holidays, or
	// ErrCalendarNotFound.
	GetCalendar(ctx context.Context, id string) (Calendar, error)

	// ListCalendars returns all calendars, holidays included.
	ListCalendars(ctx context.Context) ([]Calendar, error)

	// DeleteCalendar removes the calendar and its holidays.
	DeleteCalendar(ctx context.Context, id string) error

	// SaveHoliday adds a holiday to an existing calendar. A holiday with
	// the same calendar, date and name is updated in place.
	SaveHoliday(ctx context.Context, h Holiday) error

	// DeleteHoliday removes one holiday by ID.
	DeleteHoliday(ctx context.Context, id string) error
}

// Store is everything the API needs.
type Store interface {
	EventStore
	CalendarStore

	// Reset drops all events and calendars (demo scenarios).
	Reset(ctx context.Context) error
}
