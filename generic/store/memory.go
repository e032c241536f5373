// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/occurrence-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	events    map[string]generic.EventRecord
	calendars map[string]generic.Calendar
	now       func() time.Time
}

var _ generic.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		events:    make(map[string]generic.EventRecord),
		calendars: make(map[string]generic.Calendar),
		now:       time.Now,
	}
}

// SaveEvent inserts or replaces a record, keeping the original CreatedAt.
func (m *Memory) SaveEvent(_ context.Context, rec generic.EventRecord) error {
	if rec.Event.ID == "" {
		return fmt.Errorf("%w: event id is empty", generic.ErrInvalidField)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	if existing, ok := m.events[rec.Event.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.ExcludedDates = append([]generic.Date(nil), rec.ExcludedDates...)
	m.events[rec.Event.ID] = rec
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id string) (generic.EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.events[id]
	if !ok {
		return generic.EventRecord{}, fmt.Errorf("%w: %s", generic.ErrEventNotFound, id)
	}
	rec.ExcludedDates = append([]generic.Date(nil), rec.ExcludedDates...)
	return rec, nil
}

func (m *Memory) ListEvents(_ context.Context) ([]generic.EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.EventRecord, 0, len(m.events))
	for _, rec := range m.events {
		rec.ExcludedDates = append([]generic.Date(nil), rec.ExcludedDates...)
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Event.ID < result[j].Event.ID })
	return result, nil
}

func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrEventNotFound, id)
	}
	delete(m.events, id)
	return nil
}

// =============================================================================
// CALENDARS
// =============================================================================

func (m *Memory) SaveCalendar(_ context.Context, cal generic.Calendar) error {
	if cal.ID == "" {
		return fmt.Errorf("%w: calendar id is empty", generic.ErrInvalidField)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.calendars[cal.ID]
	if !ok {
		existing = generic.Calendar{ID: cal.ID}
	}
	existing.Name = cal.Name
	m.calendars[cal.ID] = existing

	for _, h := range cal.Holidays {
		h.CalendarID = cal.ID
		m.saveHolidayLocked(h)
	}
	return nil
}

func (m *Memory) GetCalendar(_ context.Context, id string) (generic.Calendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cal, ok := m.calendars[id]
	if !ok {
		return generic.Calendar{}, fmt.Errorf("%w: %s", generic.ErrCalendarNotFound, id)
	}
	return copyCalendar(cal), nil
}

func (m *Memory) ListCalendars(_ context.Context) ([]generic.Calendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Calendar, 0, len(m.calendars))
	for _, cal := range m.calendars {
		result = append(result, copyCalendar(cal))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) DeleteCalendar(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calendars[id]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrCalendarNotFound, id)
	}
	delete(m.calendars, id)
	return nil
}

func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calendars[h.CalendarID]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrCalendarNotFound, h.CalendarID)
	}
	m.saveHolidayLocked(h)
	return nil
}

// saveHolidayLocked upserts on (calendar, date, name), keeping holidays
// sorted by date.
func (m *Memory) saveHolidayLocked(h generic.Holiday) {
	cal := m.calendars[h.CalendarID]
	for i, existing := range cal.Holidays {
		if existing.Date.Equal(h.Date) && existing.Name == h.Name {
			h.ID = existing.ID
			cal.Holidays[i] = h
			m.calendars[h.CalendarID] = cal
			return
		}
	}
	cal.Holidays = append(cal.Holidays, h)
	sort.SliceStable(cal.Holidays, func(i, j int) bool {
		return cal.Holidays[i].Date.Before(cal.Holidays[j].Date)
	})
	m.calendars[h.CalendarID] = cal
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for calID, cal := range m.calendars {
		for i, h := range cal.Holidays {
			if h.ID == id {
				cal.Holidays = append(cal.Holidays[:i:i], cal.Holidays[i+1:]...)
				m.calendars[calID] = cal
				return nil
			}
		}
	}
	return nil
}

// Reset drops everything.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = make(map[string]generic.EventRecord)
	m.calendars = make(map[string]generic.Calendar)
	return nil
}

func copyCalendar(cal generic.Calendar) generic.Calendar {
	cal.Holidays = append([]generic.Holiday(nil), cal.Holidays...)
	return cal
}
