package generic

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// EXCLUSION CALENDARS - Named sets of holidays removed from schedules
// =============================================================================

// Holiday is a single excluded day. Recurring holidays match the same
// month/day every year; the others match Date exactly.
type Holiday struct {
	ID         string `json:"id" yaml:"id"`
	CalendarID string `json:"calendar_id" yaml:"calendar_id"`
	Date       Date   `json:"date" yaml:"date"`
	Name       string `json:"name" yaml:"name"`
	Recurring  bool   `json:"recurring" yaml:"recurring"`
}

// Expression returns the leaf matching this holiday.
func (h Holiday) Expression() Expression {
	if h.Recurring {
		return FixedAnnualDate(h.Date.Month(), h.Date.Day())
	}
	return ExactDate(h.Date)
}

// OccursIn returns the concrete date of the holiday in year, if any.
func (h Holiday) OccursIn(year int) (Date, bool) {
	if !h.Recurring {
		return h.Date, h.Date.Year() == year
	}
	d := NewDate(year, h.Date.Month(), h.Date.Day())
	// Feb 29 rolls over in common years.
	return d, d.Month() == h.Date.Month()
}

func (h Holiday) String() string {
	if h.Recurring {
		return fmt.Sprintf("%s (every %02d-%02d)", h.Name, int(h.Date.Month()), h.Date.Day())
	}
	return fmt.Sprintf("%s (%s)", h.Name, h.Date)
}

// Calendar groups holidays under one ID so events can reference them.
type Calendar struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Holidays []Holiday `json:"holidays" yaml:"holidays"`
}

// Exclusions returns the union of all holiday leaves. An empty calendar
// excludes nothing.
func (c Calendar) Exclusions() Expression {
	leaves := make([]Expression, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		leaves = append(leaves, h.Expression())
	}
	return Union(leaves...)
}

// IsHoliday reports whether d is excluded by the calendar.
func (c Calendar) IsHoliday(d Date) bool {
	return c.Exclusions().Includes(d)
}

// HolidaysIn returns the calendar's holidays pinned to concrete dates of
// year, sorted by date.
func (c Calendar) HolidaysIn(year int) []Holiday {
	var out []Holiday
	for _, h := range c.Holidays {
		if d, ok := h.OccursIn(year); ok {
			h.Date = d
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// =============================================================================
// EVENT RECORDS - What the stores persist
// =============================================================================

// EventRecord is an event together with its own excluded dates and an
// optional exclusion calendar reference.
type EventRecord struct {
	Event         Event
	ExcludedDates []Date
	CalendarID    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Exclusions combines the record's own dates with the calendar's holidays.
func (r EventRecord) Exclusions(cal *Calendar) Expression {
	own := ExactDates(r.ExcludedDates...)
	if cal == nil {
		return own
	}
	return Union(own, cal.Exclusions())
}

// Compile builds the schedule for the record. cal may be nil.
func (r EventRecord) Compile(cal *Calendar) *Schedule {
	return NewScheduleWithExclusions(r.Event, r.Exclusions(cal))
}
