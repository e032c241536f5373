/*
Package factory provides JSON/YAML to Go event conversion.

PURPOSE:
  Converts event definitions written as JSON (API bodies, database rows) or
  YAML (CLI files) into generic.EventRecord values. The engine never
  validates; this is where malformed input is rejected.

JSON SCHEMA:
  {
    "id": "standup",
    "title": "Team standup",
    "frequency": "weekly",
    "repeat_interval": 1,
    "days_of_week": ["mon", "wed", "fri"],
    "monthly_week": "second",
    "range_in_year": {"start_month": 6, "end_month": 8},
    "start_date": "2013-01-03",
    "end_date": "2013-12-31",
    "number_of_occurrences": 10,
    "excluded_dates": ["2013-07-04"],
    "calendar_id": "us-federal"
  }

  Every field but frequency is optional; an empty frequency means "none".

VALIDATION:
  Unknown frequency / weekday / monthly week, malformed dates, negative
  interval or count, and month/day values out of range all return an
  *generic.InvalidFieldError naming the field. Contradictory but well-formed
  values (end before start) are accepted; the schedule is simply empty.

USAGE:
  f := factory.NewEventFactory()
  rec, err := f.ParseEvent(jsonString)
  schedule := rec.Compile(nil)

SEE ALSO:
  - rrule.go: RFC 5545 RRULE import/export
  - presets.go: Ready-made definitions
  - generic/event.go: Event type definition
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"gopkg.in/yaml.v3"

	"github.com/warp/occurrence-engine/generic"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// EventJSON is the wire representation of an event record.
type EventJSON struct {
	ID                  string           `json:"id,omitempty" yaml:"id,omitempty"`
	Title               string           `json:"title,omitempty" yaml:"title,omitempty"`
	Frequency           string           `json:"frequency" yaml:"frequency"`
	RepeatInterval      int              `json:"repeat_interval,omitempty" yaml:"repeat_interval,omitempty"`
	DaysOfWeek          []string         `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`
	MonthlyWeek         string           `json:"monthly_week,omitempty" yaml:"monthly_week,omitempty"`
	RangeInYear         *AnnualRangeJSON `json:"range_in_year,omitempty" yaml:"range_in_year,omitempty"`
	StartDate           string           `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate             string           `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	NumberOfOccurrences *int             `json:"number_of_occurrences,omitempty" yaml:"number_of_occurrences,omitempty"`
	ExcludedDates       []string         `json:"excluded_dates,omitempty" yaml:"excluded_dates,omitempty"`
	CalendarID          string           `json:"calendar_id,omitempty" yaml:"calendar_id,omitempty"`
}

// AnnualRangeJSON is a month[/day] to month[/day] window. Months are 1-12.
type AnnualRangeJSON struct {
	StartMonth int  `json:"start_month" yaml:"start_month"`
	StartDay   *int `json:"start_day,omitempty" yaml:"start_day,omitempty"`
	EndMonth   int  `json:"end_month" yaml:"end_month"`
	EndDay     *int `json:"end_day,omitempty" yaml:"end_day,omitempty"`
}

// EventsFile is the YAML document read by the CLI: a list of events and
// optional inline calendars.
type EventsFile struct {
	Events    []EventJSON    `yaml:"events"`
	Calendars []CalendarJSON `yaml:"calendars,omitempty"`
}

// CalendarJSON is the wire representation of an exclusion calendar.
type CalendarJSON struct {
	ID       string        `json:"id" yaml:"id"`
	Name     string        `json:"name" yaml:"name"`
	Holidays []HolidayJSON `json:"holidays,omitempty" yaml:"holidays,omitempty"`
}

// HolidayJSON is one holiday; recurring ones repeat every year on the
// date's month/day.
type HolidayJSON struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Date      string `json:"date" yaml:"date"`
	Name      string `json:"name" yaml:"name"`
	Recurring bool   `json:"recurring,omitempty" yaml:"recurring,omitempty"`
}

// =============================================================================
// EVENT FACTORY
// =============================================================================

// EventFactory converts wire events to generic records.
type EventFactory struct{}

// NewEventFactory creates a new event factory.
func NewEventFactory() *EventFactory {
	return &EventFactory{}
}

// ParseEvent parses a JSON string into an EventRecord.
func (f *EventFactory) ParseEvent(jsonStr string) (generic.EventRecord, error) {
	var ej EventJSON
	if err := json.Unmarshal([]byte(jsonStr), &ej); err != nil {
		return generic.EventRecord{}, fmt.Errorf("failed to parse event JSON: %w", err)
	}
	return f.FromJSON(ej)
}

// ParseEventYAML parses a single YAML event document.
func (f *EventFactory) ParseEventYAML(data []byte) (generic.EventRecord, error) {
	var ej EventJSON
	if err := yaml.Unmarshal(data, &ej); err != nil {
		return generic.EventRecord{}, fmt.Errorf("failed to parse event YAML: %w", err)
	}
	return f.FromJSON(ej)
}

// ParseEventsFile parses a YAML EventsFile.
func (f *EventFactory) ParseEventsFile(data []byte) ([]generic.EventRecord, []generic.Calendar, error) {
	var file EventsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse events file: %w", err)
	}

	records := make([]generic.EventRecord, 0, len(file.Events))
	for i, ej := range file.Events {
		rec, err := f.FromJSON(ej)
		if err != nil {
			return nil, nil, fmt.Errorf("event %d: %w", i, err)
		}
		if rec.Event.ID == "" {
			rec.Event.ID = fmt.Sprintf("event-%d", i+1)
		}
		records = append(records, rec)
	}

	calendars := make([]generic.Calendar, 0, len(file.Calendars))
	for _, cj := range file.Calendars {
		cal, err := f.CalendarFromJSON(cj)
		if err != nil {
			return nil, nil, err
		}
		calendars = append(calendars, cal)
	}
	return records, calendars, nil
}

// FromJSON converts EventJSON to a generic.EventRecord.
func (f *EventFactory) FromJSON(ej EventJSON) (generic.EventRecord, error) {
	freq, err := generic.ParseFrequency(ej.Frequency)
	if err != nil {
		return generic.EventRecord{}, err
	}
	if ej.RepeatInterval < 0 {
		return generic.EventRecord{}, invalid("repeat_interval", fmt.Sprint(ej.RepeatInterval), nil)
	}

	event := generic.Event{
		ID:             ej.ID,
		Title:          ej.Title,
		Frequency:      freq,
		RepeatInterval: ej.RepeatInterval,
	}

	if event.DaysOfWeek, err = parseDaysOfWeek(ej.DaysOfWeek); err != nil {
		return generic.EventRecord{}, err
	}
	if event.MonthlyWeek, err = generic.ParseMonthlyWeek(ej.MonthlyWeek); err != nil {
		return generic.EventRecord{}, err
	}
	if ej.RangeInYear != nil {
		r, err := parseAnnualRange(*ej.RangeInYear)
		if err != nil {
			return generic.EventRecord{}, err
		}
		event.RangeInYear = mo.Some(r)
	}
	if event.StartDate, err = parseOptionalDate("start_date", ej.StartDate); err != nil {
		return generic.EventRecord{}, err
	}
	if event.EndDate, err = parseOptionalDate("end_date", ej.EndDate); err != nil {
		return generic.EventRecord{}, err
	}
	if ej.NumberOfOccurrences != nil {
		if *ej.NumberOfOccurrences < 0 {
			return generic.EventRecord{}, invalid("number_of_occurrences", fmt.Sprint(*ej.NumberOfOccurrences), nil)
		}
		event.NumberOfOccurrences = mo.Some(*ej.NumberOfOccurrences)
	}

	rec := generic.EventRecord{Event: event, CalendarID: ej.CalendarID}
	for _, s := range ej.ExcludedDates {
		d, err := generic.ParseDate(s)
		if err != nil {
			return generic.EventRecord{}, invalid("excluded_dates", s, err)
		}
		rec.ExcludedDates = append(rec.ExcludedDates, d)
	}
	return rec, nil
}

// ToJSON converts a record back to its wire form. FromJSON(ToJSON(r))
// yields an equivalent record.
func (f *EventFactory) ToJSON(rec generic.EventRecord) EventJSON {
	e := rec.Event
	ej := EventJSON{
		ID:             e.ID,
		Title:          e.Title,
		Frequency:      string(e.Frequency),
		RepeatInterval: e.RepeatInterval,
		MonthlyWeek:    e.MonthlyWeek.String(),
		CalendarID:     rec.CalendarID,
	}
	if ej.Frequency == "" {
		ej.Frequency = string(generic.FrequencyNone)
	}

	for _, d := range e.DaysOfWeek.Days() {
		ej.DaysOfWeek = append(ej.DaysOfWeek, strings.ToLower(d.String()[:3]))
	}
	if r, ok := e.RangeInYear.Get(); ok {
		rj := &AnnualRangeJSON{StartMonth: int(r.StartMonth), EndMonth: int(r.EndMonth)}
		if d, ok := r.StartDay.Get(); ok {
			rj.StartDay = &d
		}
		if d, ok := r.EndDay.Get(); ok {
			rj.EndDay = &d
		}
		ej.RangeInYear = rj
	}
	if d, ok := e.StartDate.Get(); ok {
		ej.StartDate = d.String()
	}
	if d, ok := e.EndDate.Get(); ok {
		ej.EndDate = d.String()
	}
	if n, ok := e.NumberOfOccurrences.Get(); ok {
		ej.NumberOfOccurrences = &n
	}
	for _, d := range rec.ExcludedDates {
		ej.ExcludedDates = append(ej.ExcludedDates, d.String())
	}
	return ej
}

// ToJSONString marshals a record as compact JSON.
func (f *EventFactory) ToJSONString(rec generic.EventRecord) (string, error) {
	b, err := json.Marshal(f.ToJSON(rec))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CalendarFromJSON converts a wire calendar, stamping the calendar ID on
// each holiday.
func (f *EventFactory) CalendarFromJSON(cj CalendarJSON) (generic.Calendar, error) {
	if cj.ID == "" {
		return generic.Calendar{}, invalid("calendar id", "", nil)
	}
	cal := generic.Calendar{ID: cj.ID, Name: cj.Name}
	for i, hj := range cj.Holidays {
		h, err := f.HolidayFromJSON(cj.ID, hj)
		if err != nil {
			return generic.Calendar{}, err
		}
		if h.ID == "" {
			h.ID = fmt.Sprintf("%s-%d", cj.ID, i+1)
		}
		cal.Holidays = append(cal.Holidays, h)
	}
	return cal, nil
}

// HolidayFromJSON converts one wire holiday.
func (f *EventFactory) HolidayFromJSON(calendarID string, hj HolidayJSON) (generic.Holiday, error) {
	if hj.Name == "" {
		return generic.Holiday{}, invalid("holiday name", "", nil)
	}
	d, err := generic.ParseDate(hj.Date)
	if err != nil {
		return generic.Holiday{}, invalid("holiday date", hj.Date, err)
	}
	return generic.Holiday{
		ID:         hj.ID,
		CalendarID: calendarID,
		Date:       d,
		Name:       hj.Name,
		Recurring:  hj.Recurring,
	}, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func invalid(field, value string, err error) error {
	return &generic.InvalidFieldError{Field: field, Value: value, Err: err}
}

func parseDaysOfWeek(names []string) (generic.Weekdays, error) {
	var set generic.Weekdays
	for _, name := range names {
		wd, err := generic.ParseWeekday(name)
		if err != nil {
			return generic.NoWeekdays, invalid("days_of_week", name, nil)
		}
		set = set.With(wd)
	}
	return set, nil
}

func parseOptionalDate(field, s string) (mo.Option[generic.Date], error) {
	if s == "" {
		return mo.None[generic.Date](), nil
	}
	d, err := generic.ParseDate(s)
	if err != nil {
		return mo.None[generic.Date](), invalid(field, s, err)
	}
	return mo.Some(d), nil
}

func parseAnnualRange(rj AnnualRangeJSON) (generic.AnnualRange, error) {
	if rj.StartMonth < 1 || rj.StartMonth > 12 {
		return generic.AnnualRange{}, invalid("range_in_year.start_month", fmt.Sprint(rj.StartMonth), nil)
	}
	if rj.EndMonth < 1 || rj.EndMonth > 12 {
		return generic.AnnualRange{}, invalid("range_in_year.end_month", fmt.Sprint(rj.EndMonth), nil)
	}
	r := generic.MonthRange(time.Month(rj.StartMonth), time.Month(rj.EndMonth))
	if rj.StartDay != nil {
		if *rj.StartDay < 1 || *rj.StartDay > 31 {
			return generic.AnnualRange{}, invalid("range_in_year.start_day", fmt.Sprint(*rj.StartDay), nil)
		}
		r.StartDay = mo.Some(*rj.StartDay)
	}
	if rj.EndDay != nil {
		if *rj.EndDay < 1 || *rj.EndDay > 31 {
			return generic.AnnualRange{}, invalid("range_in_year.end_day", fmt.Sprint(*rj.EndDay), nil)
		}
		r.EndDay = mo.Some(*rj.EndDay)
	}
	return r, nil
}
