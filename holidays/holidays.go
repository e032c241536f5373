/*
Package holidays provides ready-made exclusion calendars.

PURPOSE:
  Events often skip public holidays. Rather than listing every excluded date
  by hand, a holiday Set describes the rules ("fourth Thursday of November",
  "July 4, observed") and turns them into either:

  - an exclusion Expression for generic.NewScheduleWithExclusions, valid for
    every year, or
  - a generic.Calendar with concrete holidays, for storing and listing.

RULE KINDS:
  Fixed     Same month/day every year (Christmas)
  Floating  Ordinal weekday of a month (Thanksgiving, Memorial Day)
  Observed  A fixed rule that also excludes its weekday substitute:
            Saturday holidays are observed the Friday before, Sunday
            holidays the Monday after. The substitute may fall in the
            previous year (Jan 1 on a Saturday -> Dec 31).

SETS:
  USFederal       The eleven US federal holidays
  CompanyDefaults New Year's Day, Independence Day, Christmas, New Year's Eve

USAGE:
  set := holidays.USFederal()
  schedule := generic.NewScheduleWithExclusions(event, set.Exclusions())

  cal := set.Calendar(2013, 2014) // for store.SaveCalendar

  // Stored calendar first, then built-in set, then nothing.
  schedule, found, err := holidays.Compile(ctx, store, rec, "us-federal")

SEE ALSO:
  - generic/calendar.go: Holiday and Calendar types
  - generic/expression.go: Leaves used here
*/
package holidays

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/occurrence-engine/generic"
)

// =============================================================================
// RULES
// =============================================================================

// Rule describes one holiday.
type Rule struct {
	Name     string
	Month    time.Month
	Day      int                 // Fixed rules; 0 for floating
	Week     generic.MonthlyWeek // Floating rules
	Weekday  time.Weekday        // Floating rules
	Observed bool                // Fixed rules only
}

// Fixed returns a same-date-every-year rule.
func Fixed(name string, month time.Month, day int) Rule {
	return Rule{Name: name, Month: month, Day: day}
}

// Observed returns a fixed rule with weekend substitution.
func Observed(name string, month time.Month, day int) Rule {
	return Rule{Name: name, Month: month, Day: day, Observed: true}
}

// Floating returns an ordinal-weekday rule, e.g. the last Monday of May.
func Floating(name string, month time.Month, week generic.MonthlyWeek, weekday time.Weekday) Rule {
	return Rule{Name: name, Month: month, Week: week, Weekday: weekday}
}

// IsFloating reports whether the rule moves from year to year.
func (r Rule) IsFloating() bool { return r.Day == 0 }

// Expression returns the leaves matching the rule in every year.
func (r Rule) Expression() generic.Expression {
	if r.IsFloating() {
		return generic.Intersection(
			generic.AnnualRangeExpr(generic.MonthRange(r.Month, r.Month)),
			generic.WeekdayOfMonth(anchor, 1, r.Week, generic.WeekdaysOf(r.Weekday)),
		)
	}

	fixed := generic.FixedAnnualDate(r.Month, r.Day)
	if !r.Observed {
		return fixed
	}
	ref := generic.NewDate(referenceYear, r.Month, r.Day)
	before, after := ref.AddDays(-1), ref.AddDays(1)
	return generic.Union(
		fixed,
		generic.Intersection(generic.FixedAnnualDate(before.Month(), before.Day()), generic.DaysOfWeek(generic.Friday)),
		generic.Intersection(generic.FixedAnnualDate(after.Month(), after.Day()), generic.DaysOfWeek(generic.Monday)),
	)
}

// DatesIn returns the rule's dates for one year: the holiday itself and,
// for observed rules falling on a weekend, its substitute.
func (r Rule) DatesIn(year int) []generic.Date {
	if r.IsFloating() {
		return []generic.Date{nthWeekday(year, r.Month, r.Week, r.Weekday)}
	}
	d := generic.NewDate(year, r.Month, r.Day)
	if d.Month() != r.Month {
		return nil // Feb 29 in a common year
	}
	if !r.Observed {
		return []generic.Date{d}
	}
	switch d.Weekday() {
	case time.Saturday:
		return []generic.Date{d.AddDays(-1), d}
	case time.Sunday:
		return []generic.Date{d, d.AddDays(1)}
	}
	return []generic.Date{d}
}

func (r Rule) String() string {
	switch {
	case r.IsFloating():
		return fmt.Sprintf("%s: %s %s of %s", r.Name, r.Week, r.Weekday, r.Month)
	case r.Observed:
		return fmt.Sprintf("%s: %s %d (observed)", r.Name, r.Month, r.Day)
	}
	return fmt.Sprintf("%s: %s %d", r.Name, r.Month, r.Day)
}

// anchor only matters for the month interval of floating rules, which is 1.
var anchor = generic.NewDate(1970, time.January, 1)

// referenceYear is a common year; no rule sits next to Feb 29.
const referenceYear = 2001

// nthWeekday returns the week-th weekday of a month ("last" included).
func nthWeekday(year int, month time.Month, week generic.MonthlyWeek, weekday time.Weekday) generic.Date {
	if week == generic.MonthlyWeekLast {
		last := generic.EndOfMonth(year, month)
		back := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDays(-back)
	}
	first := generic.StartOfMonth(year, month)
	ahead := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDays(ahead + 7*(int(week)-1))
}

// =============================================================================
// SETS
// =============================================================================

// Set is a named group of rules.
type Set struct {
	ID    string
	Name  string
	Rules []Rule
}

// Exclusions returns the union of every rule, valid for all years.
func (s Set) Exclusions() generic.Expression {
	leaves := make([]generic.Expression, 0, len(s.Rules))
	for _, r := range s.Rules {
		leaves = append(leaves, r.Expression())
	}
	return generic.Union(leaves...)
}

// HolidaysIn returns concrete holidays for one year, sorted by date.
func (s Set) HolidaysIn(year int) []generic.Holiday {
	var out []generic.Holiday
	for _, r := range s.Rules {
		for _, d := range r.DatesIn(year) {
			name := r.Name
			if r.Observed && (d.Month() != r.Month || d.Day() != r.Day) {
				name += " (observed)"
			}
			out = append(out, generic.Holiday{
				ID:         holidayID(s.ID, d, name),
				CalendarID: s.ID,
				Date:       d,
				Name:       name,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Calendar materializes the set for storage. Plain fixed rules become one
// recurring holiday; floating and observed rules are expanded for each
// year in [fromYear, toYear].
func (s Set) Calendar(fromYear, toYear int) generic.Calendar {
	cal := generic.Calendar{ID: s.ID, Name: s.Name}
	for _, r := range s.Rules {
		if !r.IsFloating() && !r.Observed {
			d := generic.NewDate(referenceYear, r.Month, r.Day)
			if r.Month == time.February && r.Day == 29 {
				d = generic.NewDate(2000, r.Month, r.Day)
			}
			cal.Holidays = append(cal.Holidays, generic.Holiday{
				ID:         holidayID(s.ID, d, r.Name),
				CalendarID: s.ID,
				Date:       d,
				Name:       r.Name,
				Recurring:  true,
			})
		}
	}
	for year := fromYear; year <= toYear; year++ {
		for _, h := range s.HolidaysIn(year) {
			if !isRecurringIn(cal, h) {
				cal.Holidays = append(cal.Holidays, h)
			}
		}
	}
	sort.SliceStable(cal.Holidays, func(i, j int) bool {
		return cal.Holidays[i].Date.Before(cal.Holidays[j].Date)
	})
	return cal
}

func isRecurringIn(cal generic.Calendar, h generic.Holiday) bool {
	for _, existing := range cal.Holidays {
		if existing.Recurring && existing.Name == h.Name {
			return true
		}
	}
	return false
}

func holidayID(setID string, d generic.Date, name string) string {
	slug := strings.ToLower(strings.NewReplacer(" ", "-", "'", "", "(", "", ")", "").Replace(name))
	return fmt.Sprintf("%s-%s-%s", setID, d, slug)
}

// USFederal returns the US federal holidays (5 U.S.C. 6103).
func USFederal() Set {
	return Set{
		ID:   "us-federal",
		Name: "US federal holidays",
		Rules: []Rule{
			Observed("New Year's Day", time.January, 1),
			Floating("Birthday of Martin Luther King, Jr.", time.January, generic.MonthlyWeekThird, time.Monday),
			Floating("Washington's Birthday", time.February, generic.MonthlyWeekThird, time.Monday),
			Floating("Memorial Day", time.May, generic.MonthlyWeekLast, time.Monday),
			Observed("Juneteenth National Independence Day", time.June, 19),
			Observed("Independence Day", time.July, 4),
			Floating("Labor Day", time.September, generic.MonthlyWeekFirst, time.Monday),
			Floating("Columbus Day", time.October, generic.MonthlyWeekSecond, time.Monday),
			Observed("Veterans Day", time.November, 11),
			Floating("Thanksgiving Day", time.November, generic.MonthlyWeekFourth, time.Thursday),
			Observed("Christmas Day", time.December, 25),
		},
	}
}

// CompanyDefaults returns a small set of fixed holidays.
func CompanyDefaults() Set {
	return Set{
		ID:   "company",
		Name: "Company holidays",
		Rules: []Rule{
			Fixed("New Year's Day", time.January, 1),
			Fixed("Independence Day", time.July, 4),
			Fixed("Christmas Day", time.December, 25),
			Fixed("New Year's Eve", time.December, 31),
		},
	}
}

// Lookup returns a built-in set by ID.
func Lookup(id string) (Set, bool) {
	for _, s := range All() {
		if s.ID == id {
			return s, true
		}
	}
	return Set{}, false
}

// All returns every built-in set.
func All() []Set {
	return []Set{USFederal(), CompanyDefaults()}
}

// =============================================================================
// RESOLUTION
// =============================================================================

// CalendarGetter is the part of generic.Store needed to resolve calendars.
type CalendarGetter interface {
	GetCalendar(ctx context.Context, id string) (generic.Calendar, error)
}

// Compile builds the schedule of rec with its calendar's holidays removed.
// calendarID is the fallback for records without a CalendarID.
// Stored calendars win over built-in sets of the same ID. The returned
// bool is false when the calendar could not be found anywhere; the
// schedule then only honors the event's own excluded dates.
func Compile(ctx context.Context, calendars CalendarGetter, rec generic.EventRecord, calendarID string) (*generic.Schedule, bool, error) {
	if rec.CalendarID != "" {
		calendarID = rec.CalendarID
	}
	if calendarID == "" {
		return rec.Compile(nil), true, nil
	}

	cal, err := calendars.GetCalendar(ctx, calendarID)
	if err == nil {
		return rec.Compile(&cal), true, nil
	}
	if !errors.Is(err, generic.ErrCalendarNotFound) {
		return nil, false, err
	}
	if set, ok := Lookup(calendarID); ok {
		return generic.NewScheduleWithExclusions(rec.Event, generic.Union(rec.Exclusions(nil), set.Exclusions())), true, nil
	}
	return rec.Compile(nil), false, nil
}
