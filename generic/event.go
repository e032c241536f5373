/*
event.go - Recurring event configuration

PURPOSE:
  Event is the input to the engine: how often something recurs, on which
  weekdays, inside which part of the year, and between which limits.
  It is a plain value; a Schedule compiles it once into expression trees.

FIELDS:
  Frequency           none, daily, weekly, monthly, quarterly, yearly, or a
                      weekday pattern (every weekday, Mon/Wed/Fri, Tue/Thu)
  RepeatInterval      every n-th cycle; 0 and 1 both mean every cycle
  DaysOfWeek          weekday set for weekly kinds (and daily filtering)
  MonthlyWeek         ordinal week for "2nd Tuesday" style monthly events
  RangeInYear         optional yearly window, e.g. June through August
  StartDate/EndDate   optional inclusive limits; EndDate also ends the schedule
  NumberOfOccurrences optional total count

DEGRADATION:
  Nothing here is validated. An EndDate before StartDate yields an empty
  schedule; a RangeInYear with one day bound behaves as whole months.

SEE ALSO:
  - frequency.go: Frequency -> Expression
  - schedule.go: Query surface
  - factory/event.go: JSON/YAML representation
*/
package generic

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// =============================================================================
// FREQUENCY
// =============================================================================

type Frequency string

const (
	FrequencyNone         Frequency = "none"
	FrequencyDaily        Frequency = "daily"
	FrequencyWeekly       Frequency = "weekly"
	FrequencyMonthly      Frequency = "monthly"
	FrequencyQuarterly    Frequency = "quarterly"
	FrequencyYearly       Frequency = "yearly"
	FrequencyEveryWeekday Frequency = "every_weekday"
	FrequencyMonWedFri    Frequency = "mon_wed_fri"
	FrequencyTueThu       Frequency = "tue_thu"
)

var frequencies = []Frequency{
	FrequencyNone, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly,
	FrequencyYearly, FrequencyEveryWeekday, FrequencyMonWedFri, FrequencyTueThu,
}

// ParseFrequency maps a name to a Frequency. The empty string means none.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FrequencyNone, nil
	}
	for _, f := range frequencies {
		if string(f) == s {
			return f, nil
		}
	}
	return FrequencyNone, &InvalidFieldError{Field: "frequency", Value: s}
}

// IsWeekdayPattern reports the fixed-weekday kinds.
func (f Frequency) IsWeekdayPattern() bool {
	return f == FrequencyEveryWeekday || f == FrequencyMonWedFri || f == FrequencyTueThu
}

// patternDays is the fixed weekday set of a weekday-pattern kind.
func (f Frequency) patternDays() Weekdays {
	switch f {
	case FrequencyEveryWeekday:
		return WorkWeek
	case FrequencyMonWedFri:
		return MonWedFriSet
	case FrequencyTueThu:
		return TueThuSet
	}
	return NoWeekdays
}

// =============================================================================
// MONTHLY WEEK - "first Monday", "last Friday"
// =============================================================================

type MonthlyWeek int

const (
	MonthlyWeekNone MonthlyWeek = iota
	MonthlyWeekFirst
	MonthlyWeekSecond
	MonthlyWeekThird
	MonthlyWeekFourth
	MonthlyWeekLast
)

var monthlyWeekNames = []string{"", "first", "second", "third", "fourth", "last"}

func ParseMonthlyWeek(s string) (MonthlyWeek, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range monthlyWeekNames {
		if name == s {
			return MonthlyWeek(i), nil
		}
	}
	return MonthlyWeekNone, &InvalidFieldError{Field: "monthly_week", Value: s}
}

func (w MonthlyWeek) String() string {
	if w < MonthlyWeekNone || int(w) >= len(monthlyWeekNames) {
		return fmt.Sprintf("week(%d)", int(w))
	}
	return monthlyWeekNames[w]
}

// matches reports whether d sits in this ordinal week of its month.
func (w MonthlyWeek) matches(d Date) bool {
	switch w {
	case MonthlyWeekFirst, MonthlyWeekSecond, MonthlyWeekThird, MonthlyWeekFourth:
		return (d.Day()-1)/7+1 == int(w)
	case MonthlyWeekLast:
		return d.AddDays(7).Month() != d.Month()
	}
	return false
}

// =============================================================================
// ANNUAL RANGE - Yearly window, optionally day-precise
// =============================================================================

// AnnualRange restricts an event to part of every year. StartDay and EndDay
// are honored only when both are present; otherwise the window covers whole
// months. When the end precedes the start the window wraps across Dec 31
// (Nov 1 - Feb 28 spans two calendar years).
type AnnualRange struct {
	StartMonth time.Month
	StartDay   mo.Option[int]
	EndMonth   time.Month
	EndDay     mo.Option[int]
}

// MonthRange builds a whole-month window.
func MonthRange(start, end time.Month) AnnualRange {
	return AnnualRange{StartMonth: start, EndMonth: end}
}

// DayRange builds a day-precise window.
func DayRange(startMonth time.Month, startDay int, endMonth time.Month, endDay int) AnnualRange {
	return AnnualRange{
		StartMonth: startMonth,
		StartDay:   mo.Some(startDay),
		EndMonth:   endMonth,
		EndDay:     mo.Some(endDay),
	}
}

// HasDays reports whether day-of-month bounds apply (both present).
func (r AnnualRange) HasDays() bool {
	return r.StartDay.IsPresent() && r.EndDay.IsPresent()
}

// Includes compares (month, day) tuples; with no day bounds only months count.
func (r AnnualRange) Includes(d Date) bool {
	start := int(r.StartMonth) * 100
	end := int(r.EndMonth) * 100
	x := int(d.Month()) * 100
	if r.HasDays() {
		start += r.StartDay.MustGet()
		end += r.EndDay.MustGet()
		x += d.Day()
	}
	if start <= end {
		return start <= x && x <= end
	}
	return x >= start || x <= end
}

func (r AnnualRange) String() string {
	if r.HasDays() {
		return fmt.Sprintf("%02d-%02d..%02d-%02d", int(r.StartMonth), r.StartDay.MustGet(), int(r.EndMonth), r.EndDay.MustGet())
	}
	return fmt.Sprintf("%02d..%02d", int(r.StartMonth), int(r.EndMonth))
}

// =============================================================================
// EVENT
// =============================================================================

type Event struct {
	ID                  string
	Title               string
	Frequency           Frequency
	RepeatInterval      int
	DaysOfWeek          Weekdays
	MonthlyWeek         MonthlyWeek
	RangeInYear         mo.Option[AnnualRange]
	StartDate           mo.Option[Date]
	EndDate             mo.Option[Date]
	NumberOfOccurrences mo.Option[int]
}

// DateIsWithinLimits reports whether d lies inside [StartDate, EndDate];
// a missing bound is open.
func (e Event) DateIsWithinLimits(d Date) bool {
	return e.EventLimitsAsRange().Contains(d)
}

// EventLimitsAsRange returns the limits with MinDate/MaxDate for open ends.
func (e Event) EventLimitsAsRange() DateRange {
	return DateRange{
		Start: e.StartDate.OrElse(MinDate),
		End:   e.EndDate.OrElse(MaxDate),
	}
}

// anchor is the reference date interval leaves count from.
func (e Event) anchor() Date {
	return e.StartDate.OrElse(epoch)
}

var epoch = NewDate(1970, time.January, 1)
