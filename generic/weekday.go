package generic

import (
	"fmt"
	"strings"
	"time"
)

// Weekdays is a set of days of the week, one bit per time.Weekday.
type Weekdays uint8

const (
	Sunday Weekdays = 1 << iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

const (
	NoWeekdays   Weekdays = 0
	WorkWeek              = Monday | Tuesday | Wednesday | Thursday | Friday
	MonWedFriSet          = Monday | Wednesday | Friday
	TueThuSet             = Tuesday | Thursday
	AllWeekdays           = WorkWeek | Saturday | Sunday
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday, "su": time.Sunday,
	"mon": time.Monday, "monday": time.Monday, "mo": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "tu": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "we": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "th": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "fr": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "sa": time.Saturday,
}

// WeekdaysOf builds a set from individual days.
func WeekdaysOf(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w = w.With(d)
	}
	return w
}

// ParseWeekday accepts English names and two/three letter abbreviations.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidField, s)
	}
	return wd, nil
}

func (w Weekdays) With(d time.Weekday) Weekdays { return w | 1<<uint(d) }
func (w Weekdays) Has(d time.Weekday) bool      { return w&(1<<uint(d)) != 0 }
func (w Weekdays) IsEmpty() bool                { return w == NoWeekdays }

// Days lists the members in Sunday-first order.
func (w Weekdays) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (w Weekdays) String() string {
	if w.IsEmpty() {
		return "none"
	}
	names := make([]string, 0, 7)
	for _, d := range w.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}
