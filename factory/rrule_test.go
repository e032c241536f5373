package factory_test

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/occurrence-engine/factory"
	"github.com/warp/occurrence-engine/generic"
)

func toDates(ts []time.Time) []generic.Date {
	out := make([]generic.Date, 0, len(ts))
	for _, t := range ts {
		out = append(out, generic.DateOf(t))
	}
	return out
}

func TestToRRule_Format(t *testing.T) {
	rec := generic.EventRecord{
		Event: generic.Event{
			Frequency:      generic.FrequencyDaily,
			RepeatInterval: 4,
			StartDate:      mo.Some(date(2013, time.January, 3)),
		},
		ExcludedDates: []generic.Date{date(2013, time.February, 4)},
	}

	s, err := factory.ToRRule(rec)
	require.NoError(t, err)
	assert.Equal(t, "DTSTART:20130103T000000Z\nRRULE:FREQ=DAILY;INTERVAL=4\nEXDATE:20130204T000000Z", s)
}

func TestToRRule_MonthlyOrdinal(t *testing.T) {
	rec := generic.EventRecord{Event: generic.Event{
		Frequency:   generic.FrequencyMonthly,
		MonthlyWeek: generic.MonthlyWeekLast,
		DaysOfWeek:  generic.Friday,
		StartDate:   mo.Some(date(2013, time.January, 1)),
		EndDate:     mo.Some(date(2013, time.June, 30)),
	}}

	s, err := factory.ToRRule(rec)
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=MONTHLY")
	assert.Contains(t, s, "UNTIL=20130630T000000Z")
	assert.Contains(t, s, "BYDAY=-1FR")
}

func TestToRRule_Unsupported(t *testing.T) {
	tests := []struct {
		name  string
		event generic.Event
	}{
		{"day precise range", generic.Event{
			Frequency:   generic.FrequencyDaily,
			RangeInYear: mo.Some(generic.DayRange(time.March, 15, time.May, 10)),
		}},
		{"one-off without start", generic.Event{Frequency: generic.FrequencyNone}},
		{"yearly outside range", generic.Event{
			Frequency:   generic.FrequencyYearly,
			StartDate:   mo.Some(date(2013, time.January, 10)),
			RangeInYear: mo.Some(generic.MonthRange(time.June, time.August)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ToRRule(generic.EventRecord{Event: tt.event})
			assert.ErrorIs(t, err, factory.ErrUnsupportedRRule)
		})
	}
}

// The engine and rrule-go must agree on every event both can express.
func TestRRule_CrossCheckOccurrences(t *testing.T) {
	window := generic.NewDateRange(date(2012, time.January, 1), date(2015, time.December, 31))

	tests := []struct {
		name     string
		event    generic.Event
		excluded []generic.Date
	}{
		{"daily every four days", generic.Event{
			Frequency: generic.FrequencyDaily, RepeatInterval: 4,
			StartDate: mo.Some(date(2013, time.January, 3)),
		}, []generic.Date{date(2013, time.February, 4)}},
		{"daily weekends in summer", generic.Event{
			Frequency: generic.FrequencyDaily, DaysOfWeek: generic.Saturday | generic.Sunday,
			RangeInYear: mo.Some(generic.MonthRange(time.June, time.August)),
			StartDate:   mo.Some(date(2013, time.January, 1)),
		}, nil},
		{"biweekly mon wed", generic.Event{
			Frequency: generic.FrequencyWeekly, RepeatInterval: 2, DaysOfWeek: generic.Monday | generic.Wednesday,
			StartDate: mo.Some(date(2013, time.January, 7)),
		}, nil},
		{"every third week incl sunday", generic.Event{
			Frequency: generic.FrequencyWeekly, RepeatInterval: 3, DaysOfWeek: generic.Sunday | generic.Wednesday,
			StartDate: mo.Some(date(2013, time.January, 2)),
		}, nil},
		{"tue thu until", generic.Event{
			Frequency: generic.FrequencyTueThu,
			StartDate: mo.Some(date(2013, time.January, 1)),
			EndDate:   mo.Some(date(2013, time.March, 31)),
		}, []generic.Date{date(2013, time.January, 10)}},
		{"second tuesday", generic.Event{
			Frequency: generic.FrequencyMonthly, MonthlyWeek: generic.MonthlyWeekSecond, DaysOfWeek: generic.Tuesday,
			StartDate: mo.Some(date(2013, time.January, 1)),
		}, nil},
		{"last friday every other month", generic.Event{
			Frequency: generic.FrequencyMonthly, RepeatInterval: 2, MonthlyWeek: generic.MonthlyWeekLast, DaysOfWeek: generic.Friday,
			StartDate: mo.Some(date(2013, time.January, 1)),
		}, nil},
		{"monthly on the 31st", generic.Event{
			Frequency: generic.FrequencyMonthly,
			StartDate: mo.Some(date(2013, time.January, 31)),
		}, nil},
		{"quarterly", generic.Event{
			Frequency: generic.FrequencyQuarterly,
			StartDate: mo.Some(date(2013, time.January, 15)),
		}, nil},
		{"leap day yearly", generic.Event{
			Frequency: generic.FrequencyYearly,
			StartDate: mo.Some(date(2012, time.February, 29)),
		}, nil},
		{"one-off", generic.Event{
			Frequency: generic.FrequencyNone,
			StartDate: mo.Some(date(2013, time.May, 5)),
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := generic.EventRecord{Event: tt.event, ExcludedDates: tt.excluded}

			set, err := factory.ToRRuleSet(rec)
			require.NoError(t, err)
			want := toDates(set.Between(window.Start.Time(), window.End.Time(), true))

			got := rec.Compile(nil).Occurrences(window)
			assert.Equal(t, want, got)
		})
	}
}

func TestRRule_CrossCheckLastOccurrence(t *testing.T) {
	// Excluded dates count towards COUNT on both sides.
	rec := generic.EventRecord{
		Event: generic.Event{
			Frequency:           generic.FrequencyEveryWeekday,
			StartDate:           mo.Some(date(2013, time.January, 1)),
			NumberOfOccurrences: mo.Some(30),
		},
		ExcludedDates: []generic.Date{date(2013, time.February, 11)},
	}

	set, err := factory.ToRRuleSet(rec)
	require.NoError(t, err)
	all := set.All()
	require.NotEmpty(t, all)

	last, ok := rec.Compile(nil).LastOccurrenceDate().Get()
	require.True(t, ok)
	assert.Equal(t, generic.DateOf(all[len(all)-1]), last)
}

func TestFromRRule(t *testing.T) {
	rec, err := factory.FromRRule("DTSTART:20130103T000000Z\nRRULE:FREQ=DAILY;INTERVAL=4;COUNT=10\nEXDATE:20130107T000000Z")
	require.NoError(t, err)

	e := rec.Event
	assert.Equal(t, generic.FrequencyDaily, e.Frequency)
	assert.Equal(t, 4, e.RepeatInterval)
	assert.Equal(t, mo.Some(date(2013, time.January, 3)), e.StartDate)
	assert.Equal(t, mo.Some(10), e.NumberOfOccurrences)
	assert.Equal(t, []generic.Date{date(2013, time.January, 7)}, rec.ExcludedDates)
}

func TestFromRRule_Mappings(t *testing.T) {
	tests := []struct {
		name  string
		rule  string
		check func(t *testing.T, e generic.Event)
	}{
		{"weekday pattern", "DTSTART:20130101T000000Z\nRRULE:FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR", func(t *testing.T, e generic.Event) {
			assert.Equal(t, generic.FrequencyEveryWeekday, e.Frequency)
		}},
		{"weekly days", "DTSTART:20130101T000000Z\nRRULE:FREQ=WEEKLY;INTERVAL=2;WKST=SU;BYDAY=SU,SA", func(t *testing.T, e generic.Event) {
			assert.Equal(t, generic.FrequencyWeekly, e.Frequency)
			assert.Equal(t, generic.Saturday|generic.Sunday, e.DaysOfWeek)
			assert.Equal(t, 2, e.RepeatInterval)
		}},
		{"ordinal weekday", "DTSTART:20130101T000000Z\nRRULE:FREQ=MONTHLY;BYDAY=3TH", func(t *testing.T, e generic.Event) {
			assert.Equal(t, generic.FrequencyMonthly, e.Frequency)
			assert.Equal(t, generic.MonthlyWeekThird, e.MonthlyWeek)
			assert.Equal(t, generic.Thursday, e.DaysOfWeek)
		}},
		{"last weekday", "DTSTART:20130101T000000Z\nRRULE:FREQ=MONTHLY;BYDAY=-1MO", func(t *testing.T, e generic.Event) {
			assert.Equal(t, generic.MonthlyWeekLast, e.MonthlyWeek)
		}},
		{"wrapping months", "DTSTART:20130101T000000Z\nRRULE:FREQ=DAILY;BYMONTH=12,1,2,11", func(t *testing.T, e generic.Event) {
			assert.Equal(t, mo.Some(generic.MonthRange(time.November, time.February)), e.RangeInYear)
		}},
		{"until", "DTSTART:20130101T000000Z\nRRULE:FREQ=YEARLY;UNTIL=20201231T000000Z", func(t *testing.T, e generic.Event) {
			assert.Equal(t, generic.FrequencyYearly, e.Frequency)
			assert.Equal(t, mo.Some(date(2020, time.December, 31)), e.EndDate)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := factory.FromRRule(tt.rule)
			require.NoError(t, err)
			tt.check(t, rec.Event)
		})
	}
}

func TestFromRRule_Unsupported(t *testing.T) {
	rules := []string{
		"DTSTART:20130101T000000Z\nRRULE:FREQ=HOURLY",
		"DTSTART:20130101T000000Z\nRRULE:FREQ=MONTHLY;BYMONTHDAY=1,15",
		"DTSTART:20130101T000000Z\nRRULE:FREQ=MONTHLY;BYDAY=MO;BYSETPOS=1",
		"DTSTART:20130101T000000Z\nRRULE:FREQ=MONTHLY;BYDAY=1MO,2TU",
		"DTSTART:20130101T000000Z\nRRULE:FREQ=DAILY;BYMONTH=1,3",
		"DTSTART:20130101T000000Z\nRRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=SU",
	}
	for _, rule := range rules {
		_, err := factory.FromRRule(rule)
		assert.ErrorIs(t, err, factory.ErrUnsupportedRRule, rule)
	}
}

func TestRRule_RoundTrip(t *testing.T) {
	original := generic.EventRecord{
		Event: generic.Event{
			Frequency:      generic.FrequencyWeekly,
			RepeatInterval: 2,
			DaysOfWeek:     generic.Monday | generic.Thursday,
			StartDate:      mo.Some(date(2013, time.January, 7)),
			EndDate:        mo.Some(date(2013, time.June, 30)),
		},
		ExcludedDates: []generic.Date{date(2013, time.January, 10)},
	}

	s, err := factory.ToRRule(original)
	require.NoError(t, err)
	back, err := factory.FromRRule(s)
	require.NoError(t, err)

	r := generic.NewDateRange(date(2013, time.January, 1), date(2013, time.December, 31))
	assert.Equal(t, original.Compile(nil).Occurrences(r), back.Compile(nil).Occurrences(r))
}
