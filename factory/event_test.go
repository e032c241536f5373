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

func date(y int, m time.Month, d int) generic.Date {
	return generic.NewDate(y, m, d)
}

func TestParseEvent_FullDefinition(t *testing.T) {
	// GIVEN: a JSON definition using every field
	jsonStr := `{
		"id": "standup",
		"title": "Standup",
		"frequency": "weekly",
		"repeat_interval": 2,
		"days_of_week": ["mon", "Wednesday"],
		"range_in_year": {"start_month": 11, "start_day": 1, "end_month": 2, "end_day": 28},
		"start_date": "2013-01-07",
		"end_date": "2013-12-31",
		"number_of_occurrences": 10,
		"excluded_dates": ["2013-01-09"],
		"calendar_id": "us-federal"
	}`

	// WHEN: parsed
	rec, err := factory.NewEventFactory().ParseEvent(jsonStr)
	require.NoError(t, err)

	// THEN: every field lands on the record
	e := rec.Event
	assert.Equal(t, "standup", e.ID)
	assert.Equal(t, generic.FrequencyWeekly, e.Frequency)
	assert.Equal(t, 2, e.RepeatInterval)
	assert.Equal(t, generic.Monday|generic.Wednesday, e.DaysOfWeek)
	assert.Equal(t, mo.Some(generic.DayRange(time.November, 1, time.February, 28)), e.RangeInYear)
	assert.Equal(t, mo.Some(date(2013, time.January, 7)), e.StartDate)
	assert.Equal(t, mo.Some(date(2013, time.December, 31)), e.EndDate)
	assert.Equal(t, mo.Some(10), e.NumberOfOccurrences)
	assert.Equal(t, []generic.Date{date(2013, time.January, 9)}, rec.ExcludedDates)
	assert.Equal(t, "us-federal", rec.CalendarID)

	s := rec.Compile(nil)
	assert.True(t, s.IsOccurring(date(2013, time.January, 7)))
	assert.False(t, s.IsOccurring(date(2013, time.January, 9)), "excluded")
}

func TestParseEvent_Defaults(t *testing.T) {
	rec, err := factory.NewEventFactory().ParseEvent(`{"start_date": "2013-05-05"}`)
	require.NoError(t, err)

	assert.Equal(t, generic.FrequencyNone, rec.Event.Frequency)
	assert.True(t, rec.Event.EndDate.IsAbsent())
	assert.True(t, rec.Event.NumberOfOccurrences.IsAbsent())
	assert.True(t, rec.Compile(nil).IsOccurring(date(2013, time.May, 5)))
}

func TestParseEvent_InvalidFields(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		field string
	}{
		{"frequency", `{"frequency": "fortnightly"}`, "frequency"},
		{"interval", `{"frequency": "daily", "repeat_interval": -1}`, "repeat_interval"},
		{"weekday", `{"frequency": "weekly", "days_of_week": ["funday"]}`, "days_of_week"},
		{"monthly week", `{"frequency": "monthly", "monthly_week": "fifth"}`, "monthly_week"},
		{"start date", `{"frequency": "daily", "start_date": "01/03/2013"}`, "start_date"},
		{"count", `{"frequency": "daily", "number_of_occurrences": -3}`, "number_of_occurrences"},
		{"month", `{"frequency": "daily", "range_in_year": {"start_month": 0, "end_month": 3}}`, "range_in_year.start_month"},
		{"day", `{"frequency": "daily", "range_in_year": {"start_month": 1, "start_day": 32, "end_month": 3, "end_day": 1}}`, "range_in_year.start_day"},
		{"excluded", `{"frequency": "daily", "excluded_dates": ["soon"]}`, "excluded_dates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.NewEventFactory().ParseEvent(tt.json)
			var fieldErr *generic.InvalidFieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.field, fieldErr.Field)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestParseEvent_MalformedJSON(t *testing.T) {
	_, err := factory.NewEventFactory().ParseEvent(`{"frequency":`)
	assert.Error(t, err)
}

func TestParseEvent_EndBeforeStartAccepted(t *testing.T) {
	rec, err := factory.NewEventFactory().ParseEvent(`{"frequency": "daily", "start_date": "2013-03-01", "end_date": "2013-02-01"}`)
	require.NoError(t, err)
	assert.False(t, rec.Compile(nil).IsOccurring(date(2013, time.February, 15)))
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewEventFactory()
	original := generic.EventRecord{
		Event: generic.Event{
			ID:                  "board",
			Title:               "Board meeting",
			Frequency:           generic.FrequencyMonthly,
			RepeatInterval:      1,
			DaysOfWeek:          generic.Monday,
			MonthlyWeek:         generic.MonthlyWeekFirst,
			RangeInYear:         mo.Some(generic.MonthRange(time.January, time.October)),
			StartDate:           mo.Some(date(2013, time.January, 1)),
			NumberOfOccurrences: mo.Some(6),
		},
		ExcludedDates: []generic.Date{date(2013, time.March, 4)},
		CalendarID:    "company",
	}

	s, err := f.ToJSONString(original)
	require.NoError(t, err)
	back, err := f.ParseEvent(s)
	require.NoError(t, err)

	assert.Equal(t, original, back)
}

func TestParseEventYAML(t *testing.T) {
	doc := []byte(`
id: payroll
frequency: weekly
repeat_interval: 2
days_of_week: [fri]
start_date: 2013-01-04
`)
	rec, err := factory.NewEventFactory().ParseEventYAML(doc)
	require.NoError(t, err)

	s := rec.Compile(nil)
	assert.True(t, s.IsOccurring(date(2013, time.January, 18)))
	assert.False(t, s.IsOccurring(date(2013, time.January, 11)))
}

func TestParseEventsFile(t *testing.T) {
	doc := []byte(`
events:
  - title: Standup
    frequency: every_weekday
    start_date: 2013-01-01
    calendar_id: office
  - id: review
    frequency: quarterly
    start_date: 2013-01-15
calendars:
  - id: office
    name: Office closures
    holidays:
      - date: 2013-12-25
        name: Christmas
        recurring: true
      - date: 2013-01-02
        name: Move day
`)
	records, calendars, err := factory.NewEventFactory().ParseEventsFile(doc)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, calendars, 1)

	assert.Equal(t, "event-1", records[0].Event.ID, "missing IDs are numbered")
	assert.Equal(t, "review", records[1].Event.ID)

	cal := calendars[0]
	assert.Len(t, cal.Holidays, 2)
	assert.Equal(t, "office", cal.Holidays[0].CalendarID)

	s := records[0].Compile(&cal)
	assert.False(t, s.IsOccurring(date(2014, time.December, 25)), "recurring holiday")
	assert.False(t, s.IsOccurring(date(2013, time.January, 2)), "one-off holiday")
	assert.True(t, s.IsOccurring(date(2013, time.January, 3)))
}

func TestParseEventsFile_ReportsIndex(t *testing.T) {
	_, _, err := factory.NewEventFactory().ParseEventsFile([]byte("events:\n  - frequency: hourly\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event 0")
	assert.ErrorIs(t, err, generic.ErrInvalidField)
}

func TestPresets(t *testing.T) {
	f := factory.NewEventFactory()

	tests := []struct {
		name string
		json string
		on   generic.Date
		off  generic.Date
	}{
		{"standup", factory.DailyStandupJSON("standup", "Standup", "2013-01-07"), date(2013, time.January, 11), date(2013, time.January, 12)},
		{"biweekly", factory.BiweeklyJSON("pay", "Payroll", "fri", "2013-01-04"), date(2013, time.January, 18), date(2013, time.January, 11)},
		{"monthly", factory.MonthlyByWeekdayJSON("board", "Board", "first", "mon", "2013-01-01"), date(2013, time.February, 4), date(2013, time.February, 11)},
		{"quarterly", factory.QuarterlyReviewJSON("review", "Review", "2013-01-15", 4), date(2013, time.April, 15), date(2013, time.February, 15)},
		{"summer", factory.SummerFridaysJSON("summer", "Summer Fridays", "2013-01-01"), date(2013, time.July, 5), date(2013, time.September, 6)},
		{"anniversary", factory.AnniversaryJSON("anniv", "Anniversary", "2010-06-10"), date(2013, time.June, 10), date(2013, time.June, 11)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := f.ParseEvent(tt.json)
			require.NoError(t, err)
			s := rec.Compile(nil)
			assert.True(t, s.IsOccurring(tt.on), tt.on.String())
			assert.False(t, s.IsOccurring(tt.off), tt.off.String())
		})
	}
}
