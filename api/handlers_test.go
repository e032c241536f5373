/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Event CRUD, generated IDs, validation and conflicts
- Occurrence queries (range, membership, next/previous, first/last)
- Calendar resolution and cache invalidation on calendar writes
- RRULE import/export
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/occurrence-engine/config"
	"github.com/warp/occurrence-engine/store/sqlite"
)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	cfg.MaxRangeDays = 400
	return NewHandler(store, cfg, nil)
}

func setupTestServer(t *testing.T) http.Handler {
	return NewRouter(setupTestHandler(t))
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const backupsJSON = `{
	"id": "backups",
	"frequency": "daily",
	"repeat_interval": 4,
	"start_date": "2013-01-03",
	"number_of_occurrences": 5,
	"excluded_dates": ["2013-02-04"]
}`

func TestCreateEvent_GeneratesID(t *testing.T) {
	srv := setupTestServer(t)

	// WHEN: creating an event without an ID
	rec := do(t, srv, http.MethodPost, "/api/events", `{"frequency": "weekly", "start_date": "2013-01-07"}`)

	// THEN: a UUID is assigned
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[EventDTO](t, rec)
	assert.Len(t, ev.ID, 36)
	assert.Equal(t, "weekly", ev.Frequency)
	assert.False(t, ev.CreatedAt.IsZero())

	// AND: it is listed
	list := decode[[]EventDTO](t, do(t, srv, http.MethodGet, "/api/events", nil))
	require.Len(t, list, 1)
	assert.Equal(t, ev.ID, list[0].ID)
}

func TestCreateEvent_Errors(t *testing.T) {
	srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", backupsJSON).Code)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"duplicate id", backupsJSON, http.StatusConflict},
		{"malformed json", `{"frequency":`, http.StatusBadRequest},
		{"unknown frequency", `{"frequency": "hourly"}`, http.StatusBadRequest},
		{"bad weekday", `{"frequency": "weekly", "days_of_week": ["funday"]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/events", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestOccurrenceQueries(t *testing.T) {
	srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", backupsJSON).Code)

	t.Run("occurrences", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/events/backups/occurrences?from=2013-01-01&to=2013-01-31", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[OccurrencesDTO](t, rec)
		assert.Equal(t, []string{
			"2013-01-03", "2013-01-07", "2013-01-11", "2013-01-15",
			"2013-01-19", "2013-01-23", "2013-01-27", "2013-01-31",
		}, got.Dates)
		assert.Equal(t, 8, got.Count)
	})

	t.Run("occurrences with limit", func(t *testing.T) {
		got := decode[OccurrencesDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/occurrences?from=2013-01-01&to=2013-01-31&limit=2", nil))
		assert.Equal(t, []string{"2013-01-03", "2013-01-07"}, got.Dates)
	})

	t.Run("inverted range is empty", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/events/backups/occurrences?from=2013-02-01&to=2013-01-01", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[OccurrencesDTO](t, rec).Dates)
	})

	t.Run("occurring", func(t *testing.T) {
		assert.True(t, decode[OccurringDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/occurring?date=2013-02-08", nil)).Occurring)
		assert.False(t, decode[OccurringDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/occurring?date=2013-02-04", nil)).Occurring, "excluded")
	})

	t.Run("next and previous", func(t *testing.T) {
		next := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/next?date=2013-01-03", nil))
		require.True(t, next.Found)
		assert.Equal(t, "2013-01-07", *next.Date)

		prev := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/previous?date=2013-01-07", nil))
		require.True(t, prev.Found)
		assert.Equal(t, "2013-01-03", *prev.Date)

		none := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/previous?date=2013-01-03", nil))
		assert.False(t, none.Found)
		assert.Nil(t, none.Date)
	})

	t.Run("next within range", func(t *testing.T) {
		got := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/next?date=2013-01-03&from=2013-01-01&to=2013-01-05", nil))
		assert.False(t, got.Found)
	})

	t.Run("first and last", func(t *testing.T) {
		first := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/first", nil))
		require.True(t, first.Found)
		assert.Equal(t, "2013-01-03", *first.Date)

		last := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/last", nil))
		require.True(t, last.Found)
		assert.Equal(t, "2013-01-19", *last.Date)
	})
}

func TestOccurrenceQueries_Errors(t *testing.T) {
	srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", backupsJSON).Code)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown event", "/api/events/nope/occurrences?from=2013-01-01&to=2013-01-31", http.StatusNotFound},
		{"unknown event next", "/api/events/nope/next?date=2013-01-01", http.StatusNotFound},
		{"missing to", "/api/events/backups/occurrences?from=2013-01-01", http.StatusBadRequest},
		{"bad date", "/api/events/backups/occurring?date=01/02/2013", http.StatusBadRequest},
		{"range too long", "/api/events/backups/occurrences?from=2013-01-01&to=2015-01-01", http.StatusBadRequest},
		{"bad limit", "/api/events/backups/occurrences?from=2013-01-01&to=2013-01-31&limit=0", http.StatusBadRequest},
		{"half range on next", "/api/events/backups/next?date=2013-01-01&from=2013-01-01", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateEvent_InvalidatesSchedule(t *testing.T) {
	srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", backupsJSON).Code)

	// GIVEN: a cached schedule
	before := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/next?date=2013-01-03", nil))
	require.Equal(t, "2013-01-07", *before.Date)

	// WHEN: the interval changes
	rec := do(t, srv, http.MethodPut, "/api/events/backups", `{"frequency": "daily", "repeat_interval": 2, "start_date": "2013-01-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "backups", decode[EventDTO](t, rec).ID, "path ID wins")

	// THEN: queries see the new definition
	after := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/next?date=2013-01-03", nil))
	assert.Equal(t, "2013-01-05", *after.Date)

	// AND: updating a missing event is a 404
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, "/api/events/nope", `{"frequency": "daily"}`).Code)
}

func TestDeleteEvent(t *testing.T) {
	srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", backupsJSON).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/events/backups/first", nil).Code)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/events/backups", nil).Code)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/events/backups", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/events/backups/first", nil).Code, "cache dropped")
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/events/backups", nil).Code)
}

func TestBuiltInCalendar(t *testing.T) {
	srv := setupTestServer(t)

	// GIVEN: a weekday event on the built-in federal set, not stored
	body := `{"id": "standup", "frequency": "every_weekday", "start_date": "2013-01-01", "calendar_id": "us-federal"}`
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", body).Code)

	// THEN: federal holidays are skipped
	occurring := func(date string) bool {
		return decode[OccurringDTO](t, do(t, srv, http.MethodGet, "/api/events/standup/occurring?date="+date, nil)).Occurring
	}
	assert.False(t, occurring("2013-01-01"), "New Year's Day")
	assert.False(t, occurring("2013-11-28"), "Thanksgiving")
	assert.True(t, occurring("2013-11-27"))

	next := decode[DateResultDTO](t, do(t, srv, http.MethodGet, "/api/events/standup/next?date=2013-11-27", nil))
	assert.Equal(t, "2013-11-29", *next.Date)
}

func TestDefaultCalendarFromConfig(t *testing.T) {
	h := setupTestHandler(t)
	h.Config.DefaultCalendar = "us-federal"
	srv := NewRouter(h)

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", `{"id": "standup", "frequency": "every_weekday", "start_date": "2013-01-01"}`).Code)

	got := decode[OccurringDTO](t, do(t, srv, http.MethodGet, "/api/events/standup/occurring?date=2013-07-04", nil))
	assert.False(t, got.Occurring)
}

func TestStoredCalendar_InvalidatesOnHolidayChange(t *testing.T) {
	srv := setupTestServer(t)

	// GIVEN: a stored calendar and an event using it
	rec := do(t, srv, http.MethodPost, "/api/calendars", `{"id": "office", "name": "Office", "holidays": [{"date": "2013-01-02", "name": "Move"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cal := decode[CalendarDTO](t, rec)
	require.Len(t, cal.Holidays, 1)
	assert.NotEmpty(t, cal.Holidays[0].ID)

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events",
		`{"id": "standup", "frequency": "every_weekday", "start_date": "2013-01-01", "calendar_id": "office"}`).Code)

	occurring := func(date string) bool {
		return decode[OccurringDTO](t, do(t, srv, http.MethodGet, "/api/events/standup/occurring?date="+date, nil)).Occurring
	}
	assert.False(t, occurring("2013-01-02"))
	assert.True(t, occurring("2013-01-03"))

	// WHEN: a holiday is added
	rec = do(t, srv, http.MethodPost, "/api/calendars/office/holidays", `{"id": "move-2", "date": "2013-01-03", "name": "Move, day two"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: the cached schedule is rebuilt
	assert.False(t, occurring("2013-01-03"))

	// WHEN: it is deleted again
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/calendars/office/holidays/move-2", nil).Code)
	assert.True(t, occurring("2013-01-03"))

	// AND: holidays on a missing calendar are a 404
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/calendars/nope/holidays", `{"date": "2013-01-03", "name": "x"}`).Code)
}

func TestCalendarEndpoints(t *testing.T) {
	srv := setupTestServer(t)

	// Built-in sets
	sets := decode[[]HolidaySetDTO](t, do(t, srv, http.MethodGet, "/api/calendars/sets", nil))
	require.Len(t, sets, 2)
	assert.Equal(t, "us-federal", sets[0].ID)
	assert.Len(t, sets[0].Rules, 11)

	// Materialize one
	rec := do(t, srv, http.MethodPost, "/api/calendars/defaults", `{"set": "us-federal", "from_year": 2013, "to_year": 2014}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cal := decode[CalendarDTO](t, rec)
	assert.Equal(t, "us-federal", cal.ID)
	assert.NotEmpty(t, cal.Holidays)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/calendars/defaults", `{"set": "mars"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/calendars/defaults", `{"set": "company", "from_year": 2014, "to_year": 2013}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/calendars", `{"name": "no id"}`).Code)

	// List, get, delete
	list := decode[[]CalendarDTO](t, do(t, srv, http.MethodGet, "/api/calendars", nil))
	require.Len(t, list, 1)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/calendars/us-federal", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/calendars/us-federal", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/calendars/us-federal", nil).Code)
}

func TestRRuleEndpoints(t *testing.T) {
	srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events", backupsJSON).Code)

	// Export
	out := decode[RRuleDTO](t, do(t, srv, http.MethodGet, "/api/events/backups/rrule", nil))
	assert.Contains(t, out.RRule, "DTSTART:20130103T000000Z")
	assert.Contains(t, out.RRule, "INTERVAL=4")
	assert.Contains(t, out.RRule, "COUNT=5")
	assert.Contains(t, out.RRule, "EXDATE:20130204T000000Z")

	// Import
	rec := do(t, srv, http.MethodPost, "/api/events/rrule", ImportRRuleRequest{
		ID:    "gym",
		Title: "Gym",
		RRule: "DTSTART:20130101T000000Z\nRRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[EventDTO](t, rec)
	assert.Equal(t, "mon_wed_fri", ev.Frequency)
	assert.Equal(t, "Gym", ev.Title)

	// Unsupported
	rec = do(t, srv, http.MethodPost, "/api/events/rrule", ImportRRuleRequest{RRule: "DTSTART:20130101T000000Z\nRRULE:FREQ=HOURLY"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Day-precise range cannot be exported
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/events",
		`{"id": "ski", "frequency": "daily", "range_in_year": {"start_month": 12, "start_day": 15, "end_month": 3, "end_day": 15}}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodGet, "/api/events/ski/rrule", nil).Code)
}
