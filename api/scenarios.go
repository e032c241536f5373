/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	events and calendars. Each scenario shows off a different part of the
	engine.

AVAILABLE SCENARIOS:

	team-rituals:  Standup, biweekly payroll, monthly board, quarterly review
	holidays:      Stored holiday calendars excluding occurrences
	seasonal:      Summer Fridays, winter weekends, an anniversary
	rrule-import:  Events created from RFC 5545 rules

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create calendars (built-in sets or inline holidays)
 3. Create events via factory presets or RRULEs

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "holidays"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.
	Start dates are January 1st of the current year.

SEE ALSO:
  - handlers.go: ResetDatabase
  - factory/presets.go: Event JSON definitions
  - holidays/holidays.go: Built-in holiday sets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/occurrence-engine/factory"
	"github.com/warp/occurrence-engine/generic"
	"github.com/warp/occurrence-engine/holidays"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "team-rituals",
		Name:        "Team Rituals",
		Description: "Weekday standup, biweekly payroll, first-Monday board meeting, quarterly review",
	},
	{
		ID:          "holidays",
		Name:        "Holiday Calendars",
		Description: "US federal and company calendars removing occurrences",
	},
	{
		ID:          "seasonal",
		Name:        "Seasonal Events",
		Description: "Summer Fridays, winter weekends across the new year, a yearly anniversary",
	},
	{
		ID:          "rrule-import",
		Name:        "RRULE Import",
		Description: "Events created from RFC 5545 recurrence rules",
	},
}

var scenarioLoaders = map[string]func(h *Handler, ctx context.Context, year int) error{
	"team-rituals": (*Handler).loadTeamRitualsScenario,
	"holidays":     (*Handler).loadHolidaysScenario,
	"seasonal":     (*Handler).loadSeasonalScenario,
	"rrule-import": (*Handler).loadRRuleScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.invalidate()
	h.currentScenario = ""

	if err := load(h, ctx, generic.Today().Year()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadTeamRitualsScenario(ctx context.Context, year int) error {
	start := fmt.Sprintf("%d-01-01", year)
	return h.createEventsFromJSON(ctx,
		factory.DailyStandupJSON("standup", "Daily standup", start),
		factory.BiweeklyJSON("payroll", "Payroll", "fri", start),
		factory.MonthlyByWeekdayJSON("board", "Board meeting", "first", "mon", start),
		factory.QuarterlyReviewJSON("review", "Quarterly review", fmt.Sprintf("%d-01-15", year), 4),
	)
}

func (h *Handler) loadHolidaysScenario(ctx context.Context, year int) error {
	for _, cal := range []generic.Calendar{
		holidays.USFederal().Calendar(year, year+1),
		holidays.CompanyDefaults().Calendar(year, year),
	} {
		if err := h.Store.SaveCalendar(ctx, cal); err != nil {
			return err
		}
	}

	start := fmt.Sprintf("%d-01-01", year)
	if err := h.createEventsFromJSON(ctx,
		withCalendar(factory.DailyStandupJSON("standup-federal", "Standup (federal holidays off)", start), "us-federal"),
		withCalendar(factory.DailyStandupJSON("standup-company", "Standup (company holidays off)", start), "company"),
	); err != nil {
		return err
	}

	// Own exclusions on top of a calendar: the second retro is skipped.
	rec, err := h.Factory.ParseEvent(withCalendar(factory.BiweeklyJSON("retro", "Retro", "thu", start), "us-federal"))
	if err != nil {
		return err
	}
	s := rec.Compile(nil)
	if first, ok := s.FirstOccurrence().Get(); ok {
		if second, ok := s.NextOccurrence(first).Get(); ok {
			rec.ExcludedDates = []generic.Date{second}
		}
	}
	return h.Store.SaveEvent(ctx, rec)
}

func (h *Handler) loadSeasonalScenario(ctx context.Context, year int) error {
	winter := map[string]interface{}{
		"id":           "winter-weekends",
		"title":        "Ski weekends",
		"frequency":    "daily",
		"days_of_week": []string{"sat", "sun"},
		"range_in_year": map[string]interface{}{
			"start_month": 12, "start_day": 15,
			"end_month": 3, "end_day": 15,
		},
		"start_date": fmt.Sprintf("%d-01-01", year),
	}
	b, err := json.Marshal(winter)
	if err != nil {
		return err
	}

	return h.createEventsFromJSON(ctx,
		factory.SummerFridaysJSON("summer-fridays", "Summer Fridays", fmt.Sprintf("%d-01-01", year)),
		factory.AnniversaryJSON("founding", "Founding day", fmt.Sprintf("%d-06-10", year-5)),
		string(b),
	)
}

func (h *Handler) loadRRuleScenario(ctx context.Context, year int) error {
	rules := []struct {
		id, title, rule string
	}{
		{"gym", "Gym", fmt.Sprintf("DTSTART:%d0101T000000Z\nRRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR", year)},
		{"town-hall", "Town hall", fmt.Sprintf("DTSTART:%d0101T000000Z\nRRULE:FREQ=MONTHLY;BYDAY=-1FR;COUNT=12", year)},
		{"backups", "Backup rotation", fmt.Sprintf("DTSTART:%d0103T000000Z\nRRULE:FREQ=DAILY;INTERVAL=4\nEXDATE:%d0204T000000Z", year, year)},
	}
	for _, r := range rules {
		rec, err := factory.FromRRule(r.rule)
		if err != nil {
			return fmt.Errorf("%s: %w", r.id, err)
		}
		rec.Event.ID = r.id
		rec.Event.Title = r.title
		if err := h.Store.SaveEvent(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) createEventsFromJSON(ctx context.Context, defs ...string) error {
	for _, def := range defs {
		rec, err := h.Factory.ParseEvent(def)
		if err != nil {
			return err
		}
		if err := h.Store.SaveEvent(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// withCalendar sets calendar_id on a preset definition.
func withCalendar(def, calendarID string) string {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(def), &m); err != nil {
		return def
	}
	m["calendar_id"] = calendarID
	b, _ := json.Marshal(m)
	return string(b)
}
