/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario sets up the expected state and that the
	loaded events answer queries through the API.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/occurrence-engine/generic"
)

func TestScenarios_Load(t *testing.T) {
	tests := []struct {
		id        string
		events    int
		calendars int
	}{
		{"team-rituals", 4, 0},
		{"holidays", 3, 2},
		{"seasonal", 3, 0},
		{"rrule-import", 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			// GIVEN: an empty store
			h := setupTestHandler(t)
			ctx := context.Background()

			// WHEN: loading the scenario
			require.NoError(t, scenarioLoaders[tt.id](h, ctx, 2013))

			// THEN: the expected records exist
			events, err := h.Store.ListEvents(ctx)
			require.NoError(t, err)
			assert.Len(t, events, tt.events)

			cals, err := h.Store.ListCalendars(ctx)
			require.NoError(t, err)
			assert.Len(t, cals, tt.calendars)

			// AND: every event compiles
			for _, rec := range events {
				_, err := h.schedule(ctx, rec.Event.ID)
				assert.NoError(t, err, rec.Event.ID)
			}
		})
	}
}

func TestScenarios_EveryListedScenarioHasALoader(t *testing.T) {
	for _, s := range scenarios {
		assert.Contains(t, scenarioLoaders, s.ID)
	}
	assert.Len(t, scenarioLoaders, len(scenarios))
}

func TestScenario_HolidaysExcludeOccurrences(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadHolidaysScenario(ctx, 2013))

	federal, err := h.schedule(ctx, "standup-federal")
	require.NoError(t, err)
	company, err := h.schedule(ctx, "standup-company")
	require.NoError(t, err)

	thanksgiving := dateOf(t, "2013-11-28")
	assert.False(t, federal.IsOccurring(thanksgiving))
	assert.True(t, company.IsOccurring(thanksgiving))

	newYearsEve := dateOf(t, "2013-12-31")
	assert.True(t, federal.IsOccurring(newYearsEve))
	assert.False(t, company.IsOccurring(newYearsEve))

	retro, err := h.schedule(ctx, "retro")
	require.NoError(t, err)
	assert.True(t, retro.IsOccurring(dateOf(t, "2013-01-03")))
	assert.False(t, retro.IsOccurring(dateOf(t, "2013-01-17")), "own exclusion")
	assert.True(t, retro.IsOccurring(dateOf(t, "2013-01-31")))
}

func TestLoadScenario_HTTP(t *testing.T) {
	h := setupTestHandler(t)
	srv := NewRouter(h)

	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "team-rituals"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	current := decode[ScenarioDTO](t, do(t, srv, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "team-rituals", current.ID)

	list := decode[[]EventDTO](t, do(t, srv, http.MethodGet, "/api/events", nil))
	assert.Len(t, list, 4)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`).Code)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/scenarios/reset", nil).Code)
	assert.Empty(t, decode[[]EventDTO](t, do(t, srv, http.MethodGet, "/api/events", nil)))
	assert.Equal(t, "null\n", do(t, srv, http.MethodGet, "/api/scenarios/current", nil).Body.String())

	all := decode[[]ScenarioDTO](t, do(t, srv, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, all, len(scenarios))
}

func dateOf(t *testing.T, s string) generic.Date {
	t.Helper()
	d, err := generic.ParseDate(s)
	require.NoError(t, err)
	return d
}
