/*
handlers.go - HTTP API handlers for the occurrence engine

PURPOSE:
  Exposes event definitions, occurrence queries and exclusion calendars via
  REST API. Handles HTTP request/response and JSON serialization; every
  date question is answered by a compiled generic.Schedule.

ENDPOINTS:
  Events:
    GET    /api/events                     List events
    POST   /api/events                     Create event (id generated if absent)
    POST   /api/events/rrule               Create event from an RRULE
    GET    /api/events/{id}                Get event
    PUT    /api/events/{id}                Replace event
    DELETE /api/events/{id}                Delete event

  Queries (dates are YYYY-MM-DD):
    GET /api/events/{id}/occurrences?from=&to=[&limit=]
    GET /api/events/{id}/occurring?date=
    GET /api/events/{id}/next?date=[&from=&to=]
    GET /api/events/{id}/previous?date=[&from=&to=]
    GET /api/events/{id}/first
    GET /api/events/{id}/last
    GET /api/events/{id}/rrule

  Calendars:
    GET    /api/calendars                       List calendars
    POST   /api/calendars                       Create/rename calendar
    GET    /api/calendars/sets                  Built-in holiday sets
    POST   /api/calendars/defaults              Materialize a built-in set
    GET    /api/calendars/{id}                  Get calendar
    DELETE /api/calendars/{id}                  Delete calendar
    POST   /api/calendars/{id}/holidays         Add holiday
    DELETE /api/calendars/{id}/holidays/{hid}   Delete holiday

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: generic.Store (sqlite in production, memory in tests)
  - Factory: JSON to EventRecord conversion
  - Compiled schedules cached per event, dropped on writes

CALENDAR RESOLUTION:
  An event's calendar_id (or Config.DefaultCalendar) is looked up in the
  store first, then among the built-in holiday sets (holidays.Lookup), so
  "us-federal" works without seeding. An unknown calendar excludes nothing.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid dates, ranges over MaxRangeDays
  - 404: Event or calendar not found
  - 409: Event ID already exists
  - 422: Event has no RRULE equivalent (or the reverse)
  - 500: Internal errors

SECURITY NOTE:
  No authentication. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/warp/occurrence-engine/config"
	"github.com/warp/occurrence-engine/factory"
	"github.com/warp/occurrence-engine/generic"
	"github.com/warp/occurrence-engine/holidays"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   generic.Store
	Factory *factory.EventFactory
	Config  *config.Config
	Debug   *log.Logger

	// Compiled schedules by event ID. gen bumps on every invalidation so a
	// compile racing a write never caches stale data.
	mu        sync.RWMutex
	schedules map[string]*generic.Schedule
	gen       uint64

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a handler. cfg and debug may be nil.
func NewHandler(store generic.Store, cfg *config.Config, debug *log.Logger) *Handler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debug == nil {
		debug = log.New(io.Discard, "", 0)
	}
	return &Handler{
		Store:     store,
		Factory:   factory.NewEventFactory(),
		Config:    cfg,
		Debug:     debug,
		schedules: make(map[string]*generic.Schedule),
	}
}

// schedule returns the compiled schedule for an event, compiling on miss.
func (h *Handler) schedule(ctx context.Context, id string) (*generic.Schedule, error) {
	h.mu.RLock()
	s, ok := h.schedules[id]
	gen := h.gen
	h.mu.RUnlock()
	if ok {
		return s, nil
	}

	rec, err := h.Store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err = h.compile(ctx, rec)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.gen == gen {
		h.schedules[id] = s
	}
	h.mu.Unlock()
	h.Debug.Printf("[API] compiled %s: %s", id, s.Expression())
	return s, nil
}

func (h *Handler) compile(ctx context.Context, rec generic.EventRecord) (*generic.Schedule, error) {
	s, found, err := holidays.Compile(ctx, h.Store, rec, h.Config.DefaultCalendar)
	if err != nil {
		return nil, err
	}
	if !found {
		h.Debug.Printf("[API] event %s: calendar not found, nothing excluded", rec.Event.ID)
	}
	return s, nil
}

// invalidate drops cached schedules; no IDs drops them all.
func (h *Handler) invalidate(ids ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.gen++
	if len(ids) == 0 {
		h.schedules = make(map[string]*generic.Schedule)
		return
	}
	for _, id := range ids {
		delete(h.schedules, id)
	}
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// ListEvents returns all events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListEvents(r.Context())
	if err != nil {
		writeStoreError(w, "Failed to list events", err)
		return
	}

	dtos := make([]EventDTO, len(records))
	for i, rec := range records {
		dtos[i] = toEventDTO(h.Factory, rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEvent creates an event from an EventJSON body.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var ej factory.EventJSON
	if err := json.NewDecoder(r.Body).Decode(&ej); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if ej.ID == "" {
		ej.ID = uuid.NewString()
	}

	rec, err := h.Factory.FromJSON(ej)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event", err)
		return
	}
	h.createEvent(w, r, rec)
}

// ImportRRule creates an event from an RFC 5545 rule.
func (h *Handler) ImportRRule(w http.ResponseWriter, r *http.Request) {
	var req ImportRRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := factory.FromRRule(req.RRule)
	if errors.Is(err, factory.ErrUnsupportedRRule) {
		writeError(w, http.StatusUnprocessableEntity, "Rule has no event equivalent", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid RRULE", err)
		return
	}

	rec.Event.ID = req.ID
	if rec.Event.ID == "" {
		rec.Event.ID = uuid.NewString()
	}
	rec.Event.Title = req.Title
	rec.CalendarID = req.CalendarID
	h.createEvent(w, r, rec)
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request, rec generic.EventRecord) {
	ctx := r.Context()

	if _, err := h.Store.GetEvent(ctx, rec.Event.ID); err == nil {
		writeError(w, http.StatusConflict, "Event already exists", nil)
		return
	} else if !generic.IsNotFound(err) {
		writeStoreError(w, "Failed to check event", err)
		return
	}

	if err := h.Store.SaveEvent(ctx, rec); err != nil {
		writeStoreError(w, "Failed to save event", err)
		return
	}
	h.invalidate(rec.Event.ID)

	saved, err := h.Store.GetEvent(ctx, rec.Event.ID)
	if err != nil {
		writeStoreError(w, "Failed to load event", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(h.Factory, saved))
}

// GetEvent returns one event.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get event", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(h.Factory, rec))
}

// UpdateEvent replaces an existing event. The path ID wins over the body.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var ej factory.EventJSON
	if err := json.NewDecoder(r.Body).Decode(&ej); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ej.ID = id

	rec, err := h.Factory.FromJSON(ej)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event", err)
		return
	}
	if _, err := h.Store.GetEvent(ctx, id); err != nil {
		writeStoreError(w, "Failed to get event", err)
		return
	}
	if err := h.Store.SaveEvent(ctx, rec); err != nil {
		writeStoreError(w, "Failed to save event", err)
		return
	}
	h.invalidate(id)

	saved, err := h.Store.GetEvent(ctx, id)
	if err != nil {
		writeStoreError(w, "Failed to load event", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(h.Factory, saved))
}

// DeleteEvent removes an event.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteEvent(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to delete event", err)
		return
	}
	h.invalidate(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// QUERY HANDLERS
// =============================================================================

// GetOccurrences lists occurrences in [from, to]. An inverted range is
// empty, a range longer than MaxRangeDays is rejected.
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rng, err := h.rangeParams(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
	}

	s, err := h.schedule(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to load event", err)
		return
	}

	window := rng.MustGet()
	dates := dateStrings(s.OccurrencesUpTo(window, limit))
	writeJSON(w, http.StatusOK, OccurrencesDTO{
		EventID: id,
		From:    window.Start.String(),
		To:      window.End.String(),
		Count:   len(dates),
		Dates:   dates,
	})
}

// IsOccurring answers whether the event occurs on ?date (default today).
func (h *Handler) IsOccurring(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	s, err := h.schedule(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to load event", err)
		return
	}
	writeJSON(w, http.StatusOK, OccurringDTO{EventID: id, Date: d.String(), Occurring: s.IsOccurring(d)})
}

// NextOccurrence returns the first occurrence strictly after ?date.
func (h *Handler) NextOccurrence(w http.ResponseWriter, r *http.Request) {
	h.neighbour(w, r, (*generic.Schedule).NextOccurrence, (*generic.Schedule).NextOccurrenceInRange)
}

// PreviousOccurrence returns the last occurrence strictly before ?date.
func (h *Handler) PreviousOccurrence(w http.ResponseWriter, r *http.Request) {
	h.neighbour(w, r, (*generic.Schedule).PreviousOccurrence, (*generic.Schedule).PreviousOccurrenceInRange)
}

func (h *Handler) neighbour(
	w http.ResponseWriter, r *http.Request,
	find func(*generic.Schedule, generic.Date) mo.Option[generic.Date],
	findIn func(*generic.Schedule, generic.Date, generic.DateRange) mo.Option[generic.Date],
) {
	id := chi.URLParam(r, "id")
	d, err := dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	rng, err := h.rangeParams(r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	s, err := h.schedule(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to load event", err)
		return
	}

	if within, ok := rng.Get(); ok {
		writeJSON(w, http.StatusOK, toDateResult(id, findIn(s, d, within)))
		return
	}
	writeJSON(w, http.StatusOK, toDateResult(id, find(s, d)))
}

// FirstOccurrence returns the first occurrence on or after the start date.
func (h *Handler) FirstOccurrence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.schedule(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to load event", err)
		return
	}
	writeJSON(w, http.StatusOK, toDateResult(id, s.FirstOccurrence()))
}

// LastOccurrence returns the last occurrence date of a bounded event.
func (h *Handler) LastOccurrence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.schedule(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to load event", err)
		return
	}
	writeJSON(w, http.StatusOK, toDateResult(id, s.LastOccurrenceDate()))
}

// ExportRRule returns the event as DTSTART/RRULE/EXDATE lines. Calendar
// holidays are not included.
func (h *Handler) ExportRRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetEvent(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to get event", err)
		return
	}

	s, err := factory.ToRRule(rec)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Event has no RRULE equivalent", err)
		return
	}
	writeJSON(w, http.StatusOK, RRuleDTO{EventID: id, RRule: s})
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ListCalendars returns all stored calendars.
func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := h.Store.ListCalendars(r.Context())
	if err != nil {
		writeStoreError(w, "Failed to list calendars", err)
		return
	}
	dtos := make([]CalendarDTO, len(cals))
	for i, cal := range cals {
		dtos[i] = toCalendarDTO(cal)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCalendar creates or renames a calendar, adding any holidays given.
func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var cj factory.CalendarJSON
	if err := json.NewDecoder(r.Body).Decode(&cj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	for i := range cj.Holidays {
		if cj.Holidays[i].ID == "" {
			cj.Holidays[i].ID = uuid.NewString()
		}
	}

	cal, err := h.Factory.CalendarFromJSON(cj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid calendar", err)
		return
	}
	h.saveCalendar(w, r, cal)
}

// AddDefaultCalendar materializes a built-in holiday set
// (holidays.Lookup) as a stored calendar.
func (h *Handler) AddDefaultCalendar(w http.ResponseWriter, r *http.Request) {
	var req DefaultCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	set, ok := holidays.Lookup(req.Set)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown holiday set %q", req.Set), nil)
		return
	}
	if req.FromYear == 0 {
		req.FromYear = generic.Today().Year()
	}
	if req.ToYear == 0 {
		req.ToYear = req.FromYear
	}
	if req.ToYear < req.FromYear || req.ToYear-req.FromYear > 50 {
		writeError(w, http.StatusBadRequest, "Invalid year range", generic.ErrInvalidRange)
		return
	}

	h.saveCalendar(w, r, set.Calendar(req.FromYear, req.ToYear))
}

// ListHolidaySets returns the built-in holiday sets.
func (h *Handler) ListHolidaySets(w http.ResponseWriter, r *http.Request) {
	var dtos []HolidaySetDTO
	for _, set := range holidays.All() {
		dto := HolidaySetDTO{ID: set.ID, Name: set.Name}
		for _, rule := range set.Rules {
			dto.Rules = append(dto.Rules, rule.String())
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) saveCalendar(w http.ResponseWriter, r *http.Request, cal generic.Calendar) {
	ctx := r.Context()
	if err := h.Store.SaveCalendar(ctx, cal); err != nil {
		writeStoreError(w, "Failed to save calendar", err)
		return
	}
	h.invalidate()

	saved, err := h.Store.GetCalendar(ctx, cal.ID)
	if err != nil {
		writeStoreError(w, "Failed to load calendar", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCalendarDTO(saved))
}

// GetCalendar returns one calendar with its holidays.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.Store.GetCalendar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarDTO(cal))
}

// DeleteCalendar removes a calendar. Events referencing it fall back to
// the built-in set of the same ID, if any.
func (h *Handler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCalendar(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, "Failed to delete calendar", err)
		return
	}
	h.invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddHoliday adds one holiday to a calendar.
func (h *Handler) AddHoliday(w http.ResponseWriter, r *http.Request) {
	calID := chi.URLParam(r, "id")

	var hj factory.HolidayJSON
	if err := json.NewDecoder(r.Body).Decode(&hj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if hj.ID == "" {
		hj.ID = uuid.NewString()
	}

	holiday, err := h.Factory.HolidayFromJSON(calID, hj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid holiday", err)
		return
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeStoreError(w, "Failed to create holiday", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "created",
		"holiday": holiday.ID,
	})
}

// DeleteHoliday removes one holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "holidayID")); err != nil {
		writeStoreError(w, "Failed to delete holiday", err)
		return
	}
	h.invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.invalidate()
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// dateParam parses a YYYY-MM-DD query parameter, defaulting to today.
func dateParam(r *http.Request, name string) (generic.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return generic.Today(), nil
	}
	return generic.ParseDate(v)
}

// rangeParams reads ?from and ?to. Without required, both may be absent
// (None); giving only one is an error either way.
func (h *Handler) rangeParams(r *http.Request, required bool) (mo.Option[generic.DateRange], error) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" && to == "" && !required {
		return mo.None[generic.DateRange](), nil
	}
	if from == "" || to == "" {
		return mo.None[generic.DateRange](), fmt.Errorf("%w: from and to are both required", generic.ErrInvalidRange)
	}

	start, err := generic.ParseDate(from)
	if err != nil {
		return mo.None[generic.DateRange](), err
	}
	end, err := generic.ParseDate(to)
	if err != nil {
		return mo.None[generic.DateRange](), err
	}

	rng := generic.NewDateRange(start, end)
	if rng.Len() > h.Config.MaxRangeDays {
		return mo.None[generic.DateRange](), fmt.Errorf("%w: %d days exceeds the %d day limit",
			generic.ErrInvalidRange, rng.Len(), h.Config.MaxRangeDays)
	}
	return mo.Some(rng), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps store and validation errors to a status code.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		log.Printf("[API] %s: %v", message, err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
