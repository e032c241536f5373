/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Event and calendar
  bodies reuse the factory wire types so the API, the database and the CLI
  files share one schema.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Events:      EventDTO (wraps factory.EventJSON), ImportRRuleRequest
  Queries:     OccurrencesDTO, DateResultDTO, OccurringDTO, RRuleDTO
  Calendars:   CalendarDTO, DefaultCalendarRequest
  Scenarios:   ScenarioDTO

SEE ALSO:
  - handlers.go: Uses these types
  - factory/event.go: EventJSON, CalendarJSON, HolidayJSON
*/
package api

import (
	"time"

	"github.com/samber/mo"

	"github.com/warp/occurrence-engine/factory"
	"github.com/warp/occurrence-engine/generic"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventDTO is a stored event in API responses.
type EventDTO struct {
	factory.EventJSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImportRRuleRequest creates an event from an RFC 5545 rule.
type ImportRRuleRequest struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title,omitempty"`
	RRule      string `json:"rrule"`
	CalendarID string `json:"calendar_id,omitempty"`
}

// =============================================================================
// QUERIES
// =============================================================================

// OccurrencesDTO lists the occurrences of an event inside [From, To].
type OccurrencesDTO struct {
	EventID string   `json:"event_id"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Count   int      `json:"count"`
	Dates   []string `json:"dates"`
}

// DateResultDTO carries an optional date. Found is false when the engine
// returned nothing, e.g. no next occurrence within the search window.
type DateResultDTO struct {
	EventID string  `json:"event_id"`
	Found   bool    `json:"found"`
	Date    *string `json:"date"`
}

// OccurringDTO answers "does the event occur on Date?".
type OccurringDTO struct {
	EventID   string `json:"event_id"`
	Date      string `json:"date"`
	Occurring bool   `json:"occurring"`
}

// RRuleDTO is the RFC 5545 form of an event.
type RRuleDTO struct {
	EventID string `json:"event_id"`
	RRule   string `json:"rrule"`
}

// =============================================================================
// CALENDARS
// =============================================================================

// CalendarDTO is an exclusion calendar in API responses.
type CalendarDTO = factory.CalendarJSON

// DefaultCalendarRequest materializes a built-in holiday set.
type DefaultCalendarRequest struct {
	Set      string `json:"set"`
	FromYear int    `json:"from_year"`
	ToYear   int    `json:"to_year"`
}

// HolidaySetDTO describes a built-in holiday set.
type HolidaySetDTO struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Rules []string `json:"rules"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEventDTO(f *factory.EventFactory, rec generic.EventRecord) EventDTO {
	return EventDTO{
		EventJSON: f.ToJSON(rec),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toCalendarDTO(cal generic.Calendar) CalendarDTO {
	dto := CalendarDTO{ID: cal.ID, Name: cal.Name, Holidays: []factory.HolidayJSON{}}
	for _, h := range cal.Holidays {
		dto.Holidays = append(dto.Holidays, factory.HolidayJSON{
			ID:        h.ID,
			Date:      h.Date.String(),
			Name:      h.Name,
			Recurring: h.Recurring,
		})
	}
	return dto
}

func toDateResult(eventID string, d mo.Option[generic.Date]) DateResultDTO {
	dto := DateResultDTO{EventID: eventID}
	if v, ok := d.Get(); ok {
		s := v.String()
		dto.Found = true
		dto.Date = &s
	}
	return dto
}

func dateStrings(dates []generic.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}
