/*
schedule.go - Occurrence engine

PURPOSE:
  A Schedule answers "does this event happen on date X, and if not, when
  before/after X does it happen?" for one Event.

CONSTRUCTION:
  The event is compiled exactly once into two trees:

    raw        = Intersection(BuildFrequency(event), annual range or identity)
    primary    = Difference(raw, exclusions)
    unexcluded = Difference(raw, Union())

  unexcluded always matches a superset of primary; exclusions only remove.
  Nothing is mutated afterwards, so a *Schedule can be shared between
  goroutines freely.

BOUNDED SEARCH:
  Occurrences() scans a caller-supplied range day by day. Previous/Next
  cannot scan forever, so they scan one SearchWindow (see window.go) away
  from the seed, clamped to the event limits and any caller range. If the
  window holds no occurrence the answer is mo.None even if one exists
  further out.

LAST OCCURRENCE:
  Two candidates, the earlier wins:
  1. Count: find the N-th occurrence ignoring exclusions inside
     Span(start, N), then take the last real occurrence up to it. An
     excluded date still counts towards N, so exclusions can never push the
     last occurrence later.
  2. End date: the last real occurrence within [start, end], capped at the
     N-th when a count is configured.

SEE ALSO:
  - expression.go: Algebra evaluated here
  - window.go: Window sizing
*/
package generic

import "github.com/samber/mo"

// Schedule evaluates one event against its compiled expressions.
type Schedule struct {
	event      Event
	window     SearchWindow
	primary    Expression
	unexcluded Expression
}

// NewSchedule compiles an event; excluded dates are removed from it.
func NewSchedule(event Event, excluded ...Date) *Schedule {
	return NewScheduleWithExclusions(event, ExactDates(excluded...))
}

// NewScheduleWithExclusions compiles an event with a prebuilt exclusion
// expression, e.g. a holiday calendar of fixed annual dates.
func NewScheduleWithExclusions(event Event, exclusions Expression) *Schedule {
	raw := Intersection(BuildFrequency(event), buildRange(event))
	return &Schedule{
		event:      event,
		window:     WindowFor(event),
		primary:    Difference(raw, exclusions),
		unexcluded: Difference(raw, Union()),
	}
}

// Event returns the configuration the schedule was built from.
func (s *Schedule) Event() Event { return s.event }

// Expression returns the exclusion-aware tree.
func (s *Schedule) Expression() Expression { return s.primary }

// Window returns the bounded-search window.
func (s *Schedule) Window() SearchWindow { return s.window }

// =============================================================================
// MEMBERSHIP
// =============================================================================

// IsOccurring reports whether the event happens on d. Dates outside the
// event limits never occur.
func (s *Schedule) IsOccurring(d Date) bool {
	return s.event.DateIsWithinLimits(d) && s.primary.Includes(d)
}

// =============================================================================
// RANGE QUERIES
// =============================================================================

// Occurrences returns every occurring date in r, ascending. Each call
// recomputes from r; there is no cursor.
func (s *Schedule) Occurrences(r DateRange) []Date {
	var dates []Date
	s.EachOccurrence(r, func(d Date) bool {
		dates = append(dates, d)
		return true
	})
	return dates
}

// OccurrencesUpTo is Occurrences stopping after limit results (limit <= 0
// means no cap).
func (s *Schedule) OccurrencesUpTo(r DateRange, limit int) []Date {
	var dates []Date
	s.EachOccurrence(r, func(d Date) bool {
		dates = append(dates, d)
		return limit <= 0 || len(dates) < limit
	})
	return dates
}

// EachOccurrence calls fn for each occurring date in r, ascending, until fn
// returns false.
func (s *Schedule) EachOccurrence(r DateRange, fn func(Date) bool) {
	s.scan(r, s.primary, fn)
}

// scan walks r clamped to the limits and yields dates matching expr.
func (s *Schedule) scan(r DateRange, expr Expression, fn func(Date) bool) {
	r.Clamp(s.event.EventLimitsAsRange()).each(func(d Date) bool {
		if expr.Includes(d) {
			return fn(d)
		}
		return true
	})
}

// =============================================================================
// PREVIOUS / NEXT
// =============================================================================

// PreviousOccurrence returns the nearest occurrence strictly before d.
func (s *Schedule) PreviousOccurrence(d Date) mo.Option[Date] {
	return s.PreviousOccurrenceInRange(d, s.event.EventLimitsAsRange())
}

// PreviousOccurrenceInRange is PreviousOccurrence restricted to r.
func (s *Schedule) PreviousOccurrenceInRange(d Date, r DateRange) mo.Option[Date] {
	window := s.window.Backward(d).Clamp(r).Clamp(s.event.EventLimitsAsRange())
	found := mo.None[Date]()
	window.eachReverse(func(c Date) bool {
		if c.Before(d) && s.primary.Includes(c) {
			found = mo.Some(c)
			return false
		}
		return true
	})
	return found
}

// NextOccurrence returns the nearest occurrence strictly after d.
func (s *Schedule) NextOccurrence(d Date) mo.Option[Date] {
	return s.NextOccurrenceInRange(d, s.event.EventLimitsAsRange())
}

// NextOccurrenceInRange is NextOccurrence restricted to r.
func (s *Schedule) NextOccurrenceInRange(d Date, r DateRange) mo.Option[Date] {
	found := mo.None[Date]()
	s.scan(s.window.Forward(d).Clamp(r), s.primary, func(c Date) bool {
		if c.After(d) {
			found = mo.Some(c)
			return false
		}
		return true
	})
	return found
}

// FirstOccurrence returns the start date when it occurs, otherwise the next
// occurrence after it. Events without a start date have no first occurrence.
func (s *Schedule) FirstOccurrence() mo.Option[Date] {
	start, ok := s.event.StartDate.Get()
	if !ok {
		return mo.None[Date]()
	}
	if s.IsOccurring(start) {
		return mo.Some(start)
	}
	return s.NextOccurrence(start)
}

// =============================================================================
// LAST OCCURRENCE
// =============================================================================

// LastOccurrenceDate returns the final occurrence implied by the count and
// the end date, whichever comes first. mo.None when neither resolves.
func (s *Schedule) LastOccurrenceDate() mo.Option[Date] {
	byCount := s.countBasedLastOccurrence()
	byEnd := s.endDateBasedLastOccurrence()

	c, hasCount := byCount.Get()
	e, hasEnd := byEnd.Get()
	switch {
	case hasCount && hasEnd:
		return mo.Some(MinOf(c, e))
	case hasCount:
		return byCount
	default:
		return byEnd
	}
}

func (s *Schedule) countBasedLastOccurrence() mo.Option[Date] {
	start, hasStart := s.event.StartDate.Get()
	if !hasStart {
		return mo.None[Date]()
	}
	if s.event.Frequency == FrequencyNone {
		return mo.Some(start)
	}
	count, hasCount := s.event.NumberOfOccurrences.Get()
	if !hasCount {
		return mo.None[Date]()
	}
	if count <= 0 {
		return mo.Some(start)
	}

	// Pass 1: the count-th date ignoring exclusions bounds the schedule.
	var bound Date
	seen := 0
	s.scan(s.window.Span(start, count), s.unexcluded, func(d Date) bool {
		seen++
		bound = d
		return seen < count
	})
	if seen < count {
		return mo.None[Date]()
	}

	// Pass 2: the last real occurrence up to that bound.
	last := mo.None[Date]()
	s.scan(DateRange{Start: start, End: bound}, s.primary, func(d Date) bool {
		last = mo.Some(d)
		return true
	})
	return last
}

func (s *Schedule) endDateBasedLastOccurrence() mo.Option[Date] {
	start, hasStart := s.event.StartDate.Get()
	end, hasEnd := s.event.EndDate.Get()
	if !hasStart || !hasEnd {
		return mo.None[Date]()
	}
	if s.event.Frequency == FrequencyNone {
		return mo.Some(start)
	}

	limit := s.event.NumberOfOccurrences.OrElse(0)
	occurrences := s.OccurrencesUpTo(DateRange{Start: start, End: end}, limit)
	if len(occurrences) == 0 {
		return mo.None[Date]()
	}
	return mo.Some(occurrences[len(occurrences)-1])
}
