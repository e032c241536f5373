package generic

// =============================================================================
// FREQUENCY BUILDER - Event -> frequency expression
// =============================================================================

// BuildFrequency returns the union of frequency leaves implied by the event's
// Frequency, RepeatInterval, DaysOfWeek and MonthlyWeek. It never looks at
// RangeInYear, the limits or exclusions, and is deterministic: equal events
// produce equal trees.
//
// Leaves count cycles from the start date, or from 1970-01-01 when the event
// has no start date.
func BuildFrequency(e Event) Expression {
	anchor := e.anchor()
	n := e.RepeatInterval

	switch e.Frequency {
	case FrequencyDaily:
		if e.DaysOfWeek.IsEmpty() {
			return Union(DayInterval(anchor, n))
		}
		return Union(Intersection(DayInterval(anchor, n), DaysOfWeek(e.DaysOfWeek)))

	case FrequencyWeekly:
		days := e.DaysOfWeek
		if days.IsEmpty() {
			days = WeekdaysOf(anchor.Weekday())
		}
		return Union(WeekInterval(anchor, n, days))

	case FrequencyEveryWeekday, FrequencyMonWedFri, FrequencyTueThu:
		return Union(WeekInterval(anchor, n, e.Frequency.patternDays()))

	case FrequencyMonthly:
		if e.MonthlyWeek != MonthlyWeekNone && !e.DaysOfWeek.IsEmpty() {
			return Union(WeekdayOfMonth(anchor, n, e.MonthlyWeek, e.DaysOfWeek))
		}
		return Union(MonthInterval(anchor, n))

	case FrequencyQuarterly:
		return Union(MonthInterval(anchor, 3*atLeastOne(n)))

	case FrequencyYearly:
		return Union(YearInterval(anchor, n))
	}

	// FrequencyNone and unknown kinds: a single occurrence on the start date.
	if start, ok := e.StartDate.Get(); ok {
		return Union(ExactDate(start))
	}
	return Never()
}

// buildRange returns the annual sub-range leaf, or the identity intersection
// when the event is not restricted to part of the year.
func buildRange(e Event) Expression {
	if r, ok := e.RangeInYear.Get(); ok {
		return AnnualRangeExpr(r)
	}
	return Intersection()
}
