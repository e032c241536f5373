package generic

// =============================================================================
// SEARCH WINDOW - How far previous/next searches are allowed to look
// =============================================================================

// SearchWindow bounds the day-by-day scan behind PreviousOccurrence,
// NextOccurrence and the count-based last occurrence. Its length covers one
// cycle of the frequency plus the repeat interval:
//
//	none                          zero (the seed only)
//	daily                         interval+1 days
//	weekly, weekday patterns      (interval+1) x 7 days
//	monthly                       interval+1 months
//	quarterly                     12 months, interval ignored
//	yearly                        interval+1 years
//
// An occurrence further away than one window is reported as not found.
type SearchWindow struct {
	Frequency Frequency
	Interval  int
}

// WindowFor returns the search window of an event.
func WindowFor(e Event) SearchWindow {
	return SearchWindow{Frequency: e.Frequency, Interval: e.RepeatInterval}
}

// advance moves d by the window length, count times (negative to go back).
func (w SearchWindow) advance(d Date, count int) Date {
	n := w.Interval
	if n < 0 {
		n = 0
	}
	switch {
	case w.Frequency == FrequencyDaily:
		return d.AddDays((n + 1) * count)
	case w.Frequency == FrequencyWeekly || w.Frequency.IsWeekdayPattern():
		return d.AddDays((n + 1) * 7 * count)
	case w.Frequency == FrequencyMonthly:
		return d.AddMonths((n + 1) * count)
	case w.Frequency == FrequencyQuarterly:
		// TODO: honor Interval once quarterly windows are sized per quarter
		// multiple; today a quarterly event with interval >= 5 is never found.
		return d.AddMonths(12 * count)
	case w.Frequency == FrequencyYearly:
		return d.AddYears((n + 1) * count)
	}
	return d
}

// Backward returns [seed - window, seed].
func (w SearchWindow) Backward(seed Date) DateRange {
	return DateRange{Start: w.advance(seed, -1), End: seed}
}

// Forward returns [seed, seed + window].
func (w SearchWindow) Forward(seed Date) DateRange {
	return DateRange{Start: seed, End: w.advance(seed, 1)}
}

// Span returns [from, from + count windows], enough room for count
// occurrences when each cycle produces at least one.
func (w SearchWindow) Span(from Date, count int) DateRange {
	return DateRange{Start: from, End: w.advance(from, count)}
}
