package generic

// =============================================================================
// DATE RANGE - Inclusive span of calendar days
// =============================================================================

// DateRange is the inclusive interval [Start, End]. A range whose End is
// before its Start is empty; every query over it returns nothing.
//
// Examples:
//   - Calendar year 2013: Jan 1 - Dec 31
//   - Event limits: start date - end date (MinDate/MaxDate when unbounded)
//   - Search window: seed - 7 days .. seed
type DateRange struct {
	Start Date `json:"start" yaml:"start"`
	End   Date `json:"end" yaml:"end"`
}

// NewDateRange builds [start, end] without reordering.
func NewDateRange(start, end Date) DateRange {
	return DateRange{Start: start, End: end}
}

// Unbounded covers every representable date.
func Unbounded() DateRange {
	return DateRange{Start: MinDate, End: MaxDate}
}

// Contains returns true if the date is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// IsEmpty reports whether the range holds no day at all.
func (r DateRange) IsEmpty() bool {
	return r.End.Before(r.Start)
}

// Clamp returns the intersection of two ranges (possibly empty).
func (r DateRange) Clamp(other DateRange) DateRange {
	return DateRange{Start: MaxOf(r.Start, other.Start), End: MinOf(r.End, other.End)}
}

// Len returns the number of days in the range, 0 when empty.
func (r DateRange) Len() int {
	if r.IsEmpty() {
		return 0
	}
	return DaysBetween(r.Start, r.End) + 1
}

// Days returns all days in the range in ascending order.
func (r DateRange) Days() []Date {
	var days []Date
	r.each(func(d Date) bool {
		days = append(days, d)
		return true
	})
	return days
}

// each walks the range ascending until fn returns false.
func (r DateRange) each(fn func(Date) bool) {
	for current := r.Start; current.BeforeOrEqual(r.End); current = current.AddDays(1) {
		if !fn(current) {
			return
		}
	}
}

// eachReverse walks the range descending until fn returns false.
func (r DateRange) eachReverse(fn func(Date) bool) {
	for current := r.End; current.AfterOrEqual(r.Start); current = current.AddDays(-1) {
		if !fn(current) {
			return
		}
	}
}

// String returns a string representation of the range.
func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
