/*
expression.go - Temporal expression algebra

PURPOSE:
  A temporal expression is a boolean predicate over calendar dates. Leaves
  describe one kind of recurrence ("every 4 days from Jan 3", "Feb 4 of every
  year", "June through August"); composites combine them with set algebra.
  A whole recurring event compiles into one Expression tree.

DESIGN:
  Expression is a tagged value: a kind plus the few immutable parameters the
  kind needs. Includes() is a single recursive switch over the kind. Every
  field is unexported and constructors copy their inputs, so a built tree is
  never mutated and can be shared across goroutines without locking.

  The zero Expression is an empty Union and matches nothing.

COMPOSITES:
  Union(children...)        any child matches (empty: never)
  Intersection(children...) all children match (empty: always)
  Difference(in, out)       in matches and out does not

LEAVES:
  ExactDate(d)                  exactly d
  FixedAnnualDate(m, d)         m/d of every year (holidays)
  AnnualRange(r)                yearly window, wraps across Dec 31
  DayInterval(anchor, n)        every n days from anchor
  DaysOfWeek(set)               any day in the weekday set
  WeekInterval(anchor, n, set)  set days, every n weeks from anchor's week
  MonthInterval(anchor, n)      anchor's day of month, every n months
  WeekdayOfMonth(anchor, n, w, set)  n-th/last weekday, every n months
  YearInterval(anchor, n)       anchor's month/day, every n years

SEE ALSO:
  - frequency.go: Builds frequency leaves from an Event
  - schedule.go: Evaluates expressions to answer occurrence queries
*/
package generic

import (
	"fmt"
	"strings"
	"time"
)

// ExprKind tags the variant held by an Expression.
type ExprKind int

const (
	KindUnion ExprKind = iota
	KindIntersection
	KindDifference
	KindExactDate
	KindFixedAnnualDate
	KindAnnualRange
	KindDayInterval
	KindDaysOfWeek
	KindWeekInterval
	KindMonthInterval
	KindWeekdayOfMonth
	KindYearInterval
)

var kindNames = map[ExprKind]string{
	KindUnion:           "union",
	KindIntersection:    "intersection",
	KindDifference:      "difference",
	KindExactDate:       "exact_date",
	KindFixedAnnualDate: "fixed_annual_date",
	KindAnnualRange:     "annual_range",
	KindDayInterval:     "day_interval",
	KindDaysOfWeek:      "days_of_week",
	KindWeekInterval:    "week_interval",
	KindMonthInterval:   "month_interval",
	KindWeekdayOfMonth:  "weekday_of_month",
	KindYearInterval:    "year_interval",
}

func (k ExprKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Expression is an immutable date predicate.
type Expression struct {
	kind     ExprKind
	date     Date // exact date or anchor
	month    time.Month
	day      int
	interval int
	weekdays Weekdays
	week     MonthlyWeek
	annual   AnnualRange
	children []Expression
}

// Kind reports the variant.
func (e Expression) Kind() ExprKind { return e.kind }

// Children returns a copy of the child expressions of a composite.
func (e Expression) Children() []Expression {
	return append([]Expression(nil), e.children...)
}

// =============================================================================
// COMPOSITES
// =============================================================================

// Union matches when any child matches. With no children it matches nothing.
func Union(children ...Expression) Expression {
	return Expression{kind: KindUnion, children: append([]Expression(nil), children...)}
}

// Intersection matches when every child matches. With no children it matches
// every date, which makes it the identity for "no further restriction".
func Intersection(children ...Expression) Expression {
	return Expression{kind: KindIntersection, children: append([]Expression(nil), children...)}
}

// Difference matches dates in included that are not in excluded.
func Difference(included, excluded Expression) Expression {
	return Expression{kind: KindDifference, children: []Expression{included, excluded}}
}

// Never matches no date.
func Never() Expression { return Union() }

// Always matches every date.
func Always() Expression { return Intersection() }

// =============================================================================
// LEAVES
// =============================================================================

// ExactDate matches one calendar day.
func ExactDate(d Date) Expression {
	return Expression{kind: KindExactDate, date: d}
}

// ExactDates is a Union of ExactDate leaves, the usual exclusion-list shape.
func ExactDates(dates ...Date) Expression {
	leaves := make([]Expression, 0, len(dates))
	for _, d := range dates {
		leaves = append(leaves, ExactDate(d))
	}
	return Union(leaves...)
}

// FixedAnnualDate matches month/day in every year. Feb 29 only matches in
// leap years.
func FixedAnnualDate(month time.Month, day int) Expression {
	return Expression{kind: KindFixedAnnualDate, month: month, day: day}
}

// AnnualRangeExpr matches dates inside a yearly window.
func AnnualRangeExpr(r AnnualRange) Expression {
	return Expression{kind: KindAnnualRange, annual: r}
}

// DayInterval matches anchor and every n-th day before or after it.
// n below 1 is treated as 1.
func DayInterval(anchor Date, n int) Expression {
	return Expression{kind: KindDayInterval, date: anchor, interval: atLeastOne(n)}
}

// DaysOfWeek matches any date whose weekday is in the set.
func DaysOfWeek(set Weekdays) Expression {
	return Expression{kind: KindDaysOfWeek, weekdays: set}
}

// WeekInterval matches the set's weekdays in every n-th week counted from
// the Sunday-started week containing anchor.
func WeekInterval(anchor Date, n int, set Weekdays) Expression {
	return Expression{kind: KindWeekInterval, date: anchor, interval: atLeastOne(n), weekdays: set}
}

// MonthInterval matches anchor's day of month in every n-th month counted
// from anchor's month. Months too short for that day are skipped.
func MonthInterval(anchor Date, n int) Expression {
	return Expression{kind: KindMonthInterval, date: anchor, interval: atLeastOne(n)}
}

// WeekdayOfMonth matches the given ordinal (first..fourth, last) occurrence
// of each weekday in the set, every n-th month counted from anchor's month.
func WeekdayOfMonth(anchor Date, n int, week MonthlyWeek, set Weekdays) Expression {
	return Expression{kind: KindWeekdayOfMonth, date: anchor, interval: atLeastOne(n), week: week, weekdays: set}
}

// YearInterval matches anchor's month/day every n-th year from anchor's year.
func YearInterval(anchor Date, n int) Expression {
	return Expression{kind: KindYearInterval, date: anchor, interval: atLeastOne(n)}
}

// =============================================================================
// EVALUATION
// =============================================================================

// Includes reports whether d satisfies the expression.
func (e Expression) Includes(d Date) bool {
	switch e.kind {
	case KindUnion:
		for _, c := range e.children {
			if c.Includes(d) {
				return true
			}
		}
		return false

	case KindIntersection:
		for _, c := range e.children {
			if !c.Includes(d) {
				return false
			}
		}
		return true

	case KindDifference:
		return e.children[0].Includes(d) && !e.children[1].Includes(d)

	case KindExactDate:
		return d.Equal(e.date)

	case KindFixedAnnualDate:
		return d.Month() == e.month && d.Day() == e.day

	case KindAnnualRange:
		return e.annual.Includes(d)

	case KindDayInterval:
		return DaysBetween(e.date, d)%e.interval == 0

	case KindDaysOfWeek:
		return e.weekdays.Has(d.Weekday())

	case KindWeekInterval:
		if !e.weekdays.Has(d.Weekday()) {
			return false
		}
		weeks := floorDiv(DaysBetween(weekStart(e.date), weekStart(d)), 7)
		return weeks%e.interval == 0

	case KindMonthInterval:
		return d.Day() == e.date.Day() && MonthsBetween(e.date, d)%e.interval == 0

	case KindWeekdayOfMonth:
		return e.weekdays.Has(d.Weekday()) &&
			e.week.matches(d) &&
			MonthsBetween(e.date, d)%e.interval == 0

	case KindYearInterval:
		return d.Month() == e.date.Month() &&
			d.Day() == e.date.Day() &&
			(d.Year()-e.date.Year())%e.interval == 0
	}
	return false
}

// String renders the tree for logs and debugging.
func (e Expression) String() string {
	switch e.kind {
	case KindUnion, KindIntersection, KindDifference:
		parts := make([]string, len(e.children))
		for i, c := range e.children {
			parts[i] = c.String()
		}
		return e.kind.String() + "(" + strings.Join(parts, ", ") + ")"
	case KindExactDate:
		return "exact_date(" + e.date.String() + ")"
	case KindFixedAnnualDate:
		return fmt.Sprintf("fixed_annual_date(%02d-%02d)", int(e.month), e.day)
	case KindAnnualRange:
		return "annual_range(" + e.annual.String() + ")"
	case KindDaysOfWeek:
		return "days_of_week(" + e.weekdays.String() + ")"
	case KindWeekInterval, KindWeekdayOfMonth:
		return fmt.Sprintf("%s(%s, %d, %s)", e.kind, e.date, e.interval, e.weekdays)
	default:
		return fmt.Sprintf("%s(%s, %d)", e.kind, e.date, e.interval)
	}
}

func weekStart(d Date) Date { return d.AddDays(-int(d.Weekday())) }

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
