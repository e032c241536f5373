package factory

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"github.com/warp/occurrence-engine/generic"
)

// =============================================================================
// RRULE INTEROP - RFC 5545 recurrence rules
// =============================================================================
//
// Events map onto a DTSTART/RRULE/EXDATE set:
//
//   daily        FREQ=DAILY[;BYDAY=...]
//   weekly       FREQ=WEEKLY;WKST=SU;BYDAY=...
//   patterns     FREQ=WEEKLY;WKST=SU;BYDAY=MO,TU,WE,TH,FR (etc.)
//   monthly      FREQ=MONTHLY[;BYDAY=2TU]
//   quarterly    FREQ=MONTHLY;INTERVAL=3n
//   yearly       FREQ=YEARLY
//   none         FREQ=DAILY;COUNT=1
//
// Weeks start on Sunday in the engine, hence WKST=SU. RangeInYear becomes
// BYMONTH when it has no day bounds. Excluded dates become EXDATEs; rrule
// counts them towards COUNT exactly like the engine does.
//
// Rules the engine cannot express (BYMONTHDAY lists, BYSETPOS, sub-daily
// frequencies...) are rejected with ErrUnsupportedRRule.

// ErrUnsupportedRRule is returned when a rule or event has no equivalent on
// the other side.
var ErrUnsupportedRRule = errors.New("unsupported recurrence rule")

var toRRuleDay = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// fromRRuleDay maps rrule's Monday-based index back to time.Weekday.
func fromRRuleDay(wd rrule.Weekday) time.Weekday {
	return time.Weekday((wd.Day() + 1) % 7)
}

var epochStart = generic.NewDate(1970, time.January, 1)

// ToRRuleSet converts a record to an rrule set including EXDATEs.
func ToRRuleSet(rec generic.EventRecord) (*rrule.Set, error) {
	opt, err := ToROption(rec.Event)
	if err != nil {
		return nil, err
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedRRule, err)
	}

	set := &rrule.Set{}
	set.RRule(rule)
	for _, d := range rec.ExcludedDates {
		set.ExDate(d.Time())
	}
	return set, nil
}

// ToRRule renders a record as DTSTART/RRULE/EXDATE lines.
func ToRRule(rec generic.EventRecord) (string, error) {
	set, err := ToRRuleSet(rec)
	if err != nil {
		return "", err
	}
	return set.String(), nil
}

// ToROption maps the recurrence part of an event onto rrule options.
func ToROption(e generic.Event) (rrule.ROption, error) {
	start := e.StartDate.OrElse(epochStart)
	n := e.RepeatInterval
	if n < 1 {
		n = 1
	}

	opt := rrule.ROption{
		Dtstart:  start.Time(),
		Interval: n,
	}
	if end, ok := e.EndDate.Get(); ok {
		opt.Until = end.Time()
	}
	if count, ok := e.NumberOfOccurrences.Get(); ok {
		opt.Count = count
	}

	switch e.Frequency {
	case generic.FrequencyDaily:
		opt.Freq = rrule.DAILY
		opt.Byweekday = byWeekday(e.DaysOfWeek, 0)

	case generic.FrequencyWeekly, generic.FrequencyEveryWeekday, generic.FrequencyMonWedFri, generic.FrequencyTueThu:
		opt.Freq = rrule.WEEKLY
		opt.Wkst = rrule.SU
		days := e.DaysOfWeek
		switch e.Frequency {
		case generic.FrequencyEveryWeekday:
			days = generic.WorkWeek
		case generic.FrequencyMonWedFri:
			days = generic.MonWedFriSet
		case generic.FrequencyTueThu:
			days = generic.TueThuSet
		}
		if days.IsEmpty() {
			days = generic.WeekdaysOf(start.Weekday())
		}
		opt.Byweekday = byWeekday(days, 0)

	case generic.FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
		if e.MonthlyWeek != generic.MonthlyWeekNone && !e.DaysOfWeek.IsEmpty() {
			nth := int(e.MonthlyWeek)
			if e.MonthlyWeek == generic.MonthlyWeekLast {
				nth = -1
			}
			opt.Byweekday = byWeekday(e.DaysOfWeek, nth)
		}

	case generic.FrequencyQuarterly:
		opt.Freq = rrule.MONTHLY
		opt.Interval = 3 * n

	case generic.FrequencyYearly:
		opt.Freq = rrule.YEARLY

	default:
		if e.StartDate.IsAbsent() {
			return rrule.ROption{}, fmt.Errorf("%w: one-off event without start date", ErrUnsupportedRRule)
		}
		opt.Freq = rrule.DAILY
		opt.Interval = 1
		opt.Count = 1
		opt.Until = time.Time{}
		return opt, nil
	}

	if r, ok := e.RangeInYear.Get(); ok {
		if r.HasDays() {
			return rrule.ROption{}, fmt.Errorf("%w: day-precise range in year %s", ErrUnsupportedRRule, r)
		}
		if e.Frequency == generic.FrequencyYearly {
			// YEARLY with BYMONTH would add the start day in every listed month.
			if !r.Includes(start) {
				return rrule.ROption{}, fmt.Errorf("%w: yearly event outside its range in year", ErrUnsupportedRRule)
			}
		} else {
			opt.Bymonth = monthsOf(r)
		}
	}
	return opt, nil
}

func byWeekday(set generic.Weekdays, nth int) []rrule.Weekday {
	var out []rrule.Weekday
	for _, d := range set.Days() {
		wd := toRRuleDay[d]
		if nth != 0 {
			wd = wd.Nth(nth)
		}
		out = append(out, wd)
	}
	return out
}

// monthsOf lists the months of a whole-month range, following the wrap.
func monthsOf(r generic.AnnualRange) []int {
	var months []int
	m := r.StartMonth
	for {
		months = append(months, int(m))
		if m == r.EndMonth || len(months) == 12 {
			break
		}
		m = m%12 + 1
	}
	return months
}

// =============================================================================
// IMPORT
// =============================================================================

// FromRRule parses DTSTART/RRULE/EXDATE lines into a record. Times are
// reduced to their UTC calendar date.
func FromRRule(s string) (generic.EventRecord, error) {
	set, err := rrule.StrToRRuleSet(s)
	if err != nil {
		return generic.EventRecord{}, fmt.Errorf("failed to parse RRULE: %w", err)
	}
	rule := set.GetRRule()
	if rule == nil {
		return generic.EventRecord{}, fmt.Errorf("%w: no RRULE line", ErrUnsupportedRRule)
	}

	opt := rule.OrigOptions
	dtstart := set.GetDTStart()
	if dtstart.IsZero() {
		dtstart = opt.Dtstart
	}

	event, err := FromROption(opt, dtstart)
	if err != nil {
		return generic.EventRecord{}, err
	}

	rec := generic.EventRecord{Event: event}
	for _, t := range set.GetExDate() {
		rec.ExcludedDates = append(rec.ExcludedDates, generic.DateOf(t.UTC()))
	}
	return rec, nil
}

// FromROption maps rrule options onto an event. dtstart may be zero.
func FromROption(opt rrule.ROption, dtstart time.Time) (generic.Event, error) {
	if len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0 {
		return generic.Event{}, fmt.Errorf("%w: BYSETPOS/BYYEARDAY/BYWEEKNO/time parts", ErrUnsupportedRRule)
	}

	var event generic.Event
	if !dtstart.IsZero() {
		event.StartDate = mo.Some(generic.DateOf(dtstart.UTC()))
	}
	if !opt.Until.IsZero() {
		event.EndDate = mo.Some(generic.DateOf(opt.Until.UTC()))
	}
	if opt.Count > 0 {
		event.NumberOfOccurrences = mo.Some(opt.Count)
	}
	if opt.Interval > 1 {
		event.RepeatInterval = opt.Interval
	}
	start := event.StartDate.OrElse(epochStart)

	days, nth, err := splitWeekdays(opt.Byweekday)
	if err != nil {
		return generic.Event{}, err
	}
	if err := checkMonthDays(opt, start); err != nil {
		return generic.Event{}, err
	}

	switch opt.Freq {
	case rrule.DAILY:
		if nth != 0 {
			return generic.Event{}, fmt.Errorf("%w: ordinal BYDAY on DAILY", ErrUnsupportedRRule)
		}
		event.Frequency = generic.FrequencyDaily
		event.DaysOfWeek = days

	case rrule.WEEKLY:
		if nth != 0 {
			return generic.Event{}, fmt.Errorf("%w: ordinal BYDAY on WEEKLY", ErrUnsupportedRRule)
		}
		if event.RepeatInterval > 1 && opt.Wkst.Day() != rrule.SU.Day() && days.Has(time.Sunday) {
			return generic.Event{}, fmt.Errorf("%w: multi-week interval with Sunday and WKST=%s", ErrUnsupportedRRule, opt.Wkst)
		}
		event.Frequency, event.DaysOfWeek = weeklyFrequency(days)

	case rrule.MONTHLY:
		event.Frequency = generic.FrequencyMonthly
		switch {
		case nth == 0 && !days.IsEmpty():
			return generic.Event{}, fmt.Errorf("%w: BYDAY without ordinal on MONTHLY", ErrUnsupportedRRule)
		case nth == -1:
			event.MonthlyWeek = generic.MonthlyWeekLast
			event.DaysOfWeek = days
		case nth >= 1 && nth <= 4:
			event.MonthlyWeek = generic.MonthlyWeek(nth)
			event.DaysOfWeek = days
		case nth != 0:
			return generic.Event{}, fmt.Errorf("%w: BYDAY ordinal %d", ErrUnsupportedRRule, nth)
		}

	case rrule.YEARLY:
		if !days.IsEmpty() {
			return generic.Event{}, fmt.Errorf("%w: BYDAY on YEARLY", ErrUnsupportedRRule)
		}
		event.Frequency = generic.FrequencyYearly
		if len(opt.Bymonth) > 0 && (len(opt.Bymonth) != 1 || opt.Bymonth[0] != int(start.Month())) {
			return generic.Event{}, fmt.Errorf("%w: BYMONTH other than the start month on YEARLY", ErrUnsupportedRRule)
		}
		return event, nil

	default:
		return generic.Event{}, fmt.Errorf("%w: FREQ=%s", ErrUnsupportedRRule, opt.Freq)
	}

	if len(opt.Bymonth) > 0 {
		r, err := rangeOf(opt.Bymonth)
		if err != nil {
			return generic.Event{}, err
		}
		event.RangeInYear = r
	}
	return event, nil
}

// splitWeekdays returns the weekday set and the shared ordinal (0 = none).
func splitWeekdays(in []rrule.Weekday) (generic.Weekdays, int, error) {
	var set generic.Weekdays
	nth := 0
	for i, wd := range in {
		if i > 0 && wd.N() != nth {
			return generic.NoWeekdays, 0, fmt.Errorf("%w: mixed BYDAY ordinals", ErrUnsupportedRRule)
		}
		nth = wd.N()
		set = set.With(fromRRuleDay(wd))
	}
	return set, nth, nil
}

// checkMonthDays accepts BYMONTHDAY only when it restates the start day.
func checkMonthDays(opt rrule.ROption, start generic.Date) error {
	if len(opt.Bymonthday) == 0 {
		return nil
	}
	if len(opt.Bymonthday) == 1 && opt.Bymonthday[0] == start.Day() &&
		(opt.Freq == rrule.MONTHLY || opt.Freq == rrule.YEARLY) && len(opt.Byweekday) == 0 {
		return nil
	}
	return fmt.Errorf("%w: BYMONTHDAY=%v", ErrUnsupportedRRule, opt.Bymonthday)
}

// weeklyFrequency prefers the named weekday patterns.
func weeklyFrequency(days generic.Weekdays) (generic.Frequency, generic.Weekdays) {
	switch days {
	case generic.WorkWeek:
		return generic.FrequencyEveryWeekday, generic.NoWeekdays
	case generic.MonWedFriSet:
		return generic.FrequencyMonWedFri, generic.NoWeekdays
	case generic.TueThuSet:
		return generic.FrequencyTueThu, generic.NoWeekdays
	}
	return generic.FrequencyWeekly, days
}

// rangeOf turns a BYMONTH list into a whole-month range. The months must
// form one contiguous block, possibly wrapping over December.
func rangeOf(months []int) (mo.Option[generic.AnnualRange], error) {
	var in [13]bool
	for _, m := range months {
		if m < 1 || m > 12 {
			return mo.None[generic.AnnualRange](), fmt.Errorf("%w: BYMONTH=%d", ErrUnsupportedRRule, m)
		}
		in[m] = true
	}
	uniq := make([]int, 0, len(months))
	for m := 1; m <= 12; m++ {
		if in[m] {
			uniq = append(uniq, m)
		}
	}
	if len(uniq) == 12 {
		return mo.None[generic.AnnualRange](), nil
	}

	// The block starts at the month whose predecessor is missing.
	for _, start := range uniq {
		prev := (start+10)%12 + 1
		if in[prev] {
			continue
		}
		end := start
		for in[end%12+1] {
			end = end%12 + 1
		}
		size := (end-start+12)%12 + 1
		if size != len(uniq) {
			break
		}
		return mo.Some(generic.MonthRange(time.Month(start), time.Month(end))), nil
	}
	return mo.None[generic.AnnualRange](), fmt.Errorf("%w: non-contiguous BYMONTH=%v", ErrUnsupportedRRule, months)
}
