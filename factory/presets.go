package factory

import (
	"encoding/json"
)

// =============================================================================
// PRESET EVENTS
// =============================================================================
//
// Ready-made JSON definitions for common schedules. They return JSON rather
// than records so callers go through the same ParseEvent path as user input.
//
//   rec, err := factory.NewEventFactory().ParseEvent(factory.DailyStandupJSON("standup", "Standup", "2013-01-07"))

// DailyStandupJSON returns a Monday-Friday event starting on start.
func DailyStandupJSON(id, title, start string) string {
	return presetJSON(map[string]interface{}{
		"id":         id,
		"title":      title,
		"frequency":  "every_weekday",
		"start_date": start,
	})
}

// BiweeklyJSON returns an every-other-week event on the given weekday.
func BiweeklyJSON(id, title, weekday, start string) string {
	return presetJSON(map[string]interface{}{
		"id":              id,
		"title":           title,
		"frequency":       "weekly",
		"repeat_interval": 2,
		"days_of_week":    []string{weekday},
		"start_date":      start,
	})
}

// MonthlyByWeekdayJSON returns an event on e.g. the "first" "mon" of every
// month.
func MonthlyByWeekdayJSON(id, title, week, weekday, start string) string {
	return presetJSON(map[string]interface{}{
		"id":           id,
		"title":        title,
		"frequency":    "monthly",
		"monthly_week": week,
		"days_of_week": []string{weekday},
		"start_date":   start,
	})
}

// QuarterlyReviewJSON returns a quarterly event on the start date's day of
// month, limited to count occurrences.
func QuarterlyReviewJSON(id, title, start string, count int) string {
	return presetJSON(map[string]interface{}{
		"id":                    id,
		"title":                 title,
		"frequency":             "quarterly",
		"start_date":            start,
		"number_of_occurrences": count,
	})
}

// SummerFridaysJSON returns every Friday from June through August.
func SummerFridaysJSON(id, title, start string) string {
	return presetJSON(map[string]interface{}{
		"id":           id,
		"title":        title,
		"frequency":    "weekly",
		"days_of_week": []string{"fri"},
		"range_in_year": map[string]interface{}{
			"start_month": 6,
			"end_month":   8,
		},
		"start_date": start,
	})
}

// AnniversaryJSON returns a yearly event on the start date.
func AnniversaryJSON(id, title, start string) string {
	return presetJSON(map[string]interface{}{
		"id":         id,
		"title":      title,
		"frequency":  "yearly",
		"start_date": start,
	})
}

func presetJSON(v map[string]interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
