/*
errors.go - Centralized error types for the occurrence engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The query surface (IsOccurring, Occurrences, Next/Previous/LastOccurrence)
  never returns an error: absence is an empty slice or mo.None. Errors only
  appear at the edges, when text is parsed into dates and events or when a
  store cannot find what was asked for.

ERROR CATEGORIES:
  1. Parse errors - Malformed dates, weekdays, frequency names
  2. Lookup errors - Unknown event or exclusion calendar
  3. Store errors - Database-level failures (wrapped by store packages)

USAGE:
    if errors.Is(err, generic.ErrEventNotFound) {
        // 404
    }

SEE ALSO:
  - factory/event.go: Wraps parse errors with field context
  - store/sqlite/sqlite.go: Returns lookup errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a string is not a YYYY-MM-DD date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidField is returned when a configuration field cannot be parsed.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidRange is returned when a caller-supplied range is malformed
	// (missing bound). An inverted range is NOT an error, it is simply empty.
	ErrInvalidRange = errors.New("invalid range")

	// ErrEventNotFound is returned when a referenced event doesn't exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrCalendarNotFound is returned when a referenced exclusion calendar doesn't exist.
	ErrCalendarNotFound = errors.New("exclusion calendar not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidFieldError names the configuration field that failed to parse.
type InvalidFieldError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidFieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *InvalidFieldError) Unwrap() []error {
	return []error{ErrInvalidField, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrCalendarNotFound)
}
