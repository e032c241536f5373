/*
main.go - Command-line occurrence queries

PURPOSE:
  Answers occurrence questions about events described in a YAML file,
  without a server or database. Events and inline calendars are loaded
  into the in-memory store on every run.

COMMANDS:
  occur events                        List the events in the file
  occur list <id> [--from --to]       Occurrences in a range
  occur check <id> <date>             Is the event occurring on date
  occur next <id> [--after date]      Next occurrence
  occur previous <id> [--before date] Previous occurrence
  occur first <id>                    First occurrence
  occur last <id>                     Last occurrence (count or end date)
  occur rrule <id>                    RFC 5545 export
  occur holidays <set> [--year]       Built-in holiday set for a year

GLOBAL FLAGS:
  -f, --file      Events YAML (default: events.yaml)
      --calendar  Calendar for events without calendar_id; a stored
                  calendar from the file or a built-in set ("us-federal")
  -v, --verbose   Print the compiled expression of each queried event

FILE FORMAT:
  events:
    - id: standup
      frequency: every_weekday
      start_date: "2013-01-01"
      calendar_id: us-federal
  calendars:
    - id: office
      name: Office closures
      holidays:
        - {date: "2013-08-12", name: Move}

SEE ALSO:
  - factory/event.go: EventsFile
  - holidays/holidays.go: Built-in sets and calendar resolution
*/
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
