package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"github.com/warp/occurrence-engine/factory"
	"github.com/warp/occurrence-engine/generic"
	"github.com/warp/occurrence-engine/generic/store"
	"github.com/warp/occurrence-engine/holidays"
)

// defaultListDays is the length of "occur list" when --to is not given.
const defaultListDays = 30

// app is the state shared by every subcommand.
type app struct {
	file     string
	calendar string
	verbose  bool

	store *store.Memory
	debug *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "occur",
		Short:        "Query recurring event occurrences",
		Long:         "occur answers occurrence queries for events described in a YAML file.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.file, "file", "f", "events.yaml", "events YAML file")
	root.PersistentFlags().StringVar(&a.calendar, "calendar", "", "calendar for events without calendar_id")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "print compiled expressions")

	root.AddCommand(
		a.eventsCmd(),
		a.listCmd(),
		a.checkCmd(),
		a.nextCmd(),
		a.previousCmd(),
		a.firstCmd(),
		a.lastCmd(),
		a.rruleCmd(),
		holidaysCmd(),
	)
	return root
}

// load reads the events file into a fresh in-memory store.
func (a *app) load(cmd *cobra.Command) error {
	a.debug = log.New(io.Discard, "", 0)
	if a.verbose {
		a.debug = log.New(cmd.ErrOrStderr(), "[debug] ", 0)
	}
	a.store = store.NewMemory()

	// holidays needs no events file.
	if cmd.Name() == "holidays" {
		return nil
	}

	data, err := os.ReadFile(a.file)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	records, calendars, err := factory.NewEventFactory().ParseEventsFile(data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	for _, cal := range calendars {
		if err := a.store.SaveCalendar(ctx, cal); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if err := a.store.SaveEvent(ctx, rec); err != nil {
			return err
		}
	}
	a.debug.Printf("loaded %d events, %d calendars from %s", len(records), len(calendars), a.file)
	return nil
}

func (a *app) schedule(ctx context.Context, id string) (*generic.Schedule, error) {
	rec, err := a.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	s, found, err := holidays.Compile(ctx, a.store, rec, a.calendar)
	if err != nil {
		return nil, err
	}
	if !found {
		a.debug.Printf("%s: calendar not found, nothing excluded", id)
	}
	a.debug.Printf("%s: %s", id, s.Expression())
	return s, nil
}

// =============================================================================
// EVENTS
// =============================================================================

func (a *app) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the events in the file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.store.ListEvents(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rec := range records {
				fmt.Fprintf(out, "%s\t%s\t%s\n", rec.Event.ID, rec.Event.Frequency, rec.Event.Title)
			}
			return nil
		},
	}
}

// =============================================================================
// OCCURRENCE QUERIES
// =============================================================================

func (a *app) listCmd() *cobra.Command {
	var from, to string
	var limit int

	cmd := &cobra.Command{
		Use:   "list <event-id>",
		Short: "List occurrences in a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := dateFlag(from, generic.Today())
			if err != nil {
				return err
			}
			end, err := dateFlag(to, start.AddDays(defaultListDays))
			if err != nil {
				return err
			}
			if end.Before(start) {
				return fmt.Errorf("%w: --to %s is before --from %s", generic.ErrInvalidRange, end, start)
			}

			s, err := a.schedule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range s.OccurrencesUpTo(generic.DateRange{Start: start, End: end}, limit) {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "range start (default: today)")
	cmd.Flags().StringVar(&to, "to", "", fmt.Sprintf("range end (default: from + %d days)", defaultListDays))
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of dates (0: no limit)")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <event-id> <date>",
		Short: "Report whether the event occurs on a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := generic.ParseDate(args[1])
			if err != nil {
				return err
			}
			s, err := a.schedule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if s.IsOccurring(d) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s occurs on %s\n", args[0], d)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s does not occur on %s\n", args[0], d)
			}
			return nil
		},
	}
}

func (a *app) nextCmd() *cobra.Command {
	var after string
	cmd := &cobra.Command{
		Use:   "next <event-id>",
		Short: "Print the next occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dateFlag(after, generic.Today())
			if err != nil {
				return err
			}
			return a.printDate(cmd, args[0], func(s *generic.Schedule) mo.Option[generic.Date] {
				return s.NextOccurrence(d)
			})
		},
	}
	cmd.Flags().StringVar(&after, "after", "", "reference date (default: today)")
	return cmd
}

func (a *app) previousCmd() *cobra.Command {
	var before string
	cmd := &cobra.Command{
		Use:   "previous <event-id>",
		Short: "Print the previous occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dateFlag(before, generic.Today())
			if err != nil {
				return err
			}
			return a.printDate(cmd, args[0], func(s *generic.Schedule) mo.Option[generic.Date] {
				return s.PreviousOccurrence(d)
			})
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "reference date (default: today)")
	return cmd
}

func (a *app) firstCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "first <event-id>",
		Short: "Print the first occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printDate(cmd, args[0], (*generic.Schedule).FirstOccurrence)
		},
	}
}

func (a *app) lastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last <event-id>",
		Short: "Print the last occurrence implied by the count or end date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printDate(cmd, args[0], (*generic.Schedule).LastOccurrenceDate)
		},
	}
}

// printDate prints the date returned by query, or "none".
func (a *app) printDate(cmd *cobra.Command, id string, query func(*generic.Schedule) mo.Option[generic.Date]) error {
	s, err := a.schedule(cmd.Context(), id)
	if err != nil {
		return err
	}
	if d, ok := query(s).Get(); ok {
		fmt.Fprintln(cmd.OutOrStdout(), d)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "none")
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

func (a *app) rruleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rrule <event-id>",
		Short: "Print the event as an RFC 5545 rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.store.GetEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rule, err := factory.ToRRule(rec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rule)
			return nil
		},
	}
}

func holidaysCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "holidays <set>",
		Short: "List a built-in holiday set for one year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := holidays.Lookup(args[0])
			if !ok {
				return fmt.Errorf("%w: unknown holiday set %q", generic.ErrCalendarNotFound, args[0])
			}
			if year == 0 {
				year = generic.Today().Year()
			}
			out := cmd.OutOrStdout()
			for _, h := range set.HolidaysIn(year) {
				fmt.Fprintf(out, "%s\t%s\n", h.Date, h.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default: current year)")
	return cmd
}

func dateFlag(value string, fallback generic.Date) (generic.Date, error) {
	if value == "" {
		return fallback, nil
	}
	return generic.ParseDate(value)
}
