package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
)

// Calendar command flags.
var (
	calendarFrom  string
	calendarTo    string
	calendarMonth string
	calendarWatch bool
)

// calendarWatchInterval is how often --watch refreshes the event list.
const calendarWatchInterval = 30 * time.Second

// CalendarCommandDeps holds the dependencies for the calendar command.
type CalendarCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
	NewClient  ClientFactory
}

// DefaultCalendarDeps returns the default dependencies for production use.
func DefaultCalendarDeps() *CalendarCommandDeps {
	return &CalendarCommandDeps{
		LoadConfig: config.LoadConfig,
		NewClient:  client.FromConfig,
	}
}

// NewCalendarCommand creates the calendar command.
func NewCalendarCommand(deps *CalendarCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultCalendarDeps()
	}

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show meetings as calendar events",
		Long: `List calendar events for a date range. Without flags the current
month is shown. With --watch the list refreshes every 30 seconds until
interrupted.

Examples:
  meetscribe calendar
  meetscribe calendar --month 2026-10
  meetscribe calendar --from 2026-09-01 --to 2026-09-15
  meetscribe calendar --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalendar(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&calendarFrom, "from", "", "Range start (inclusive)")
	cmd.Flags().StringVar(&calendarTo, "to", "", "Range end (exclusive)")
	cmd.Flags().StringVar(&calendarMonth, "month", "", "Show a whole month (YYYY-MM)")
	cmd.Flags().BoolVar(&calendarWatch, "watch", false, "Refresh every 30 seconds")

	return cmd
}

// calendarRange resolves the flag combination into a [start, end) window.
func calendarRange(now time.Time) (time.Time, time.Time, error) {
	if calendarMonth != "" {
		if calendarFrom != "" || calendarTo != "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--month cannot be combined with --from/--to")
		}
		start, err := time.ParseInLocation("2006-01", calendarMonth, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --month %q: expected YYYY-MM", calendarMonth)
		}
		return start, start.AddDate(0, 1, 0), nil
	}

	if calendarFrom != "" || calendarTo != "" {
		if calendarFrom == "" || calendarTo == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--from and --to must be given together")
		}
		start, err := parseTimeFlag(calendarFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		end, err := parseTimeFlag(calendarTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		if !end.After(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
		}
		return start, end, nil
	}

	// Default: the current month.
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 1, 0), nil
}

func runCalendar(cmd *cobra.Command, deps *CalendarCommandDeps) error {
	start, end, err := calendarRange(time.Now())
	if err != nil {
		return err
	}

	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	api, err := deps.NewClient(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	fetch := func() error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		events, err := api.CalendarEvents(ctx, start, end)
		if err != nil {
			return err
		}
		return renderCalendar(cmd.OutOrStdout(), cfg, start, end, events)
	}

	if err := fetch(); err != nil {
		return err
	}
	if !calendarWatch {
		return nil
	}

	ticker := time.NewTicker(calendarWatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
			if err := fetch(); err != nil {
				// Keep watching through transient failures.
				fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %v\n", err)
			}
		}
	}
}

func renderCalendar(out io.Writer, cfg *config.CLIConfig, start, end time.Time, events []client.CalendarEvent) error {
	if cfg.OutputFormat != config.OutputFormatText {
		return printStructured(out, cfg.OutputFormat, events)
	}

	fmt.Fprintf(out, "Events from %s to %s\n\n",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	if len(events) == 0 {
		fmt.Fprintln(out, "No events in this range.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tEND\tTITLE\tSTATUS\tWHERE")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			formatEventTime(ev.Start),
			formatEventTime(ev.End),
			ev.Title,
			eventStatus(ev),
			ev.ExtendedProps.LocationType)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d events\n", len(events))
	return nil
}

// formatEventTime compacts the server's RFC 3339 timestamps for table output.
func formatEventTime(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}

// eventStatus resolves the status column for an event. The server reports the
// status directly; older servers only send the color, so fall back to mapping
// the color back to a status name.
func eventStatus(ev client.CalendarEvent) string {
	if ev.Status != "" {
		return ev.Status
	}
	return statusForColor(ev.Color)
}

// statusForColor maps the server's event colors back to status names so the
// text view stays meaningful without ANSI color support.
func statusForColor(color string) string {
	switch color {
	case "#6B7280":
		return client.MeetingStatusDraft
	case "#3B82F6":
		return client.MeetingStatusScheduled
	case "#F59E0B":
		return client.MeetingStatusInProgress
	case "#10B981":
		return client.MeetingStatusCompleted
	case "#EF4444":
		return client.MeetingStatusCancelled
	default:
		return "unknown"
	}
}
