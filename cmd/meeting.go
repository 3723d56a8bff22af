package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
	"github.com/hdntran/meetscribe-cli/pkg/recorder"
)

// MeetingCommandDeps holds the dependencies for the meeting command group.
type MeetingCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
	NewClient  ClientFactory
	Recorder   func(log logging.Logger) *recorder.Recorder
}

// DefaultMeetingDeps returns the default dependencies for production use.
func DefaultMeetingDeps() *MeetingCommandDeps {
	return &MeetingCommandDeps{
		LoadConfig: config.LoadConfig,
		NewClient:  client.FromConfig,
		Recorder:   sharedRecorder,
	}
}

// NewMeetingCommand creates the meeting command group.
func NewMeetingCommand(deps *MeetingCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultMeetingDeps()
	}

	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Manage meetings",
		Long: `Create, list, update, and delete meetings, and work with their
recordings and transcriptions.`,
	}

	cmd.AddCommand(newMeetingCreateCommand(deps))
	cmd.AddCommand(newMeetingListCommand(deps))
	cmd.AddCommand(newMeetingShowCommand(deps))
	cmd.AddCommand(newMeetingUpdateCommand(deps))
	cmd.AddCommand(newMeetingDeleteCommand(deps))
	cmd.AddCommand(newMeetingRecordCommand(deps))
	cmd.AddCommand(newMeetingAudioCommand(deps))
	cmd.AddCommand(newMeetingTranscriptionCommand(deps))

	return cmd
}

// meetingClient loads config and builds an API client for meeting subcommands.
func meetingClient(deps *MeetingCommandDeps) (*config.CLIConfig, *client.Client, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	api, err := deps.NewClient(cfg, newLogger(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, api, nil
}

// Meeting create flags.
var (
	meetingCreateTitle        string
	meetingCreateDescription  string
	meetingCreateStart        string
	meetingCreateEnd          string
	meetingCreateLocationType string
	meetingCreateLocation     string
	meetingCreateOrganizer    string
	meetingCreateStatus       string
	meetingCreateTags         []string
	meetingCreateParticipants []string
)

func newMeetingCreateCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a meeting",
		Long: `Create a meeting. Title, organizer, location, start, and end are
required, and the end time must be after the start time.

Times accept RFC 3339 or the shorter forms "2006-01-02 15:04" and
"2006-01-02" (interpreted in the local time zone).

Participants are given as name=email pairs, optionally with a role:
  --participant "Ada Lovelace=ada@example.com"
  --participant "Alan Turing=alan@example.com:lead"

Examples:
  meetscribe meeting create --title "Weekly sync" --organizer alice@example.com \
    --start "2026-09-07 10:00" --end "2026-09-07 10:30" \
    --location-type virtual --location https://meet.example.com/sync`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingCreate(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&meetingCreateTitle, "title", "", "Meeting title (required)")
	cmd.Flags().StringVar(&meetingCreateDescription, "description", "", "Meeting description")
	cmd.Flags().StringVar(&meetingCreateStart, "start", "", "Start time (required)")
	cmd.Flags().StringVar(&meetingCreateEnd, "end", "", "End time (required)")
	cmd.Flags().StringVar(&meetingCreateLocationType, "location-type", "physical", "Location type: physical or virtual")
	cmd.Flags().StringVar(&meetingCreateLocation, "location", "", "Room name or meeting URL (required)")
	cmd.Flags().StringVar(&meetingCreateOrganizer, "organizer", "", "Organizer email (required)")
	cmd.Flags().StringVar(&meetingCreateStatus, "status", client.MeetingStatusScheduled, "Initial status")
	cmd.Flags().StringSliceVar(&meetingCreateTags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringSliceVar(&meetingCreateParticipants, "participant", nil, "Participant as name=email[:role] (repeatable)")

	return cmd
}

func runMeetingCreate(cmd *cobra.Command, deps *MeetingCommandDeps) error {
	start, err := parseTimeFlag(meetingCreateStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := parseTimeFlag(meetingCreateEnd)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	participants, err := parseParticipants(meetingCreateParticipants)
	if err != nil {
		return err
	}

	req := &client.CreateMeetingRequest{
		Title:        meetingCreateTitle,
		Description:  meetingCreateDescription,
		StartTime:    start,
		EndTime:      end,
		LocationType: meetingCreateLocationType,
		Location:     meetingCreateLocation,
		Organizer:    meetingCreateOrganizer,
		Status:       meetingCreateStatus,
		Tags:         meetingCreateTags,
		Participants: participants,
	}

	cfg, api, err := meetingClient(deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	meeting, err := api.CreateMeeting(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.OutputFormat != config.OutputFormatText {
		return printStructured(out, cfg.OutputFormat, meeting)
	}
	fmt.Fprintf(out, "Created meeting %s\n\n", meeting.ID)
	printMeeting(out, meeting)
	return nil
}

// parseParticipants parses name=email[:role] flag values. The role is split
// on the last ':' so emails themselves never need escaping.
func parseParticipants(values []string) ([]client.Participant, error) {
	participants := make([]client.Participant, 0, len(values))
	for _, v := range values {
		name, rest, ok := strings.Cut(v, "=")
		if !ok || name == "" || rest == "" {
			return nil, fmt.Errorf("invalid participant %q: expected name=email[:role]", v)
		}
		email := rest
		role := ""
		if idx := strings.LastIndex(rest, ":"); idx > 0 {
			email, role = rest[:idx], rest[idx+1:]
		}
		participants = append(participants, client.Participant{
			Name:       strings.TrimSpace(name),
			Email:      strings.TrimSpace(email),
			Role:       strings.TrimSpace(role),
			IsRequired: true,
		})
	}
	return participants, nil
}

// Meeting list flags.
var (
	meetingListStatus    string
	meetingListOrganizer string
	meetingListFrom      string
	meetingListTo        string
	meetingListLimit     int
)

func newMeetingListCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingList(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&meetingListStatus, "status", "", "Filter by status")
	cmd.Flags().StringVar(&meetingListOrganizer, "organizer", "", "Filter by organizer email")
	cmd.Flags().StringVar(&meetingListFrom, "from", "", "Only meetings starting at or after this time")
	cmd.Flags().StringVar(&meetingListTo, "to", "", "Only meetings starting before this time")
	cmd.Flags().IntVar(&meetingListLimit, "limit", 20, "Maximum number of meetings")

	return cmd
}

func runMeetingList(cmd *cobra.Command, deps *MeetingCommandDeps) error {
	opts := client.ListMeetingsOptions{
		Status:    meetingListStatus,
		Organizer: meetingListOrganizer,
		Limit:     meetingListLimit,
	}
	if meetingListFrom != "" {
		t, err := parseTimeFlag(meetingListFrom)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		opts.StartDate = t
	}
	if meetingListTo != "" {
		t, err := parseTimeFlag(meetingListTo)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		opts.EndDate = t
	}

	cfg, api, err := meetingClient(deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	meetings, err := api.ListMeetings(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.OutputFormat != config.OutputFormatText {
		return printStructured(out, cfg.OutputFormat, meetings)
	}

	if len(meetings) == 0 {
		fmt.Fprintln(out, "No meetings found.")
		return nil
	}

	upcoming := 0
	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTART\tSTATUS\tORGANIZER")
	for _, m := range meetings {
		if m.Status == client.MeetingStatusScheduled && m.StartTime.After(now) {
			upcoming++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(m.ID), m.Title,
			m.StartTime.Local().Format("2006-01-02 15:04"),
			m.Status, m.Organizer)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d meetings, %d upcoming\n", len(meetings), upcoming)
	return nil
}

func newMeetingShowCommand(deps *MeetingCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, api, err := meetingClient(deps)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			meeting, err := api.GetMeeting(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.OutputFormat != config.OutputFormatText {
				return printStructured(out, cfg.OutputFormat, meeting)
			}
			printMeeting(out, meeting)
			return nil
		},
	}
}

var meetingDeleteYes bool

func newMeetingDeleteCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <meeting-id>",
		Short: "Delete a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !meetingDeleteYes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete meeting %s? [y/N]: ", args[0])
				var answer string
				fmt.Fscanln(cmd.InOrStdin(), &answer)
				if answer != "y" && answer != "Y" && answer != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			cfg, api, err := meetingClient(deps)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			if err := api.DeleteMeeting(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted meeting %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&meetingDeleteYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// shortID truncates a UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
