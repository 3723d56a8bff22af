package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
)

// Meeting update flags.
var (
	meetingUpdateTitle        string
	meetingUpdateDescription  string
	meetingUpdateStart        string
	meetingUpdateEnd          string
	meetingUpdateLocationType string
	meetingUpdateLocation     string
	meetingUpdateStatus       string
	meetingUpdateSummary      string
	meetingUpdateTags         []string
)

func newMeetingUpdateCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <meeting-id>",
		Short: "Update a meeting",
		Long: `Update individual fields of a meeting. Only the flags you pass are
changed; everything else keeps its current value.

Examples:
  meetscribe meeting update 4f1c... --status completed
  meetscribe meeting update 4f1c... --title "Weekly sync (moved)" --start "2026-09-08 10:00"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingUpdate(cmd, deps, args[0])
		},
	}

	cmd.Flags().StringVar(&meetingUpdateTitle, "title", "", "New title")
	cmd.Flags().StringVar(&meetingUpdateDescription, "description", "", "New description")
	cmd.Flags().StringVar(&meetingUpdateStart, "start", "", "New start time")
	cmd.Flags().StringVar(&meetingUpdateEnd, "end", "", "New end time")
	cmd.Flags().StringVar(&meetingUpdateLocationType, "location-type", "", "New location type")
	cmd.Flags().StringVar(&meetingUpdateLocation, "location", "", "New location")
	cmd.Flags().StringVar(&meetingUpdateStatus, "status", "", "New status")
	cmd.Flags().StringVar(&meetingUpdateSummary, "summary", "", "New summary text")
	cmd.Flags().StringSliceVar(&meetingUpdateTags, "tag", nil, "Replace tags (repeatable)")

	return cmd
}

func runMeetingUpdate(cmd *cobra.Command, deps *MeetingCommandDeps, meetingID string) error {
	req := &client.UpdateMeetingRequest{}
	changed := false

	set := func(flag string, apply func()) {
		if cmd.Flags().Changed(flag) {
			apply()
			changed = true
		}
	}

	set("title", func() { req.Title = &meetingUpdateTitle })
	set("description", func() { req.Description = &meetingUpdateDescription })
	set("location-type", func() { req.LocationType = &meetingUpdateLocationType })
	set("location", func() { req.Location = &meetingUpdateLocation })
	set("summary", func() { req.Summary = &meetingUpdateSummary })
	set("tag", func() { req.Tags = meetingUpdateTags })
	set("status", func() { req.Status = &meetingUpdateStatus })

	if cmd.Flags().Changed("start") {
		t, err := parseTimeFlag(meetingUpdateStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		req.StartTime = &t
		changed = true
	}
	if cmd.Flags().Changed("end") {
		t, err := parseTimeFlag(meetingUpdateEnd)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
		req.EndTime = &t
		changed = true
	}

	if !changed {
		return fmt.Errorf("nothing to update: pass at least one field flag")
	}

	cfg, api, err := meetingClient(deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	meeting, err := api.UpdateMeeting(ctx, meetingID, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.OutputFormat != config.OutputFormatText {
		return printStructured(out, cfg.OutputFormat, meeting)
	}
	fmt.Fprintf(out, "Updated meeting %s\n\n", meeting.ID)
	printMeeting(out, meeting)
	return nil
}
