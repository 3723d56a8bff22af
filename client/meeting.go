package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
	"github.com/hdntran/meetscribe-cli/pkg/transcript"
)

// Meeting status values.
const (
	MeetingStatusDraft      = "draft"
	MeetingStatusScheduled  = "scheduled"
	MeetingStatusInProgress = "in_progress"
	MeetingStatusCompleted  = "completed"
	MeetingStatusCancelled  = "cancelled"
)

// MeetingStatuses lists all valid meeting status values.
var MeetingStatuses = []string{
	MeetingStatusDraft,
	MeetingStatusScheduled,
	MeetingStatusInProgress,
	MeetingStatusCompleted,
	MeetingStatusCancelled,
}

// IsValidMeetingStatus reports whether s is a known meeting status.
func IsValidMeetingStatus(s string) bool {
	for _, status := range MeetingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Participant is one meeting attendee.
type Participant struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	IsRequired bool   `json:"is_required"`
}

// Meeting is the server-side meeting record. The server encodes the ID
// field as "_id".
type Meeting struct {
	ID              string        `json:"_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	LocationType    string        `json:"location_type"`
	Location        string        `json:"location,omitempty"`
	Organizer       string        `json:"organizer"`
	Status          string        `json:"status"`
	RecurrenceRule  string        `json:"recurrence_rule,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
	Participants    []Participant `json:"participants"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	AudioFilePath   string        `json:"audio_file_path,omitempty"`
	TranscriptionID string        `json:"transcription_id,omitempty"`
	Summary         string        `json:"summary,omitempty"`
}

// HasAudio reports whether a recording has been attached to the meeting.
func (m *Meeting) HasAudio() bool {
	return m.AudioFilePath != ""
}

// CreateMeetingRequest is the payload for creating a meeting.
type CreateMeetingRequest struct {
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	LocationType   string        `json:"location_type"`
	Location       string        `json:"location"`
	Organizer      string        `json:"organizer"`
	Status         string        `json:"status,omitempty"`
	RecurrenceRule string        `json:"recurrence_rule,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	Participants   []Participant `json:"participants"`
}

// Validate enforces the required fields before any request is issued:
// title, organizer, and location must be non-empty, and the time range must
// be ordered.
func (r *CreateMeetingRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Organizer) == "" {
		missing = append(missing, "organizer")
	}
	if strings.TrimSpace(r.Location) == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s: %w",
			strings.Join(missing, ", "), mserrors.ErrValidation)
	}

	if !r.EndTime.After(r.StartTime) {
		return fmt.Errorf("end time must be after start time: %w", mserrors.ErrValidation)
	}
	if r.Status != "" && !IsValidMeetingStatus(r.Status) {
		return fmt.Errorf("invalid status %q: %w", r.Status, mserrors.ErrValidation)
	}
	return nil
}

// UpdateMeetingRequest carries the fields to change; nil fields are left
// untouched by the server.
type UpdateMeetingRequest struct {
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	StartTime    *time.Time     `json:"start_time,omitempty"`
	EndTime      *time.Time     `json:"end_time,omitempty"`
	LocationType *string        `json:"location_type,omitempty"`
	Location     *string        `json:"location,omitempty"`
	Status       *string        `json:"status,omitempty"`
	Summary      *string        `json:"summary,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Participants *[]Participant `json:"participants,omitempty"`
}

// CalendarEvent is a rendered calendar entry with a status color.
type CalendarEvent struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Start         string             `json:"start"`
	End           string             `json:"end"`
	Location      string             `json:"location"`
	Organizer     string             `json:"organizer"`
	Status        string             `json:"status"`
	Color         string             `json:"color"`
	ExtendedProps CalendarEventProps `json:"extendedProps"`
}

// CalendarEventProps carries the secondary event details.
type CalendarEventProps struct {
	Description  string `json:"description"`
	Participants int    `json:"participants"`
	LocationType string `json:"location_type"`
}

// MeetingTranscription is the transcription view for a meeting.
type MeetingTranscription struct {
	FullText    string               `json:"full_text"`
	Segments    []transcript.Segment `json:"segments"`
	Language    string               `json:"language"`
	MeetingInfo *Meeting             `json:"meeting_info,omitempty"`
}

// ListMeetingsOptions filters a meeting listing.
type ListMeetingsOptions struct {
	Status    string
	Organizer string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// fallbackListLimit is the enlarged limit retried when a filtered listing
// comes back empty, mirroring how recently created meetings can fall outside
// a small default window.
const fallbackListLimit = 100

// CreateMeeting validates and creates a meeting. Validation failures are
// returned before any request is made.
func (c *Client) CreateMeeting(ctx context.Context, req *CreateMeetingRequest) (*Meeting, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.LocationType == "" {
		req.LocationType = "physical"
	}
	if req.Participants == nil {
		req.Participants = []Participant{}
	}

	var meeting Meeting
	if err := c.postJSON(ctx, "/api/meetings", req, &meeting); err != nil {
		return nil, err
	}

	c.log.Info("meeting created",
		logging.F("meeting_id", meeting.ID),
		logging.F("title", meeting.Title))

	return &meeting, nil
}

// GetMeeting fetches a single meeting by ID.
func (c *Client) GetMeeting(ctx context.Context, meetingID string) (*Meeting, error) {
	var meeting Meeting
	if err := c.getJSON(ctx, "/api/meetings/"+url.PathEscape(meetingID), nil, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// ListMeetings returns meetings matching the filter, newest first. When a
// limited listing comes back empty, one retry is made at a larger limit so
// fresh meetings are not missed behind a small window.
func (c *Client) ListMeetings(ctx context.Context, opts ListMeetingsOptions) ([]Meeting, error) {
	meetings, err := c.listMeetingsOnce(ctx, opts)
	if err != nil {
		return nil, err
	}

	if len(meetings) == 0 && opts.Limit > 0 && opts.Limit < fallbackListLimit {
		opts.Limit = fallbackListLimit
		return c.listMeetingsOnce(ctx, opts)
	}

	return meetings, nil
}

func (c *Client) listMeetingsOnce(ctx context.Context, opts ListMeetingsOptions) ([]Meeting, error) {
	query := url.Values{}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Organizer != "" {
		query.Set("organizer", opts.Organizer)
	}
	if !opts.StartDate.IsZero() {
		query.Set("start_date", opts.StartDate.Format(time.RFC3339))
	}
	if !opts.EndDate.IsZero() {
		query.Set("end_date", opts.EndDate.Format(time.RFC3339))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var meetings []Meeting
	if err := c.getJSON(ctx, "/api/meetings", query, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

// UpdateMeeting applies a partial update to a meeting.
func (c *Client) UpdateMeeting(ctx context.Context, meetingID string, req *UpdateMeetingRequest) (*Meeting, error) {
	if req.Status != nil && !IsValidMeetingStatus(*req.Status) {
		return nil, fmt.Errorf("invalid status %q: %w", *req.Status, mserrors.ErrValidation)
	}

	var meeting Meeting
	if err := c.putJSON(ctx, "/api/meetings/"+url.PathEscape(meetingID), req, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// DeleteMeeting removes a meeting.
func (c *Client) DeleteMeeting(ctx context.Context, meetingID string) error {
	return c.delete(ctx, "/api/meetings/"+url.PathEscape(meetingID), nil)
}

// CalendarEvents returns the color-coded events overlapping [start, end].
func (c *Client) CalendarEvents(ctx context.Context, start, end time.Time) ([]CalendarEvent, error) {
	query := url.Values{}
	query.Set("start", start.Format(time.RFC3339))
	query.Set("end", end.Format(time.RFC3339))

	var events []CalendarEvent
	if err := c.getJSON(ctx, "/api/meetings/calendar", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// UploadRecordingResponse acknowledges a meeting recording upload; the
// server transcribes and summarizes in the background.
type UploadRecordingResponse struct {
	Message   string `json:"message"`
	MeetingID string `json:"meeting_id"`
	FilePath  string `json:"file_path,omitempty"`
}

// UploadMeetingRecording attaches an audio recording to a meeting for
// background transcription and summarization. The file is validated locally
// first.
func (c *Client) UploadMeetingRecording(ctx context.Context, meetingID, filePath string) (*UploadRecordingResponse, error) {
	if err := ValidateAudioFile(filePath); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", filePath, err)
	}
	defer file.Close()

	var resp UploadRecordingResponse
	path := "/api/meetings/" + url.PathEscape(meetingID) + "/record-audio"
	if err := c.uploadMultipart(ctx, path, filepath.Base(filePath), file, nil, &resp); err != nil {
		return nil, err
	}

	c.log.Info("meeting recording uploaded",
		logging.F("meeting_id", meetingID),
		logging.F("file", filepath.Base(filePath)))

	return &resp, nil
}

// DownloadMeetingAudio streams the meeting's audio file into w and returns
// the number of bytes written.
func (c *Client) DownloadMeetingAudio(ctx context.Context, meetingID string, w io.Writer) (int64, error) {
	path := "/api/meetings/" + url.PathEscape(meetingID) + "/audio"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, apiErrorFromResponse(req, resp.StatusCode, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("downloading audio: %w", err)
	}
	return n, nil
}

// GetMeetingTranscription fetches the transcription attached to a meeting.
func (c *Client) GetMeetingTranscription(ctx context.Context, meetingID string) (*MeetingTranscription, error) {
	var trans MeetingTranscription
	path := "/api/meetings/" + url.PathEscape(meetingID) + "/transcription"
	if err := c.getJSON(ctx, path, nil, &trans); err != nil {
		return nil, err
	}
	return &trans, nil
}
