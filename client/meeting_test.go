package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
)

func validCreateRequest() *CreateMeetingRequest {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	return &CreateMeetingRequest{
		Title:     "Sprint planning",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Location:  "Room 4",
		Organizer: "dana",
	}
}

func TestCreateMeetingRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateMeetingRequest)
		valid  bool
	}{
		{"valid", func(r *CreateMeetingRequest) {}, true},
		{"empty title", func(r *CreateMeetingRequest) { r.Title = "  " }, false},
		{"empty organizer", func(r *CreateMeetingRequest) { r.Organizer = "" }, false},
		{"empty location", func(r *CreateMeetingRequest) { r.Location = "" }, false},
		{"end before start", func(r *CreateMeetingRequest) { r.EndTime = r.StartTime.Add(-time.Minute) }, false},
		{"bad status", func(r *CreateMeetingRequest) { r.Status = "paused" }, false},
		{"good status", func(r *CreateMeetingRequest) { r.Status = MeetingStatusScheduled }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			err := req.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, mserrors.ErrValidation)
			}
		})
	}
}

func TestCreateMeeting_InvalidNeverPosts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	req := validCreateRequest()
	req.Title = ""

	_, err := c.CreateMeeting(context.Background(), req)
	assert.ErrorIs(t, err, mserrors.ErrValidation)
	assert.Equal(t, int32(0), calls.Load())
}

func TestCreateMeeting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/meetings", r.URL.Path)

		var got CreateMeetingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Sprint planning", got.Title)
		assert.Equal(t, "physical", got.LocationType)
		assert.NotNil(t, got.Participants)

		json.NewEncoder(w).Encode(Meeting{
			ID:     "m-1",
			Title:  got.Title,
			Status: MeetingStatusDraft,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	meeting, err := c.CreateMeeting(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "m-1", meeting.ID)
	assert.Equal(t, MeetingStatusDraft, meeting.Status)
}

func TestGetMeeting_ParsesServerID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_id":"m-7","title":"Retro","status":"scheduled","participants":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	meeting, err := c.GetMeeting(context.Background(), "m-7")
	require.NoError(t, err)
	assert.Equal(t, "m-7", meeting.ID)
	assert.Equal(t, "Retro", meeting.Title)
}

func TestListMeetings_FallbackOnEmpty(t *testing.T) {
	var limits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limits = append(limits, r.URL.Query().Get("limit"))
		if len(limits) == 1 {
			w.Write([]byte(`[]`))
			return
		}
		json.NewEncoder(w).Encode([]Meeting{{ID: "m-1", Title: "Found"}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	meetings, err := c.ListMeetings(context.Background(), ListMeetingsOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, []string{"10", "100"}, limits)
}

func TestListMeetings_NoFallbackWhenPopulated(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, MeetingStatusScheduled, r.URL.Query().Get("status"))
		json.NewEncoder(w).Encode([]Meeting{{ID: "m-1"}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ListMeetings(context.Background(), ListMeetingsOptions{
		Status: MeetingStatusScheduled,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpdateMeeting_InvalidStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	bad := "archived"
	_, err := c.UpdateMeeting(context.Background(), "m-1", &UpdateMeetingRequest{Status: &bad})
	assert.ErrorIs(t, err, mserrors.ErrValidation)
	assert.Equal(t, int32(0), calls.Load())
}

func TestUpdateMeeting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/meetings/m-1", r.URL.Path)

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "completed", got["status"])
		assert.NotContains(t, got, "title")

		json.NewEncoder(w).Encode(Meeting{ID: "m-1", Status: MeetingStatusCompleted})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	status := MeetingStatusCompleted
	meeting, err := c.UpdateMeeting(context.Background(), "m-1", &UpdateMeetingRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, MeetingStatusCompleted, meeting.Status)
}

func TestDeleteMeeting(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.DeleteMeeting(context.Background(), "m-2"))
	assert.Equal(t, "/api/meetings/m-2", gotPath)
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestCalendarEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/meetings/calendar", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("start"))
		assert.NotEmpty(t, r.URL.Query().Get("end"))
		json.NewEncoder(w).Encode([]CalendarEvent{
			{
				ID:     "m-1",
				Title:  "Kickoff",
				Status: MeetingStatusScheduled,
				Color:  "#3B82F6",
				ExtendedProps: CalendarEventProps{
					Participants: 3,
					LocationType: "physical",
				},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	events, err := c.CalendarEvents(context.Background(), start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "#3B82F6", events[0].Color)
	assert.Equal(t, 3, events[0].ExtendedProps.Participants)
}

func TestUploadMeetingRecording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/meetings/m-1/record-audio", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "capture.wav", header.Filename)

		json.NewEncoder(w).Encode(UploadRecordingResponse{
			Message:   "processing",
			MeetingID: "m-1",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	audio := writeAudioFile(t, "capture.wav", 256)

	resp, err := c.UploadMeetingRecording(context.Background(), "m-1", audio)
	require.NoError(t, err)
	assert.Equal(t, "m-1", resp.MeetingID)
}

func TestDownloadMeetingAudio(t *testing.T) {
	payload := []byte("RIFF....WAVEfmt ")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/meetings/m-1/audio", r.URL.Path)
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(payload)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var buf bytes.Buffer
	n, err := c.DownloadMeetingAudio(context.Background(), "m-1", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestDownloadMeetingAudio_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "no audio"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var buf bytes.Buffer
	_, err := c.DownloadMeetingAudio(context.Background(), "m-1", &buf)
	assert.ErrorIs(t, err, mserrors.ErrNotFound)
}

func TestGetMeetingTranscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/meetings/m-1/transcription", r.URL.Path)
		w.Write([]byte(`{
			"full_text": "Hello everyone.",
			"segments": [{"id": 0, "start": 0, "end": 2, "text": " Hello everyone."}],
			"language": "en"
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	trans, err := c.GetMeetingTranscription(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello everyone.", trans.FullText)
	require.Len(t, trans.Segments, 1)
	assert.Equal(t, "en", trans.Language)
}

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/summarize", r.URL.Path)

		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "long transcript", got["full_transcript"])
		assert.Equal(t, "vi", got["language_code"])

		json.NewEncoder(w).Encode(map[string]string{"summary": "short version"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	summary, err := c.Summarize(context.Background(), "long transcript", "vi")
	require.NoError(t, err)
	assert.Equal(t, "short version", summary)
}

func TestSummarize_EmptyTranscript(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Summarize(context.Background(), "", "en")
	assert.ErrorIs(t, err, mserrors.ErrValidation)
	assert.Equal(t, int32(0), calls.Load())
}
