package client

import (
	"context"
	"fmt"

	mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
)

// summarizeRequest is the POST /api/summarize payload.
type summarizeRequest struct {
	FullTranscript string `json:"full_transcript"`
	LanguageCode   string `json:"language_code"`
}

// summarizeResponse carries the generated summary.
type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize sends a transcript to the backend summarizer and returns the
// summary text. The language code guides the summarization prompt and
// defaults to English.
func (c *Client) Summarize(ctx context.Context, fullTranscript, languageCode string) (string, error) {
	if fullTranscript == "" {
		return "", fmt.Errorf("transcript is empty: %w", mserrors.ErrValidation)
	}
	if languageCode == "" {
		languageCode = "en"
	}

	req := summarizeRequest{
		FullTranscript: fullTranscript,
		LanguageCode:   languageCode,
	}

	var resp summarizeResponse
	if err := c.postJSON(ctx, "/api/summarize", req, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}
