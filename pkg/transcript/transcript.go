// Package transcript holds the transcription result model returned by the
// backend and the client-side export formats (plain text, SRT, JSON).
package transcript

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Word is a single word-level token with its time bounds and confidence.
// Present only when word timestamps were requested.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Segment is a time-bounded span of transcribed text.
type Segment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek,omitempty"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Temperature      float64 `json:"temperature,omitempty"`
	AvgLogprob       float64 `json:"avg_logprob,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
	NoSpeechProb     float64 `json:"no_speech_prob,omitempty"`
	Words            []Word  `json:"words,omitempty"`
}

// Result is a completed transcription. Immutable once received.
type Result struct {
	Segments            []Segment `json:"segments"`
	Language            string    `json:"language"`
	LanguageProbability float64   `json:"language_probability"`
	ProcessingTime      float64   `json:"processing_time"`
	AudioDuration       float64   `json:"audio_duration"`
}

// FullText joins all segment texts into a single transcript string, with one
// space between segments. Whisper segments carry leading whitespace, so each
// segment is trimmed before joining.
func (r *Result) FullText() string {
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// LanguageName returns a human-readable name for the detected language code,
// e.g. "vi" -> "Vietnamese". Unrecognized codes are returned unchanged.
func (r *Result) LanguageName() string {
	return LanguageName(r.Language)
}

// LanguageName resolves an ISO language code to its English display name.
func LanguageName(code string) string {
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}
	return name
}

// ConfidencePercent formats the language detection probability as a
// percentage with one decimal, matching the result header display.
func (r *Result) ConfidencePercent() string {
	return fmt.Sprintf("%.1f%%", r.LanguageProbability*100)
}
