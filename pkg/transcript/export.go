package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format identifies a client-side export format.
type Format string

const (
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
	FormatJSON Format = "json"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatSRT:
		return FormatSRT, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q (must be txt, srt, or json)", s)
}

// Export renders the result in the requested format.
func Export(r *Result, format Format, now time.Time) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(ExportText(r, now)), nil
	case FormatSRT:
		return []byte(ExportSRT(r)), nil
	case FormatJSON:
		return ExportJSON(r)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// ExportText renders a transcript with a metadata header block followed by
// the full text.
func ExportText(r *Result, now time.Time) string {
	var b strings.Builder
	b.WriteString("TRANSCRIPT\n")
	fmt.Fprintf(&b, "Date: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Language: %s (%s)\n", r.LanguageName(), r.Language)
	fmt.Fprintf(&b, "Confidence: %s\n", r.ConfidencePercent())
	fmt.Fprintf(&b, "Processing time: %.2fs\n", r.ProcessingTime)
	fmt.Fprintf(&b, "Audio duration: %s\n\n", FormatClock(r.AudioDuration))
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")
	b.WriteString(r.FullText())
	b.WriteString("\n")
	return b.String()
}

// ExportSRT renders segments in SubRip format: sequential index,
// "HH:MM:SS,mmm --> HH:MM:SS,mmm" time range, text line, blank separator.
func ExportSRT(r *Result) string {
	blocks := make([]string, 0, len(r.Segments))
	for i, seg := range r.Segments {
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, FormatSRTTime(seg.Start), FormatSRTTime(seg.End), strings.TrimSpace(seg.Text)))
	}
	return strings.Join(blocks, "\n")
}

// ExportJSON renders the full result object, pretty-printed.
func ExportJSON(r *Result) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling transcript: %w", err)
	}
	return append(data, '\n'), nil
}

// FormatSRTTime formats seconds as an SRT timestamp (HH:MM:SS,mmm).
func FormatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatClock formats seconds for display: "m:ss", or "h:mm:ss" from one
// hour upward.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ExportFileName builds the default export file name, e.g.
// "transcript_2026-01-02T15-04-05.srt".
func ExportFileName(format Format, now time.Time) string {
	stamp := strings.ReplaceAll(now.Format("2006-01-02T15:04:05"), ":", "-")
	return fmt.Sprintf("transcript_%s.%s", stamp, format)
}
