package transcript

import (
	"fmt"
	"strings"
)

// ResponseFormat enumerates the supported output encodings.
type ResponseFormat string

const (
	FormatText        ResponseFormat = "text"
	FormatJSON        ResponseFormat = "json"
	FormatVerboseJSON ResponseFormat = "verbose_json"
	FormatSRT         ResponseFormat = "srt"
	FormatVTT         ResponseFormat = "vtt"
)

// DefaultFormat is used when a submission does not name a format.
const DefaultFormat = FormatJSON

// ParseResponseFormat converts a string into a known ResponseFormat.
func ParseResponseFormat(value string) (ResponseFormat, bool) {
	normalized := ResponseFormat(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case FormatText, FormatJSON, FormatVerboseJSON, FormatSRT, FormatVTT:
		return normalized, true
	}
	return "", false
}

// IsFileEncoded reports whether the format is delivered as a downloadable
// text document rather than inline JSON.
func (f ResponseFormat) IsFileEncoded() bool {
	switch f {
	case FormatText, FormatSRT, FormatVTT:
		return true
	default:
		return false
	}
}

// TextBody is the wire shape of file-encoded formats (text, srt, vtt).
type TextBody struct {
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

// JSONBody is the wire shape of the plain json format.
type JSONBody struct {
	Text string `json:"text"`
}

// SegmentEntry is one segment in a verbose_json result.
type SegmentEntry struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// VerboseBody is the wire shape of the verbose_json format. Exactly one of
// Words and Segments is present, never both. Segments uses omitzero so a
// segment-mode body with no segments still serializes the key as [].
type VerboseBody struct {
	Task     string         `json:"task"`
	Duration float64        `json:"duration"`
	Text     string         `json:"text"`
	Words    []Word         `json:"words,omitempty"`
	Segments []SegmentEntry `json:"segments,omitzero"`
}

// Document is a formatted transcript ready for storage or delivery.
// ContentType and Filename are set only for file-encoded formats;
// structured formats are returned inline.
type Document struct {
	Format      ResponseFormat
	Body        any
	ContentType string
	Filename    string
}

// CallbackPayload returns the shape pushed to a callback endpoint: the
// text content plus format and filename for file-encoded formats, the full
// body for structured ones.
func (d Document) CallbackPayload() any {
	if !d.Format.IsFileEncoded() {
		return d.Body
	}
	body, ok := d.Body.(TextBody)
	if !ok {
		return d.Body
	}
	return struct {
		Text     string `json:"text"`
		Format   string `json:"format"`
		Filename string `json:"filename"`
	}{Text: body.Text, Format: string(d.Format), Filename: d.Filename}
}

// Format renders a transcript into the requested encoding. stem is the
// staged input's filename without extension and feeds the suggested
// filename of file-encoded formats. wordTimestamps records whether the
// submission asked for word-level granularity.
func Format(t *Transcript, format ResponseFormat, stem string, wordTimestamps bool) (Document, error) {
	if t == nil {
		t = &Transcript{}
	}
	switch format {
	case FormatText:
		body := TextBody{
			Text:        strings.TrimSpace(t.Text),
			ContentType: "text/plain",
			Filename:    stem + ".txt",
		}
		return Document{Format: format, Body: body, ContentType: body.ContentType, Filename: body.Filename}, nil
	case FormatJSON:
		return Document{Format: format, Body: JSONBody{Text: strings.TrimSpace(t.Text)}}, nil
	case FormatVerboseJSON:
		return Document{Format: format, Body: verboseBody(t, wordTimestamps)}, nil
	case FormatSRT:
		body := TextBody{
			Text:        formatSRT(t.Segments),
			ContentType: "text/srt; charset=utf-8",
			Filename:    stem + ".srt",
		}
		return Document{Format: format, Body: body, ContentType: body.ContentType, Filename: body.Filename}, nil
	case FormatVTT:
		body := TextBody{
			Text:        formatVTT(t.Segments),
			ContentType: "text/vtt; charset=utf-8",
			Filename:    stem + ".vtt",
		}
		return Document{Format: format, Body: body, ContentType: body.ContentType, Filename: body.Filename}, nil
	default:
		return Document{}, fmt.Errorf("unknown response format %q", format)
	}
}

// verboseBody emits word entries when word-level granularity was requested
// and the transcript actually carries word data; segment entries otherwise.
func verboseBody(t *Transcript, wordTimestamps bool) VerboseBody {
	body := VerboseBody{
		Task:     "transcribe",
		Duration: t.Duration(),
		Text:     strings.TrimSpace(t.Text),
	}

	if wordTimestamps && t.HasWordData() {
		words := make([]Word, 0, len(t.Segments)*8)
		for _, seg := range t.Segments {
			for _, word := range seg.Words {
				words = append(words, Word{
					Word:  strings.TrimSpace(word.Word),
					Start: word.Start,
					End:   word.End,
				})
			}
		}
		body.Words = words
		return body
	}

	entries := make([]SegmentEntry, 0, len(t.Segments))
	for i, seg := range t.Segments {
		entries = append(entries, SegmentEntry{
			ID:    i,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	body.Segments = entries
	return body
}

func formatSRT(segments []Segment) string {
	cues := make([]string, 0, len(segments))
	for i, seg := range segments {
		cues = append(cues, fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, srtTimecode(seg.Start), srtTimecode(seg.End), strings.TrimSpace(seg.Text)))
	}
	return strings.Join(cues, "\n")
}

func formatVTT(segments []Segment) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, "WEBVTT\n")
	for _, seg := range segments {
		parts = append(parts, fmt.Sprintf("%s --> %s\n%s\n",
			vttTimecode(seg.Start), vttTimecode(seg.End), strings.TrimSpace(seg.Text)))
	}
	return strings.Join(parts, "\n")
}
