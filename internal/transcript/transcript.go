package transcript

// Word is a single word with its time bounds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a time-bounded span of transcript text.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Transcript is the engine's segmented output. Segments are ordered by
// non-decreasing start time; the formatter assumes this and never re-sorts.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Duration returns the end time of the last segment, or 0 when empty.
func (t *Transcript) Duration() float64 {
	if t == nil || len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// HasWordData reports whether any segment carries word-level entries.
func (t *Transcript) HasWordData() bool {
	if t == nil {
		return false
	}
	for _, seg := range t.Segments {
		if len(seg.Words) > 0 {
			return true
		}
	}
	return false
}
