package queue

import (
	"encoding/json"
	"strings"
	"time"

	"scribed/internal/transcript"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job represents one transcription request persisted in SQLite.
type Job struct {
	ID             string
	InputPath      string
	SourceName     string
	Model          string
	Language       string
	Temperature    float64
	ResponseFormat transcript.ResponseFormat
	WordTimestamps bool
	CallbackURL    string
	Status         Status
	ResultJSON     string
	ErrorKind      string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastHeartbeat  *time.Time
}

// SourceStem returns the staged input's original filename without extension.
func (j *Job) SourceStem() string {
	base := strings.TrimSpace(j.SourceName)
	if dot := strings.LastIndex(base, "."); dot > 0 {
		base = base[:dot]
	}
	return base
}

// SetCompleted records the formatted result and marks the job terminal.
func (j *Job) SetCompleted(resultJSON string) {
	j.Status = StatusCompleted
	j.ResultJSON = resultJSON
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.LastHeartbeat = nil
}

// SetFailed marks the job terminal with a classified error.
func (j *Job) SetFailed(kind, message string) {
	j.Status = StatusFailed
	j.ErrorKind = kind
	j.ErrorMessage = message
	j.LastHeartbeat = nil
}

// PollResult is the polling contract exposed to clients. Value stays null
// until the job is ready; unknown identifiers report not-ready rather than
// an error.
type PollResult struct {
	Ready      bool            `json:"ready"`
	Successful bool            `json:"successful"`
	Value      json.RawMessage `json:"value"`
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
