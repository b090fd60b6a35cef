package server

import (
	"net/http"
	"strings"
	"time"

	"scribed/internal/queue"
)

// JobView is the wire shape of a job in listing responses.
type JobView struct {
	ID             string `json:"id"`
	SourceName     string `json:"source_name"`
	Model          string `json:"model"`
	Language       string `json:"language,omitempty"`
	ResponseFormat string `json:"response_format"`
	Status         string `json:"status"`
	ErrorKind      string `json:"error_kind,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// JobListResponse wraps the job listing payload.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// StatusResponse reports queue health for the CLI.
type StatusResponse struct {
	Running bool                `json:"running"`
	Queue   queue.HealthSummary `json:"queue"`
}

func jobView(job *queue.Job) JobView {
	return JobView{
		ID:             job.ID,
		SourceName:     job.SourceName,
		Model:          job.Model,
		Language:       job.Language,
		ResponseFormat: string(job.ResponseFormat),
		Status:         string(job.Status),
		ErrorKind:      job.ErrorKind,
		ErrorMessage:   job.ErrorMessage,
		CreatedAt:      job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/result/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	result, err := s.store.Poll(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := queue.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+trimmed)
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, jobView(job))
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: views})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{Running: true, Queue: health})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
