package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"scribed/internal/fetch"
	"scribed/internal/logging"
	"scribed/internal/queue"
	"scribed/internal/services"
	"scribed/internal/transcript"
)

// submission holds the validated parameters of a transcription request.
type submission struct {
	inputPath      string
	sourceName     string
	model          string
	language       string
	temperature    float64
	responseFormat transcript.ResponseFormat
	wordTimestamps bool
	callbackURL    string
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())

	sub, err := s.parseSubmission(r)
	if err != nil {
		s.writeSubmissionError(w, err)
		return
	}

	job, err := s.store.NewJob(r.Context(), queue.NewJobParams{
		InputPath:      sub.inputPath,
		SourceName:     sub.sourceName,
		Model:          sub.model,
		Language:       sub.language,
		Temperature:    sub.temperature,
		ResponseFormat: sub.responseFormat,
		WordTimestamps: sub.wordTimestamps,
		CallbackURL:    sub.callbackURL,
	})
	if err != nil {
		// The staged input has no job to consume it.
		_ = os.Remove(sub.inputPath)
		s.writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	s.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.SourceName),
		logging.String("format", string(job.ResponseFormat)))
	s.writeJSON(w, http.StatusAccepted, map[string]string{"id": job.ID})
}

// parseSubmission validates the request and stages the input. On error no
// staged file remains and no job exists.
func (s *Server) parseSubmission(r *http.Request) (*submission, error) {
	sub := &submission{}

	contentType := r.Header.Get("Content-Type")
	var upload *multipart.FileHeader
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, services.Wrap(services.ErrValidation, "server", "parse form", "malformed or oversized request body", err)
		}
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			upload = files[0]
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, services.Wrap(services.ErrValidation, "server", "parse form", "malformed request body", err)
		}
	}

	if err := s.parseOptions(r, sub); err != nil {
		return nil, err
	}

	// Upload wins when both a file and a URL are supplied.
	if upload != nil {
		return sub, s.stageUpload(upload, sub)
	}

	rawURL := strings.TrimSpace(r.FormValue("url"))
	if rawURL == "" {
		return nil, services.Wrap(services.ErrValidation, "server", "validate", "either a file upload or a url is required", nil)
	}

	staged, err := s.gateway.Fetch(r.Context(), rawURL, s.cfg.Paths.StagingDir)
	if err != nil {
		return nil, err
	}
	sub.inputPath = staged
	sub.sourceName = stagedSourceName(staged)
	return sub, nil
}

func (s *Server) parseOptions(r *http.Request, sub *submission) error {
	sub.model = strings.TrimSpace(r.FormValue("model"))
	if sub.model == "" {
		sub.model = s.cfg.Whisper.Model
	}

	format := transcript.DefaultFormat
	if raw := strings.TrimSpace(r.FormValue("response_format")); raw != "" {
		parsed, ok := transcript.ParseResponseFormat(raw)
		if !ok {
			return services.Wrap(services.ErrValidation, "server", "validate",
				fmt.Sprintf("unknown response_format %q", raw), nil)
		}
		format = parsed
	}
	sub.responseFormat = format

	granularities, supplied, err := parseGranularities(r)
	if err != nil {
		return err
	}
	if supplied && format != transcript.FormatVerboseJSON {
		return services.Wrap(services.ErrValidation, "server", "validate",
			"timestamp_granularities requires response_format=verbose_json", nil)
	}
	sub.wordTimestamps = granularities["word"]

	if raw := strings.TrimSpace(r.FormValue("temperature")); raw != "" {
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return services.Wrap(services.ErrValidation, "server", "validate",
				fmt.Sprintf("temperature %q is not a number", raw), nil)
		}
		sub.temperature = temp
	}

	if raw := strings.TrimSpace(r.FormValue("language")); raw != "" {
		if _, err := language.Parse(raw); err != nil {
			return services.Wrap(services.ErrValidation, "server", "validate",
				fmt.Sprintf("unrecognized language %q", raw), nil)
		}
		sub.language = raw
	}

	if raw := strings.TrimSpace(r.FormValue("callback_url")); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return services.Wrap(services.ErrValidation, "server", "validate",
				"callback_url must be an absolute URL", nil)
		}
		sub.callbackURL = raw
	}

	return nil
}

// parseGranularities accepts repeated form values and comma separated lists.
func parseGranularities(r *http.Request) (map[string]bool, bool, error) {
	values := append([]string(nil), r.Form["timestamp_granularities"]...)
	values = append(values, r.Form["timestamp_granularities[]"]...)

	granularities := map[string]bool{}
	supplied := false
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			if part != "segment" && part != "word" {
				return nil, false, services.Wrap(services.ErrValidation, "server", "validate",
					fmt.Sprintf("unknown timestamp granularity %q", part), nil)
			}
			granularities[part] = true
			supplied = true
		}
	}
	if !supplied {
		granularities["segment"] = true
	}
	return granularities, supplied, nil
}

func (s *Server) stageUpload(upload *multipart.FileHeader, sub *submission) error {
	filename := strings.TrimSpace(upload.Filename)
	if filename == "" {
		return services.Wrap(services.ErrValidation, "server", "validate", "uploaded file has no filename", nil)
	}

	if err := allowedExtension(filename, s.cfg.AllowedExtensionSet()); err != nil {
		return err
	}

	source, err := upload.Open()
	if err != nil {
		return services.Wrap(services.ErrValidation, "server", "stage upload", filename, err)
	}
	defer source.Close()

	target := filepath.Join(s.cfg.Paths.StagingDir, fetch.StagedName(filename))
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}

	_, copyErr := io.Copy(out, source)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(target)
		if copyErr == nil {
			copyErr = closeErr
		}
		return fmt.Errorf("stage upload: %w", copyErr)
	}

	sub.inputPath = target
	sub.sourceName = fetch.SanitizeFilename(filename)
	return nil
}

// allowedExtension checks the substring after the last dot against the
// configured allow-set, case-insensitively. Filenames with no dot are
// rejected.
func allowedExtension(filename string, allowed map[string]struct{}) error {
	dot := strings.LastIndex(filename, ".")
	if dot < 0 || dot == len(filename)-1 {
		return services.Wrap(services.ErrValidation, "server", "validate",
			fmt.Sprintf("filename %q has no extension", filename), nil)
	}
	ext := strings.ToLower(filename[dot+1:])
	if _, ok := allowed[ext]; !ok {
		return services.Wrap(services.ErrValidation, "server", "validate",
			fmt.Sprintf("extension %q is not allowed", ext), nil)
	}
	return nil
}

// stagedSourceName strips the timestamp prefix added during staging.
func stagedSourceName(stagedPath string) string {
	base := filepath.Base(stagedPath)
	if idx := strings.Index(base, "_"); idx > 0 {
		if _, err := strconv.ParseInt(base[:idx], 10, 64); err == nil {
			return base[idx+1:]
		}
	}
	return base
}

func (s *Server) writeSubmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDomainNotAllowed):
		s.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrFetchFailed):
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidURL):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
