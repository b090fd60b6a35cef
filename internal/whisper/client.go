package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"scribed/internal/services"
	"scribed/internal/transcript"
)

var commandContext = exec.CommandContext

// Options carries per-job engine parameters.
type Options struct {
	Model          string
	ModelDir       string
	Language       string
	Temperature    float64
	WordTimestamps bool
}

// Client defines transcription behaviour.
type Client interface {
	Transcribe(ctx context.Context, inputPath string, opts Options) (*transcript.Transcript, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the whisper command-line engine.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "whisper"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcribe runs the engine against inputPath and returns the parsed
// transcript. The engine writes its JSON result into a temp directory that
// is removed before returning.
func (c *CLI) Transcribe(ctx context.Context, inputPath string, opts Options) (*transcript.Transcript, error) {
	if inputPath == "" {
		return nil, errors.New("input path required")
	}

	outputDir, err := os.MkdirTemp("", "scribed-whisper-")
	if err != nil {
		return nil, fmt.Errorf("create engine output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	args := []string{
		inputPath,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--temperature", strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.ModelDir != "" {
		args = append(args, "--model_dir", opts.ModelDir)
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if opts.WordTimestamps {
		args = append(args, "--word_timestamps", "True")
	}

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classifyEngineError(err, stderr.String())
	}

	resultPath := filepath.Join(outputDir, sourceStem(inputPath)+".json")
	parsed, err := parseResult(resultPath)
	if err != nil {
		return nil, services.Wrap(services.ErrEngine, "whisper", "parse result", resultPath, err)
	}
	return parsed, nil
}

var oomMarkers = []string{
	"out of memory",
	"cannot allocate memory",
	"memoryerror",
	"killed",
}

func classifyEngineError(err error, stderr string) error {
	lowered := strings.ToLower(stderr)
	for _, marker := range oomMarkers {
		if strings.Contains(lowered, marker) {
			return services.Wrap(services.ErrResourceExhausted, "whisper", "transcribe", firstLine(stderr), err)
		}
	}
	return services.Wrap(services.ErrEngine, "whisper", "transcribe", firstLine(stderr), err)
}

func firstLine(output string) string {
	trimmed := strings.TrimSpace(output)
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

func sourceStem(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type resultWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type resultSegment struct {
	ID    int          `json:"id"`
	Start float64      `json:"start"`
	End   float64      `json:"end"`
	Text  string       `json:"text"`
	Words []resultWord `json:"words"`
}

type resultDocument struct {
	Text     string          `json:"text"`
	Segments []resultSegment `json:"segments"`
}

func parseResult(path string) (*transcript.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine output: %w", err)
	}

	var doc resultDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode engine output: %w", err)
	}

	result := &transcript.Transcript{Text: doc.Text}
	for _, seg := range doc.Segments {
		segment := transcript.Segment{
			ID:    seg.ID,
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
		for _, word := range seg.Words {
			segment.Words = append(segment.Words, transcript.Word{
				Word:  word.Word,
				Start: word.Start,
				End:   word.End,
			})
		}
		result.Segments = append(result.Segments, segment)
	}
	return result, nil
}

var _ Client = (*CLI)(nil)
