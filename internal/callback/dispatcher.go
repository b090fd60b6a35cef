// Package callback pushes finished transcription results to submitter
// supplied URLs. Delivery is at most once; callers decide whether a failed
// push matters.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"scribed/internal/config"
	"scribed/internal/logging"
)

// HTTPDoer describes the HTTP client used by the dispatcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher delivers result payloads as JSON POST requests.
type Dispatcher struct {
	client HTTPDoer
	logger *slog.Logger
}

// NewDispatcher constructs a dispatcher with the configured request timeout.
func NewDispatcher(cfg *config.Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.Callbacks.RequestTimeout) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "callback"),
	}
}

// WithClient swaps the HTTP client, primarily for tests.
func (d *Dispatcher) WithClient(client HTTPDoer) *Dispatcher {
	d.client = client
	return d
}

// Deliver POSTs the payload to url exactly once. A non-2xx response is an
// error. There are no retries.
func (d *Dispatcher) Deliver(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("callback endpoint returned %d", resp.StatusCode)
	}

	d.logger.Info("callback delivered", logging.String("url", url))
	return nil
}
