package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"scribed/internal/config"
	"scribed/internal/logging"
	"scribed/internal/services"
)

// HTTPDoer describes the HTTP client used by the gateway.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway downloads remote media into the staging directory.
type Gateway struct {
	allowedDomains map[string]struct{}
	allowAll       bool
	client         HTTPDoer
	logger         *slog.Logger
}

// NewGateway constructs a gateway from configuration. A nil logger falls
// back to a no-op logger.
func NewGateway(cfg *config.Config, logger *slog.Logger) *Gateway {
	allowed := make(map[string]struct{}, len(cfg.Fetch.AllowedDomains))
	allowAll := false
	for _, domain := range cfg.Fetch.AllowedDomains {
		if domain == "*" {
			allowAll = true
			continue
		}
		allowed[domain] = struct{}{}
	}
	return &Gateway{
		allowedDomains: allowed,
		allowAll:       allowAll,
		client: &http.Client{
			Timeout: time.Duration(cfg.Fetch.RequestTimeout) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "fetch"),
	}
}

// WithClient swaps the HTTP client, primarily for tests.
func (g *Gateway) WithClient(client HTTPDoer) *Gateway {
	g.client = client
	return g
}

// Fetch downloads rawURL into stagingDir and returns the staged path.
// The host is checked against the allow-list before any request is made.
// On any failure no file is left behind.
func (g *Gateway) Fetch(ctx context.Context, rawURL, stagingDir string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", services.Wrap(services.ErrInvalidURL, "fetch", "parse", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", services.Wrap(services.ErrInvalidURL, "fetch", "parse", "URL must include scheme and host", nil)
	}

	host := strings.ToLower(parsed.Hostname())
	if !g.hostAllowed(host) {
		return "", services.Wrap(services.ErrDomainNotAllowed, "fetch", "allow-list", host, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", services.Wrap(services.ErrFetchFailed, "fetch", "build request", parsed.String(), err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrFetchFailed, "fetch", "download", parsed.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrFetchFailed, "fetch", "download",
			fmt.Sprintf("remote returned %d", resp.StatusCode), nil)
	}

	filename := responseFilename(resp, parsed)
	target := filepath.Join(stagingDir, StagedName(filename))

	out, err := os.Create(target)
	if err != nil {
		return "", services.Wrap(services.ErrFetchFailed, "fetch", "stage", target, err)
	}

	written, copyErr := io.CopyBuffer(out, resp.Body, make([]byte, 64*1024))
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(target)
		if copyErr == nil {
			copyErr = closeErr
		}
		return "", services.Wrap(services.ErrFetchFailed, "fetch", "stream body", target, copyErr)
	}

	g.logger.Info("staged remote media",
		logging.String("url", parsed.String()),
		logging.String("path", target),
		logging.Int64("bytes", written))
	return target, nil
}

func (g *Gateway) hostAllowed(host string) bool {
	if g.allowAll {
		return true
	}
	_, ok := g.allowedDomains[host]
	return ok
}

// responseFilename picks a filename in priority order: the Content-Disposition
// header, the last URL path segment, then a name derived from the content type.
func responseFilename(resp *http.Response, parsed *url.URL) string {
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return name
			}
		}
	}

	if segment := path.Base(parsed.Path); segment != "" && segment != "/" && segment != "." {
		return segment
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if slash := strings.Index(mediaType, "/"); slash >= 0 && slash+1 < len(mediaType) {
			return "audio." + mediaType[slash+1:]
		}
	}
	return "audio.audio"
}
