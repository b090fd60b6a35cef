package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"scribed/internal/fetch"
	"scribed/internal/services"
	"scribed/internal/testsupport"
)

func TestFetchStagesRemoteFile(t *testing.T) {
	body := "fake audio payload"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	gateway := fetch.NewGateway(cfg, nil)

	staged, err := gateway.Fetch(context.Background(), server.URL+"/media/episode.mp3", cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Dir(staged) != cfg.Paths.StagingDir {
		t.Fatalf("staged outside staging dir: %s", staged)
	}
	if !strings.HasSuffix(staged, "_episode.mp3") {
		t.Fatalf("expected timestamp-prefixed URL filename, got %s", filepath.Base(staged))
	}
	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != body {
		t.Fatalf("staged content mismatch: %q", data)
	}
}

func TestFetchPrefersContentDispositionFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="meeting notes.wav"`)
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	gateway := fetch.NewGateway(cfg, nil)

	staged, err := gateway.Fetch(context.Background(), server.URL+"/download", cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasSuffix(staged, "_meeting_notes.wav") {
		t.Fatalf("expected sanitized disposition filename, got %s", filepath.Base(staged))
	}
}

func TestFetchFallsBackToContentTypeFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/flac")
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	gateway := fetch.NewGateway(cfg, nil)

	staged, err := gateway.Fetch(context.Background(), server.URL, cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasSuffix(staged, "_audio.flac") {
		t.Fatalf("expected content-type derived filename, got %s", filepath.Base(staged))
	}
}

func TestFetchRejectsURLWithoutSchemeOrHost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gateway := fetch.NewGateway(cfg, nil)

	for _, raw := range []string{"", "not-a-url", "/relative/path", "http://"} {
		_, err := gateway.Fetch(context.Background(), raw, cfg.Paths.StagingDir)
		if !errors.Is(err, services.ErrInvalidURL) {
			t.Fatalf("expected ErrInvalidURL for %q, got %v", raw, err)
		}
	}
}

func TestFetchDisallowedDomainNeverContactsServer(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAllowedDomains("media.example.com"))
	gateway := fetch.NewGateway(cfg, nil)

	_, err := gateway.Fetch(context.Background(), server.URL+"/clip.mp3", cfg.Paths.StagingDir)
	if !errors.Is(err, services.ErrDomainNotAllowed) {
		t.Fatalf("expected ErrDomainNotAllowed, got %v", err)
	}
	if requests.Load() != 0 {
		t.Fatalf("server was contacted %d times for a blocked host", requests.Load())
	}
}

func TestFetchAllowListExactMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}

	cfg := testsupport.NewConfig(t, testsupport.WithAllowedDomains(parsed.Hostname()))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	gateway := fetch.NewGateway(cfg, nil)

	if _, err := gateway.Fetch(context.Background(), server.URL+"/clip.mp3", cfg.Paths.StagingDir); err != nil {
		t.Fatalf("Fetch with allow-listed host: %v", err)
	}
}

func TestFetchNonSuccessStatusLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	gateway := fetch.NewGateway(cfg, nil)

	_, err := gateway.Fetch(context.Background(), server.URL+"/clip.mp3", cfg.Paths.StagingDir)
	if !errors.Is(err, services.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	assertStagingEmpty(t, cfg.Paths.StagingDir)
}

func TestFetchTruncatedBodyRemovesPartialFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		_, _ = w.Write([]byte("short"))
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		// Hijack and drop the connection so the body read fails mid-copy.
		if hijacker, ok := w.(http.Hijacker); ok {
			conn, _, err := hijacker.Hijack()
			if err == nil {
				conn.Close()
			}
		}
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	gateway := fetch.NewGateway(cfg, nil)

	_, err := gateway.Fetch(context.Background(), server.URL+"/clip.mp3", cfg.Paths.StagingDir)
	if !errors.Is(err, services.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	assertStagingEmpty(t, cfg.Paths.StagingDir)
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"clip.mp3", "clip.mp3"},
		{"../../etc/passwd", "passwd"},
		{"my file (final).wav", "my_file__final_.wav"},
		{"", "upload"},
		{"...", "upload"},
	}
	for _, tc := range cases {
		if got := fetch.SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func assertStagingEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty staging dir, found %d entries", len(entries))
	}
}
