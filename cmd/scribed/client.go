package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scribed/internal/config"
	"scribed/internal/server"
)

// apiClient talks to a running daemon's HTTP API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(cfg *config.Config) *apiClient {
	return &apiClient{
		baseURL: "http://" + strings.TrimSpace(cfg.Paths.APIBind),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) getJSON(path string, query url.Values, target any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) listJobs(statuses []string) ([]server.JobView, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", status)
	}
	var listing server.JobListResponse
	if err := c.getJSON("/api/jobs", query, &listing); err != nil {
		return nil, err
	}
	return listing.Jobs, nil
}

func (c *apiClient) status() (server.StatusResponse, error) {
	var status server.StatusResponse
	err := c.getJSON("/api/status", nil, &status)
	return status, err
}
