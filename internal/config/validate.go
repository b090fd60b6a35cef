package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateUploads(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateUploads() error {
	if len(c.Uploads.AllowedExtensions) == 0 {
		return errors.New("uploads.allowed_extensions must list at least one extension")
	}
	for _, ext := range c.Uploads.AllowedExtensions {
		if strings.ContainsAny(ext, "./\\") {
			return fmt.Errorf("uploads.allowed_extensions entry %q must be a bare extension", ext)
		}
	}
	if c.Uploads.MaxUploadMiB <= 0 {
		return errors.New("uploads.max_upload_mib must be positive")
	}
	if c.Uploads.MinFreeSpaceGiB < 0 {
		return errors.New("uploads.min_free_space_gib must not be negative")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if len(c.Fetch.AllowedDomains) == 0 {
		return errors.New("fetch.allowed_domains must list at least one host (or \"*\")")
	}
	for _, domain := range c.Fetch.AllowedDomains {
		if domain == "*" {
			continue
		}
		if strings.ContainsAny(domain, "/ ") {
			return fmt.Errorf("fetch.allowed_domains entry %q must be a bare host", domain)
		}
	}
	if c.Fetch.RequestTimeout <= 0 {
		return errors.New("fetch.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateWhisper() error {
	if strings.TrimSpace(c.Whisper.Binary) == "" {
		return errors.New("whisper.binary must be set")
	}
	if strings.TrimSpace(c.Whisper.Model) == "" {
		return errors.New("whisper.model must be set")
	}
	if c.Whisper.Timeout <= 0 {
		return errors.New("whisper.timeout must be positive")
	}
	if c.Whisper.EngineSlots <= 0 {
		return errors.New("whisper.engine_slots must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	return nil
}
