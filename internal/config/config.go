package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Uploads contains configuration for direct file submissions.
type Uploads struct {
	AllowedExtensions []string `toml:"allowed_extensions"`
	MaxUploadMiB      int      `toml:"max_upload_mib"`
	MinFreeSpaceGiB   int      `toml:"min_free_space_gib"`
}

// Fetch contains configuration for the remote fetch gateway.
type Fetch struct {
	AllowedDomains []string `toml:"allowed_domains"`
	RequestTimeout int      `toml:"request_timeout"`
}

// Whisper contains configuration for the external transcription engine.
type Whisper struct {
	Binary      string `toml:"binary"`
	Model       string `toml:"model"`
	ModelDir    string `toml:"model_dir"`
	Timeout     int    `toml:"timeout"`
	EngineSlots int    `toml:"engine_slots"`
}

// Callbacks contains configuration for result push delivery.
type Callbacks struct {
	RequestTimeout int `toml:"request_timeout"`
}

// Workflow contains configuration for worker timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scribed.
//
// Sections by subsystem:
//   - Paths: staging/log directories and API bind address
//   - Uploads: accepted input extensions and size limits
//   - Fetch: remote URL allow-list and download timeout
//   - Whisper: engine binary, default model, and slot count
//   - Callbacks: push delivery timeout
//   - Workflow: worker polling intervals and heartbeats
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Uploads   Uploads   `toml:"uploads"`
	Fetch     Fetch     `toml:"fetch"`
	Whisper   Whisper   `toml:"whisper"`
	Callbacks Callbacks `toml:"callbacks"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribed/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. When no file exists
// at the resolved path the defaults are used.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribed.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.StagingDir, &c.Paths.LogDir, &c.Whisper.ModelDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	normalized := make([]string, 0, len(c.Uploads.AllowedExtensions))
	for _, ext := range c.Uploads.AllowedExtensions {
		trimmed := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	c.Uploads.AllowedExtensions = normalized

	domains := make([]string, 0, len(c.Fetch.AllowedDomains))
	for _, domain := range c.Fetch.AllowedDomains {
		trimmed := strings.ToLower(strings.TrimSpace(domain))
		if trimmed == "" {
			continue
		}
		domains = append(domains, trimmed)
	}
	c.Fetch.AllowedDomains = domains

	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Whisper.ModelDir) != "" {
		if err := os.MkdirAll(c.Whisper.ModelDir, 0o755); err != nil {
			return fmt.Errorf("create model directory %q: %w", c.Whisper.ModelDir, err)
		}
	}
	return nil
}

// AllowedExtensionSet returns the allowed upload extensions as a lookup set.
func (c *Config) AllowedExtensionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Uploads.AllowedExtensions))
	for _, ext := range c.Uploads.AllowedExtensions {
		set[ext] = struct{}{}
	}
	return set
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Uploads.MaxUploadMiB) << 20
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
