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

// Server describes the remote FTP endpoint that holds ready-to-transfer files.
type Server struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	ConnectTimeout int    `toml:"connect_timeout"`
}

// Paths contains local directory and bind address configuration.
type Paths struct {
	RemoteRoot string `toml:"remote_root"`
	LocalRoot  string `toml:"local_root"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Mapping translates a remote directory prefix to a local destination prefix.
// Mappings are evaluated in configuration order; the first match wins.
type Mapping struct {
	Remote string `toml:"remote"`
	Local  string `toml:"local"`
}

// Sync contains scan and download scheduling knobs.
type Sync struct {
	PollInterval           int  `toml:"poll_interval"`
	ScanTimeout            int  `toml:"scan_timeout"`
	ScanDepth              int  `toml:"scan_depth"`
	MaxConcurrentDownloads int  `toml:"max_concurrent_downloads"`
	IncludePlainFiles      bool `toml:"include_plain_files"`
	FreeSpaceMarginMiB     int  `toml:"free_space_margin_mib"`
}

// Delete controls deferred remote deletion of landed files.
type Delete struct {
	Enabled       bool `toml:"enabled"`
	RetryInterval int  `toml:"retry_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Downloads      bool   `toml:"downloads"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Downspout.
//
// Configuration sections by subsystem:
//   - Server: FTP endpoint credentials and timeouts
//   - Paths: remote sync root, local fallback root, log dir, API bind
//   - Mappings: ordered remote-prefix to local-prefix translations
//   - Sync: poll interval, scan timeout/depth, download concurrency
//   - Delete: remote deletion enablement and retry cadence
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Server        Server        `toml:"server"`
	Paths         Paths         `toml:"paths"`
	Mappings      []Mapping     `toml:"mappings"`
	Sync          Sync          `toml:"sync"`
	Delete        Delete        `toml:"delete"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/downspout/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all local path fields expanded and all remote paths slash-normalized.
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

	projectPath, err := filepath.Abs("downspout.toml")
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

// EnsureDirectories creates required local directories for daemon operation.
// The default local root is created on a best-effort basis so the daemon can
// start while external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if strings.TrimSpace(c.Paths.LocalRoot) != "" {
		_ = os.MkdirAll(c.Paths.LocalRoot, 0o755)
	}
	return nil
}

// ServerAddr returns the host:port dial address for the configured FTP server.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
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
