package testsupport

import (
	"path/filepath"
	"testing"

	"downspout/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The FTP endpoint points at an unroutable local port so accidental dials
// fail fast. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 1
	cfg.Server.User = "tester"
	cfg.Server.Password = "secret"
	cfg.Paths.LocalRoot = filepath.Join(base, "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMappings sets the remote-to-local mappings on the test config.
func WithMappings(mappings ...config.Mapping) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Mappings = mappings
	}
}

// WithAPIToken sets the bearer token the API requires.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}
