package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateMappings(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Host == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/downspout/config.toml"
		}
		return fmt.Errorf("server.host is required. Edit %s (create with 'downspout config init')", defaultPath)
	}
	if c.Server.User == "" {
		return errors.New("server.user must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	return nil
}

func (c *Config) validateMappings() error {
	for i, mapping := range c.Mappings {
		if mapping.Remote == "" {
			return fmt.Errorf("mappings[%d].remote must be set", i)
		}
		if strings.TrimSpace(mapping.Local) == "" {
			return fmt.Errorf("mappings[%d].local must be set", i)
		}
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.ScanDepth > 128 {
		return fmt.Errorf("sync.scan_depth %d is unreasonably deep (max 128)", c.Sync.ScanDepth)
	}
	if c.Sync.MaxConcurrentDownloads > 16 {
		return fmt.Errorf("sync.max_concurrent_downloads %d exceeds the connection budget (max 16)", c.Sync.MaxConcurrentDownloads)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
