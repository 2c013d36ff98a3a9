package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeServer(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMappings(); err != nil {
		return err
	}
	c.normalizeSync()
	c.normalizeDelete()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeServer() error {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Server.User = strings.TrimSpace(c.Server.User)
	if c.Server.Password == "" {
		if value, ok := os.LookupEnv("DOWNSPOUT_FTP_PASSWORD"); ok {
			c.Server.Password = value
		}
	}
	if c.Server.Port <= 0 {
		c.Server.Port = defaultFTPPort
	}
	if c.Server.ConnectTimeout <= 0 {
		c.Server.ConnectTimeout = defaultConnectTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.RemoteRoot = NormalizeRemoteDir(c.Paths.RemoteRoot)
	if c.Paths.RemoteRoot == "" {
		c.Paths.RemoteRoot = NormalizeRemoteDir(defaultRemoteRoot)
	}
	if strings.TrimSpace(c.Paths.LocalRoot) == "" {
		c.Paths.LocalRoot = defaultLocalRoot
	}
	if c.Paths.LocalRoot, err = expandPath(c.Paths.LocalRoot); err != nil {
		return fmt.Errorf("paths.local_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeMappings() error {
	for i := range c.Mappings {
		c.Mappings[i].Remote = NormalizeRemoteDir(c.Mappings[i].Remote)
		local, err := expandPath(strings.TrimSpace(c.Mappings[i].Local))
		if err != nil {
			return fmt.Errorf("mappings[%d].local: %w", i, err)
		}
		c.Mappings[i].Local = local
	}
	return nil
}

func (c *Config) normalizeSync() {
	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = defaultPollInterval
	}
	if c.Sync.ScanTimeout <= 0 {
		c.Sync.ScanTimeout = defaultScanTimeout
	}
	if c.Sync.ScanDepth <= 0 {
		c.Sync.ScanDepth = defaultScanDepth
	}
	if c.Sync.MaxConcurrentDownloads <= 0 {
		c.Sync.MaxConcurrentDownloads = defaultMaxConcurrent
	}
	if c.Sync.FreeSpaceMarginMiB < 0 {
		c.Sync.FreeSpaceMarginMiB = defaultFreeSpaceMarginMiB
	}
}

func (c *Config) normalizeDelete() {
	if c.Delete.RetryInterval <= 0 {
		c.Delete.RetryInterval = defaultDeleteRetryInterval
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// NormalizeRemoteDir slash-normalizes a remote directory path: leading slash,
// trailing slash, single separators. Empty input stays empty.
func NormalizeRemoteDir(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/") + "/"
}
