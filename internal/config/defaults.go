package config

const (
	defaultFTPPort               = 21
	defaultConnectTimeout        = 30
	defaultRemoteRoot            = "/seedbox-sync"
	defaultLocalRoot             = "~/downloads"
	defaultLogDir                = "~/.local/share/downspout/logs"
	defaultAPIBind               = "127.0.0.1:7790"
	defaultPollInterval          = 60
	defaultScanTimeout           = 300
	defaultScanDepth             = 20
	defaultMaxConcurrent         = 2
	defaultFreeSpaceMarginMiB    = 512
	defaultDeleteRetryInterval   = 30
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Port:           defaultFTPPort,
			ConnectTimeout: defaultConnectTimeout,
		},
		Paths: Paths{
			RemoteRoot: defaultRemoteRoot,
			LocalRoot:  defaultLocalRoot,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Sync: Sync{
			PollInterval:           defaultPollInterval,
			ScanTimeout:            defaultScanTimeout,
			ScanDepth:              defaultScanDepth,
			MaxConcurrentDownloads: defaultMaxConcurrent,
			FreeSpaceMarginMiB:     defaultFreeSpaceMarginMiB,
		},
		Delete: Delete{
			Enabled:       true,
			RetryInterval: defaultDeleteRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Downloads:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
