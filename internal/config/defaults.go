package config

const (
	defaultStagingDir             = "~/.local/share/scribed/staging"
	defaultLogDir                 = "~/.local/share/scribed/logs"
	defaultAPIBind                = "127.0.0.1:8757"
	defaultMaxUploadMiB           = 512
	defaultMinFreeSpaceGiB        = 1
	defaultFetchRequestTimeout    = 300
	defaultWhisperBinary          = "whisper"
	defaultWhisperModel           = "small"
	defaultWhisperModelDir        = "~/.local/share/scribed/models"
	defaultWhisperTimeout         = 3600
	defaultEngineSlots            = 1
	defaultCallbackRequestTimeout = 10
	defaultQueuePollInterval      = 2
	defaultErrorRetryInterval     = 5
	defaultHeartbeatInterval      = 15
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Uploads: Uploads{
			AllowedExtensions: []string{"mp4", "mp3", "wav", "flac"},
			MaxUploadMiB:      defaultMaxUploadMiB,
			MinFreeSpaceGiB:   defaultMinFreeSpaceGiB,
		},
		Fetch: Fetch{
			AllowedDomains: []string{"*"},
			RequestTimeout: defaultFetchRequestTimeout,
		},
		Whisper: Whisper{
			Binary:      defaultWhisperBinary,
			Model:       defaultWhisperModel,
			ModelDir:    defaultWhisperModelDir,
			Timeout:     defaultWhisperTimeout,
			EngineSlots: defaultEngineSlots,
		},
		Callbacks: Callbacks{
			RequestTimeout: defaultCallbackRequestTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
