package config

const (
	defaultWorkDir               = "~/.local/share/vidredact/work"
	defaultLogDir                = "~/.local/share/vidredact/logs"
	defaultAPIBind               = "0.0.0.0:8000"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultStorageEndpoint       = "s3.amazonaws.com"
	defaultStorageRegion         = "ap-northeast-2"
	defaultPresignTTLSeconds     = 3600
	defaultDetectorTimeout       = 30
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultFrameRate             = 30
	defaultCallbackTimeout       = 10
	defaultMosaicStrength        = 15
	defaultStaleArtifactHours    = 24
	defaultDetectorURL           = "http://127.0.0.1:9000/detect"
	envStorageAccessKey          = "VIDREDACT_S3_ACCESS_KEY"
	envStorageSecretKey          = "VIDREDACT_S3_SECRET_KEY"
	envCallbackBaseURL           = "VIDREDACT_CALLBACK_URL"
	defaultConfigRelativeHomeDir = "~/.config/vidredact/config.toml"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Endpoint:          defaultStorageEndpoint,
			Region:            defaultStorageRegion,
			UseSSL:            true,
			PresignTTLSeconds: defaultPresignTTLSeconds,
		},
		Detector: Detector{
			URL:            defaultDetectorURL,
			TimeoutSeconds: defaultDetectorTimeout,
		},
		Transcoder: Transcoder{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			DefaultFrameRate: defaultFrameRate,
		},
		Callbacks: Callbacks{
			RequestTimeout: defaultCallbackTimeout,
		},
		Workflow: Workflow{
			DefaultMosaicStrength: defaultMosaicStrength,
			StaleArtifactHours:    defaultStaleArtifactHours,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
