package config

import (
	"fmt"
	"os"
	"strings"
)

// envLookup resolves an environment override; see secretsLookup.
type envLookup func(key string) (string, bool)

func (c *Config) normalize(lookup envLookup) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage(lookup)
	c.normalizeCollaborators(lookup)
	c.normalizeTranscoder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeStorage(lookup envLookup) {
	if c.Storage.AccessKey == "" {
		if value, ok := lookup(envStorageAccessKey); ok {
			c.Storage.AccessKey = value
		}
	}
	if c.Storage.SecretKey == "" {
		if value, ok := lookup(envStorageSecretKey); ok {
			c.Storage.SecretKey = value
		}
	}
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Endpoint = strings.TrimPrefix(c.Storage.Endpoint, "https://")
	c.Storage.Endpoint = strings.TrimPrefix(c.Storage.Endpoint, "http://")
	c.Storage.Endpoint = strings.TrimRight(c.Storage.Endpoint, "/")
	if c.Storage.Endpoint == "" {
		c.Storage.Endpoint = defaultStorageEndpoint
	}
	if c.Storage.PresignTTLSeconds <= 0 {
		c.Storage.PresignTTLSeconds = defaultPresignTTLSeconds
	}
}

func (c *Config) normalizeCollaborators(lookup envLookup) {
	c.Detector.URL = strings.TrimSpace(c.Detector.URL)
	if c.Detector.TimeoutSeconds <= 0 {
		c.Detector.TimeoutSeconds = defaultDetectorTimeout
	}
	if c.Callbacks.BaseURL == "" {
		if value, ok := lookup(envCallbackBaseURL); ok {
			c.Callbacks.BaseURL = value
		}
	}
	c.Callbacks.BaseURL = strings.TrimRight(strings.TrimSpace(c.Callbacks.BaseURL), "/")
	if c.Callbacks.RequestTimeout <= 0 {
		c.Callbacks.RequestTimeout = defaultCallbackTimeout
	}
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.FFmpegBinary = strings.TrimSpace(c.Transcoder.FFmpegBinary)
	if c.Transcoder.FFmpegBinary == "" {
		c.Transcoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcoder.FFprobeBinary = strings.TrimSpace(c.Transcoder.FFprobeBinary)
	if c.Transcoder.FFprobeBinary == "" {
		c.Transcoder.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Transcoder.DefaultFrameRate <= 0 {
		c.Transcoder.DefaultFrameRate = defaultFrameRate
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
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
