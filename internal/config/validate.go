package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateDetector(); err != nil {
		return err
	}
	if err := c.validateCallbacks(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	if c.Storage.Bucket == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigRelativeHomeDir
		}
		return fmt.Errorf("storage.bucket is required. Edit %s (create with 'vidredact config init')", defaultPath)
	}
	if c.Storage.PresignTTLSeconds > 7*24*3600 {
		return errors.New("storage.presign_ttl_seconds must not exceed 7 days")
	}
	return nil
}

func (c *Config) validateDetector() error {
	if c.Detector.URL == "" {
		return errors.New("detector.url must be set")
	}
	if err := validateHTTPURL("detector.url", c.Detector.URL); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCallbacks() error {
	if c.Callbacks.BaseURL == "" {
		return nil
	}
	return validateHTTPURL("callbacks.base_url", c.Callbacks.BaseURL)
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.DefaultMosaicStrength <= 0 {
		return errors.New("workflow.default_mosaic_strength must be positive")
	}
	if c.Workflow.StaleArtifactHours < 0 {
		return errors.New("workflow.stale_artifact_hours must not be negative")
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

func validateHTTPURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
