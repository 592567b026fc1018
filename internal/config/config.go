package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Storage contains configuration for the S3-compatible blob store.
type Storage struct {
	Endpoint          string `toml:"endpoint"`
	AccessKey         string `toml:"access_key"`
	SecretKey         string `toml:"secret_key"`
	Bucket            string `toml:"bucket"`
	Region            string `toml:"region"`
	UseSSL            bool   `toml:"use_ssl"`
	PresignTTLSeconds int    `toml:"presign_ttl_seconds"`
}

// Detector contains configuration for the object detection inference service.
type Detector struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcoder contains configuration for the ffmpeg toolchain.
type Transcoder struct {
	FFmpegBinary     string `toml:"ffmpeg_binary"`
	FFprobeBinary    string `toml:"ffprobe_binary"`
	DefaultFrameRate int    `toml:"default_frame_rate"`
}

// Callbacks contains configuration for the upstream service that is told when
// work orders start and finish and that sends completion email.
type Callbacks struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Workflow contains configuration for job processing defaults.
type Workflow struct {
	DefaultMosaicStrength int `toml:"default_mosaic_strength"`
	StaleArtifactHours    int `toml:"stale_artifact_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for vidredact.
//
// Configuration sections by subsystem:
//   - Paths: work/log directories and API bind address
//   - Storage: S3-compatible bucket for redacted artifacts
//   - Detector: inference service endpoint
//   - Transcoder: ffmpeg/ffprobe binaries and frame rate fallback
//   - Callbacks: upstream pre-flight, completion, and email endpoints
//   - Workflow: job defaults and artifact sweep age
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Storage    Storage    `toml:"storage"`
	Detector   Detector   `toml:"detector"`
	Transcoder Transcoder `toml:"transcoder"`
	Callbacks  Callbacks  `toml:"callbacks"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativeHomeDir)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

	lookup, err := secretsLookup(resolvedPath)
	if err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(lookup); err != nil {
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

	projectPath, err := filepath.Abs("vidredact.toml")
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

// DownloadsDir holds uploaded source videos awaiting processing.
func (c *Config) DownloadsDir() string {
	return filepath.Join(c.Paths.WorkDir, "downloads")
}

// ProcessedDir holds intermediate streams and detection dumps.
func (c *Config) ProcessedDir() string {
	return filepath.Join(c.Paths.WorkDir, "processed_videos")
}

// CompleteDir holds final remuxed artifacts until they are uploaded.
func (c *Config) CompleteDir() string {
	return filepath.Join(c.Paths.WorkDir, "complete")
}

// JobLogDir holds one log file per work order.
func (c *Config) JobLogDir() string {
	return filepath.Join(c.Paths.LogDir, "jobs")
}

// DatabasePath returns the location of the work order database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.WorkDir, "work_orders.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "vidredact.lock")
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.WorkDir,
		c.Paths.LogDir,
		c.DownloadsDir(),
		c.ProcessedDir(),
		c.CompleteDir(),
		c.JobLogDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for decoding and encoding.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Transcoder.FFmpegBinary); v != "" {
		return v
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for stream inspection.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Transcoder.FFprobeBinary); v != "" {
		return v
	}
	return defaultFFprobeBinary
}

// PresignTTL returns how long download links stay valid.
func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.Storage.PresignTTLSeconds) * time.Second
}

// CallbackTimeout returns the per-request timeout for upstream callbacks.
func (c *Config) CallbackTimeout() time.Duration {
	return time.Duration(c.Callbacks.RequestTimeout) * time.Second
}

// DetectorTimeout returns the per-frame timeout for detector calls.
func (c *Config) DetectorTimeout() time.Duration {
	return time.Duration(c.Detector.TimeoutSeconds) * time.Second
}

// StaleArtifactAge returns the age after which orphaned work files are swept.
func (c *Config) StaleArtifactAge() time.Duration {
	return time.Duration(c.Workflow.StaleArtifactHours) * time.Hour
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
