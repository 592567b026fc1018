package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidredact/internal/config"
)

func writeConfig(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsPathsAndAppliesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VIDREDACT_S3_ACCESS_KEY", "env-access")
	t.Setenv("VIDREDACT_S3_SECRET_KEY", "env-secret")

	path := writeConfig(t, tempHome, `
[storage]
bucket = "results"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q (exists=%v)", path, resolved, exists)
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "vidredact", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.DownloadsDir() != filepath.Join(wantWork, "downloads") {
		t.Fatalf("unexpected downloads dir: %q", cfg.DownloadsDir())
	}
	if cfg.Storage.AccessKey != "env-access" || cfg.Storage.SecretKey != "env-secret" {
		t.Fatalf("expected storage credentials from env, got %q/%q", cfg.Storage.AccessKey, cfg.Storage.SecretKey)
	}
	if cfg.PresignTTL() != time.Hour {
		t.Fatalf("expected one hour presign ttl, got %s", cfg.PresignTTL())
	}
	if cfg.Transcoder.DefaultFrameRate != 30 {
		t.Fatalf("expected default frame rate 30, got %d", cfg.Transcoder.DefaultFrameRate)
	}
	if cfg.Workflow.DefaultMosaicStrength != 15 {
		t.Fatalf("expected default mosaic strength 15, got %d", cfg.Workflow.DefaultMosaicStrength)
	}
	if cfg.Callbacks.BaseURL != "" {
		t.Fatalf("expected callbacks disabled by default, got %q", cfg.Callbacks.BaseURL)
	}
}

func TestLoadMissingFileRequiresBucket(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	_, _, _, err := config.Load(filepath.Join(tempHome, "absent.toml"))
	if err == nil {
		t.Fatal("expected validation error without storage.bucket")
	}
	if !strings.Contains(err.Error(), "storage.bucket") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeStripsEndpointScheme(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := writeConfig(t, tempHome, `
[storage]
bucket = "results"
endpoint = "https://minio.local:9000/"

[callbacks]
base_url = "http://users.internal:8001/"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Endpoint != "minio.local:9000" {
		t.Fatalf("unexpected endpoint: %q", cfg.Storage.Endpoint)
	}
	if cfg.Callbacks.BaseURL != "http://users.internal:8001" {
		t.Fatalf("unexpected callback url: %q", cfg.Callbacks.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"detector scheme", func(c *config.Config) { c.Detector.URL = "ftp://host/detect" }, "detector.url"},
		{"callback host", func(c *config.Config) { c.Callbacks.BaseURL = "http://" }, "callbacks.base_url"},
		{"mosaic strength", func(c *config.Config) { c.Workflow.DefaultMosaicStrength = 0 }, "default_mosaic_strength"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Bucket = "results"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}
	if decoded.Storage.Bucket == "" {
		t.Fatal("expected sample to name a bucket")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load sample: %v", err)
	}
}

func TestEnsureDirectoriesCreatesWorkTree(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.DownloadsDir(), cfg.ProcessedDir(), cfg.CompleteDir(), cfg.JobLogDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, prev) })
		}
		_ = os.Unsetenv(key)
	}
}

func TestLoadReadsSecretsFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	unsetEnv(t, "VIDREDACT_S3_ACCESS_KEY", "VIDREDACT_S3_SECRET_KEY", "VIDREDACT_CALLBACK_URL")
	t.Setenv("VIDREDACT_S3_SECRET_KEY", "from-process")

	path := writeConfig(t, dir, `
[storage]
bucket = "results"
`)
	dotenv := "VIDREDACT_S3_ACCESS_KEY=dot-access\nVIDREDACT_S3_SECRET_KEY=dot-secret\nVIDREDACT_CALLBACK_URL=http://upstream.local:8080/\n"
	if err := os.WriteFile(filepath.Join(dir, config.DotEnvFile), []byte(dotenv), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.AccessKey != "dot-access" {
		t.Fatalf("expected access key from .env, got %q", cfg.Storage.AccessKey)
	}
	if cfg.Storage.SecretKey != "from-process" {
		t.Fatalf("expected process env to win over .env, got %q", cfg.Storage.SecretKey)
	}
	if cfg.Callbacks.BaseURL != "http://upstream.local:8080" {
		t.Fatalf("expected callback url from .env, got %q", cfg.Callbacks.BaseURL)
	}
	if _, ok := os.LookupEnv("VIDREDACT_S3_ACCESS_KEY"); ok {
		t.Fatal(".env values must not leak into the process environment")
	}
}
