package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vnforge/internal/config"
	"vnforge/internal/services"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "GEMINI_IMAGE_MODEL", "RENPY_SDK_PATH", "VNFORGE_WORKSPACE",
		"VNFORGE_LOG_LEVEL", "VNFORGE_LOG_FORMAT", "VNFORGE_PREVIEW_PORT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultsWithEnvCredentials(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("RENPY_SDK_PATH", "~/sdk")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists to be false when no config file is present")
	}
	if want := filepath.Join(home, ".config", "vnforge", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Renpy.SDKPath != filepath.Join(home, "sdk") {
		t.Fatalf("expected expanded sdk path, got %q", cfg.Renpy.SDKPath)
	}
	if cfg.Paths.WorkspaceDir != filepath.Join(home, ".local", "share", "vnforge", "projects") {
		t.Fatalf("unexpected workspace dir %q", cfg.Paths.WorkspaceDir)
	}
	if cfg.Gemini.ImageModel != "gemini-2.5-flash-image" {
		t.Fatalf("unexpected model %q", cfg.Gemini.ImageModel)
	}
	if len(cfg.Images.Emotions) != 5 || cfg.Images.Emotions[0] != "neutral" {
		t.Fatalf("unexpected default emotions %v", cfg.Images.Emotions)
	}
	if cfg.Images.CharacterHeight != 750 {
		t.Fatalf("unexpected character height %d", cfg.Images.CharacterHeight)
	}
	if cfg.Preview.BindHost != "127.0.0.1" || cfg.Preview.Port != 0 {
		t.Fatalf("unexpected preview binding %+v", cfg.Preview)
	}
}

func TestLoadMissingCredentialsIsConfigurationError(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when API key is missing")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected hint about GEMINI_API_KEY, got %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "key")
	_, _, _, err = config.Load("")
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "RENPY_SDK_PATH") {
		t.Fatalf("expected sdk path configuration error, got %v", err)
	}
}

func TestLoadUnvalidatedToleratesMissingCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.LoadUnvalidated("")
	if err != nil {
		t.Fatalf("LoadUnvalidated returned error: %v", err)
	}
	if err := cfg.ValidateCredentials(); err == nil {
		t.Fatal("expected credential validation to fail")
	}
}

func TestLoadCustomPathAndEnvPrecedence(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	configPath := filepath.Join(tempDir, "vnforge.toml")

	type payload struct {
		Paths struct {
			WorkspaceDir string `toml:"workspace_dir"`
		} `toml:"paths"`
		Gemini struct {
			APIKey string `toml:"api_key"`
		} `toml:"gemini"`
		Renpy struct {
			SDKPath string `toml:"sdk_path"`
		} `toml:"renpy"`
		Images struct {
			Emotions []string `toml:"emotions"`
		} `toml:"images"`
		Preview struct {
			Port int `toml:"port"`
		} `toml:"preview"`
	}
	custom := payload{}
	custom.Paths.WorkspaceDir = filepath.Join(tempDir, "ws")
	custom.Gemini.APIKey = "file-key"
	custom.Renpy.SDKPath = filepath.Join(tempDir, "sdk")
	custom.Images.Emotions = []string{" Happy", "sad", "happy", ""}
	custom.Preview.Port = 8042
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("VNFORGE_PREVIEW_PORT", "9000")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Fatalf("expected env to override file key, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Preview.Port != 9000 {
		t.Fatalf("expected env preview port, got %d", cfg.Preview.Port)
	}
	if cfg.Paths.WorkspaceDir != filepath.Join(tempDir, "ws") {
		t.Fatalf("expected workspace from file, got %q", cfg.Paths.WorkspaceDir)
	}
	if got := strings.Join(cfg.Images.Emotions, ","); got != "happy,sad" {
		t.Fatalf("expected normalized emotions, got %q", got)
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[gemini\napi_key = "), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, _, err := config.Load(path); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_gemini_api_key_here") {
		t.Fatalf("sample config missing placeholder key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Renpy.Target != "web" {
		t.Fatalf("expected web target in sample, got %q", cfg.Renpy.Target)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Gemini.APIKey = "key"
		cfg.Renpy.SDKPath = "/opt/renpy"
		return cfg
	}
	if cfg := base(); cfg.Validate() != nil {
		t.Fatalf("expected base config to validate: %v", cfg.Validate())
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"target", func(c *config.Config) { c.Renpy.Target = "android" }, "renpy.target"},
		{"tolerance", func(c *config.Config) { c.Images.BackgroundTolerance = 300 }, "background_tolerance"},
		{"coverage", func(c *config.Config) { c.Images.BackgroundMinCoverage = 1.5 }, "background_min_coverage"},
		{"height", func(c *config.Config) { c.Images.CharacterHeight = -1 }, "character_height"},
		{"emotion", func(c *config.Config) { c.Images.Emotions = []string{"very happy"} }, "images.emotions"},
		{"port", func(c *config.Config) { c.Preview.Port = 70000 }, "preview.port"},
		{"timeout", func(c *config.Config) { c.Gemini.TimeoutSeconds = -5 }, "gemini.timeout_seconds"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = filepath.Join(root, "ws")
	cfg.Paths.StateDir = filepath.Join(root, "state")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkspaceDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
	if cfg.HistoryPath() != filepath.Join(root, "state", "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}
}
