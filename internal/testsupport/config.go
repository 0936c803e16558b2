package testsupport

import (
	"path/filepath"
	"testing"

	"vnforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Gemini.APIKey = "test"
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "projects")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Renpy.SDKPath = filepath.Join(base, "renpy-sdk")
	cfgVal.Preview.Port = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGeminiKey sets the Gemini API key on the test config.
func WithGeminiKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gemini.APIKey = key
	}
}

// WithFakeSDK installs a fake Ren'Py SDK in the config's SDK directory.
func WithFakeSDK(opts SDKOptions) ConfigOption {
	return func(b *configBuilder) {
		b.t.Helper()
		opts.Dir = b.cfg.Renpy.SDKPath
		NewFakeSDK(b.t, opts)
	}
}

// WithCharacterHeight overrides the sprite normalisation height.
func WithCharacterHeight(height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Images.CharacterHeight = height
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
