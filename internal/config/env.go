package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
)

// environment lists the variables that override file settings. Empty values
// leave the file (or default) value in place.
type environment struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_IMAGE_MODEL"`
	SDKPath      string `env:"RENPY_SDK_PATH"`
	Workspace    string `env:"VNFORGE_WORKSPACE"`
	LogLevel     string `env:"VNFORGE_LOG_LEVEL"`
	LogFormat    string `env:"VNFORGE_LOG_FORMAT"`
	PreviewPort  *int   `env:"VNFORGE_PREVIEW_PORT"`
}

func (c *Config) applyEnv() error {
	var vars environment
	if err := env.Parse(&vars); err != nil {
		return err
	}
	override := func(dst *string, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
	}
	override(&c.Gemini.APIKey, vars.GeminiAPIKey)
	override(&c.Gemini.ImageModel, vars.GeminiModel)
	override(&c.Renpy.SDKPath, vars.SDKPath)
	override(&c.Paths.WorkspaceDir, vars.Workspace)
	override(&c.Logging.Level, vars.LogLevel)
	override(&c.Logging.Format, vars.LogFormat)
	if vars.PreviewPort != nil {
		c.Preview.Port = *vars.PreviewPort
	}
	return nil
}
