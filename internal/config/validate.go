package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var emotionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.ValidateCredentials(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateRenpy(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateCredentials reports the first missing startup requirement: the
// generation API key or the Ren'Py SDK path.
func (c *Config) ValidateCredentials() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/vnforge/config.toml"
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'vnforge config init')", defaultPath)
	}
	if c.Renpy.SDKPath == "" {
		return fmt.Errorf("renpy.sdk_path is required. Set RENPY_SDK_PATH env var or edit %s", defaultPath)
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if c.Gemini.TimeoutSeconds <= 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	if c.Renpy.BuildTimeoutSeconds <= 0 {
		return errors.New("renpy.build_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRenpy() error {
	if c.Renpy.Target != "web" {
		return fmt.Errorf("renpy.target %q is not supported (only \"web\")", c.Renpy.Target)
	}
	return nil
}

func (c *Config) validateImages() error {
	cfg := c.Images
	if cfg.CharacterHeight < 0 {
		return errors.New("images.character_height must be >= 0")
	}
	for _, emotion := range cfg.Emotions {
		if !emotionPattern.MatchString(emotion) {
			return fmt.Errorf("images.emotions: %q must be lowercase letters, digits, or underscores", emotion)
		}
	}
	if cfg.BackgroundTolerance < 0 || cfg.BackgroundTolerance > 255 {
		return errors.New("images.background_tolerance must be between 0 and 255")
	}
	if cfg.BackgroundFalloff < 0 || cfg.BackgroundFalloff > 255 {
		return errors.New("images.background_falloff must be between 0 and 255")
	}
	if cfg.BackgroundMinCoverage <= 0 || cfg.BackgroundMinCoverage > 1 {
		return errors.New("images.background_min_coverage must be in (0, 1]")
	}
	return nil
}

func (c *Config) validatePreview() error {
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return errors.New("preview.port must be between 0 and 65535")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
