package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	if err := c.normalizeRenpy(); err != nil {
		return err
	}
	c.normalizeImages()
	c.normalizePreview()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	c.Gemini.ImageModel = strings.TrimSpace(c.Gemini.ImageModel)
	if c.Gemini.ImageModel == "" {
		c.Gemini.ImageModel = defaultGeminiModel
	}
	if c.Gemini.TimeoutSeconds == 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeoutSeconds
	}
}

func (c *Config) normalizeRenpy() error {
	c.Renpy.SDKPath = strings.TrimSpace(c.Renpy.SDKPath)
	if c.Renpy.SDKPath != "" {
		var err error
		if c.Renpy.SDKPath, err = expandPath(c.Renpy.SDKPath); err != nil {
			return fmt.Errorf("renpy.sdk_path: %w", err)
		}
	}
	c.Renpy.Target = strings.ToLower(strings.TrimSpace(c.Renpy.Target))
	if c.Renpy.Target == "" {
		c.Renpy.Target = defaultRenpyTarget
	}
	if c.Renpy.BuildTimeoutSeconds == 0 {
		c.Renpy.BuildTimeoutSeconds = defaultBuildTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeImages() {
	emotions := make([]string, 0, len(c.Images.Emotions))
	seen := make(map[string]struct{}, len(c.Images.Emotions))
	for _, emotion := range c.Images.Emotions {
		emotion = strings.ToLower(strings.TrimSpace(emotion))
		if emotion == "" {
			continue
		}
		if _, ok := seen[emotion]; ok {
			continue
		}
		seen[emotion] = struct{}{}
		emotions = append(emotions, emotion)
	}
	if len(emotions) == 0 {
		emotions = append(emotions, DefaultEmotions...)
	}
	c.Images.Emotions = emotions
	if c.Images.BackgroundMinCoverage == 0 {
		c.Images.BackgroundMinCoverage = defaultBackgroundMinCoverage
	}
}

func (c *Config) normalizePreview() {
	c.Preview.BindHost = strings.TrimSpace(c.Preview.BindHost)
	if c.Preview.BindHost == "" {
		c.Preview.BindHost = defaultPreviewBindHost
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
