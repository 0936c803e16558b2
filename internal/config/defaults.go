package config

const (
	defaultWorkspaceDir          = "~/.local/share/vnforge/projects"
	defaultStateDir              = "~/.local/share/vnforge"
	defaultLogDir                = "~/.local/share/vnforge/logs"
	defaultGeminiModel           = "gemini-2.5-flash-image"
	defaultGeminiTimeoutSeconds  = 120
	defaultRenpyTarget           = "web"
	defaultBuildTimeoutSeconds   = 600
	defaultCharacterHeight       = 750
	defaultBackgroundTolerance   = 32
	defaultBackgroundFalloff     = 24
	defaultBackgroundMinCoverage = 0.40
	defaultPreviewBindHost       = "127.0.0.1"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// DefaultEmotions is the ordered emotion list used when a character request
// does not name its own.
var DefaultEmotions = []string{"neutral", "happy", "sad", "surprised", "angry"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Gemini: Gemini{
			ImageModel:     defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Renpy: Renpy{
			Target:              defaultRenpyTarget,
			BuildTimeoutSeconds: defaultBuildTimeoutSeconds,
		},
		Images: Images{
			CharacterHeight:       defaultCharacterHeight,
			Emotions:              append([]string(nil), DefaultEmotions...),
			BackgroundTolerance:   defaultBackgroundTolerance,
			BackgroundFalloff:     defaultBackgroundFalloff,
			BackgroundMinCoverage: defaultBackgroundMinCoverage,
		},
		Preview: Preview{
			BindHost: defaultPreviewBindHost,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
