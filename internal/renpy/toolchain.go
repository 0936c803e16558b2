package renpy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"vnforge/internal/logging"
	"vnforge/internal/services"
)

// headlessEnv is applied on top of the caller's environment unless a value is
// already set there.
var headlessEnv = [][2]string{
	{"SDL_VIDEODRIVER", "dummy"},
	{"SDL_AUDIODRIVER", "dummy"},
	{"RENPY_FORCE_SOFTWARE", "1"},
	{"RENPY_DISABLE_UPDATE", "1"},
	{"RENPY_DISABLE_JOYSTICK", "1"},
}

// Option configures the toolchain.
type Option func(*Toolchain)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(t *Toolchain) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// WithLogger attaches a logger used for post-processing diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Toolchain) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Toolchain wraps a Ren'Py SDK installation.
type Toolchain struct {
	sdk    string
	goos   string
	exec   Executor
	logger *slog.Logger
}

// New constructs a toolchain rooted at sdkPath. The SDK layout is not
// inspected until Check or Distribute runs.
func New(sdkPath string, opts ...Option) (*Toolchain, error) {
	sdkPath = strings.TrimSpace(sdkPath)
	if sdkPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "renpy", "init",
			"Ren'Py SDK path required (set renpy.sdk_path or RENPY_SDK_PATH)", nil)
	}
	abs, err := filepath.Abs(sdkPath)
	if err != nil {
		return nil, fmt.Errorf("resolve sdk path: %w", err)
	}
	t := &Toolchain{
		sdk:    abs,
		goos:   runtime.GOOS,
		exec:   commandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// SDKPath returns the absolute SDK directory.
func (t *Toolchain) SDKPath() string { return t.sdk }

// WebRuntime returns the SDK directory holding the browser runtime.
func (t *Toolchain) WebRuntime() string { return filepath.Join(t.sdk, "web") }

// Launcher returns the SDK launcher project passed to the distribute command.
func (t *Toolchain) Launcher() string { return filepath.Join(t.sdk, "launcher") }

// Executable returns the first launcher executable present in the SDK.
func (t *Toolchain) Executable() (string, error) {
	candidates := []string{
		filepath.Join(t.sdk, "renpy.sh"),
		filepath.Join(t.sdk, "renpy.exe"),
		filepath.Join(t.sdk, "renpy"),
	}
	if t.goos == "darwin" {
		candidates = append(candidates, filepath.Join(t.sdk, "Ren'Py.app", "Contents", "MacOS", "python"))
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrConfiguration, "renpy", "locate executable",
		fmt.Sprintf("no renpy.sh, renpy.exe or renpy found in %s", t.sdk), nil)
}

// Check verifies the SDK can produce web builds.
func (t *Toolchain) Check() error {
	info, err := os.Stat(t.sdk)
	if err != nil || !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "renpy", "check sdk",
			fmt.Sprintf("Ren'Py SDK directory %s does not exist", t.sdk), nil)
	}
	if _, err := t.Executable(); err != nil {
		return err
	}
	if info, err := os.Stat(t.WebRuntime()); err != nil || !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "renpy", "check sdk",
			"web support missing: open the Ren'Py launcher and download web support, or place the 'web' directory inside the SDK", nil)
	}
	return nil
}

// Command returns the distribute invocation that packages projectDir for the
// web into destDir.
func (t *Toolchain) Command(projectDir, destDir string) (Command, error) {
	binary, err := t.Executable()
	if err != nil {
		return Command{}, err
	}
	return Command{
		Binary: binary,
		Args: []string{
			t.Launcher(),
			"distribute",
			"--package", "web",
			"--destination", destDir,
			projectDir,
		},
		Dir: t.sdk,
		Env: HeadlessEnv(os.Environ()),
	}, nil
}

// Distribute runs the compiler against projectDir, streaming its combined
// output to onLine. A non-zero exit is returned as an error; use ExitCode to
// read the status.
func (t *Toolchain) Distribute(ctx context.Context, projectDir, destDir string, onLine func(string)) error {
	if err := t.Check(); err != nil {
		return err
	}
	cmd, err := t.Command(projectDir, destDir)
	if err != nil {
		return err
	}
	t.logger.Debug("running ren'py distribute",
		logging.String("binary", cmd.Binary),
		logging.String("project_dir", projectDir),
		logging.String("destination", destDir),
	)
	return t.exec.Run(ctx, cmd, onLine)
}

// HeadlessEnv returns base with the SDL and Ren'Py variables needed for a
// display-less build added where base does not already define them.
func HeadlessEnv(base []string) []string {
	env := append([]string(nil), base...)
	present := make(map[string]struct{}, len(env))
	for _, kv := range env {
		if key, _, ok := strings.Cut(kv, "="); ok {
			present[key] = struct{}{}
		}
	}
	for _, pair := range headlessEnv {
		if _, ok := present[pair[0]]; ok {
			continue
		}
		env = append(env, pair[0]+"="+pair[1])
	}
	return env
}
