package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vnforge/internal/history"
	"vnforge/internal/logging"
	"vnforge/internal/project"
	"vnforge/internal/renpy"
	"vnforge/internal/services"
	"vnforge/internal/textutil"
)

// DefaultTarget is the only target the compiler packages today.
const DefaultTarget = "web"

const lockFileName = ".lock"

// Status is the lifecycle state of a project's builds.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Compiler produces a web distribution for a staged project tree.
// *renpy.Toolchain satisfies it.
type Compiler interface {
	Distribute(ctx context.Context, projectDir, destDir string, onLine func(string)) error
	AssembleWeb(distDir, outDir, title string) error
}

// Recorder persists build records. *history.Store satisfies it.
type Recorder interface {
	Start(ctx context.Context, rec history.Record) error
	Finish(ctx context.Context, id string, out history.Outcome, finishedAt time.Time) error
	List(ctx context.Context, project string, limit int) ([]history.Record, error)
}

// Result describes one finished build.
type Result struct {
	BuildID      string        `json:"build_id"`
	Project      string        `json:"project"`
	Target       string        `json:"target"`
	Success      bool          `json:"success"`
	ExitCode     int           `json:"exit_code"`
	Log          string        `json:"log"`
	LogPath      string        `json:"log_path"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

// Option configures the manager.
type Option func(*Manager)

// WithRecorder persists every build to rec.
func WithRecorder(rec Recorder) Option {
	return func(m *Manager) {
		if rec != nil {
			m.recorder = rec
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTimeout bounds each compiler run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// Manager runs builds and tracks their state per project.
type Manager struct {
	store    *project.Store
	compiler Compiler
	recorder Recorder
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running map[string]string
	last    map[string]Status
}

// NewManager constructs a manager building projects from store.
func NewManager(store *project.Store, compiler Compiler, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		compiler: compiler,
		logger:   logging.NewNop(),
		now:      time.Now,
		running:  make(map[string]string),
		last:     make(map[string]Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "build")
	return m
}

// Status reports the state of the project's most recent build without side
// effects.
func (m *Manager) Status(name string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.running[name]; ok {
		return StatusRunning
	}
	if status, ok := m.last[name]; ok {
		return status
	}
	return StatusIdle
}

// History lists recorded builds for the project, newest first.
func (m *Manager) History(ctx context.Context, name string, limit int) ([]history.Record, error) {
	if m.recorder == nil {
		return nil, nil
	}
	return m.recorder.List(ctx, name, limit)
}

// Build compiles the named project for target. On compiler failure both a
// Result carrying the verbatim log and an ErrCompile error are returned.
func (m *Manager) Build(ctx context.Context, name, target string) (*Result, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		target = DefaultTarget
	}
	if target != DefaultTarget {
		return nil, services.Wrap(services.ErrValidation, "build", "target",
			fmt.Sprintf("unsupported build target %q (only %q is implemented)", target, DefaultTarget), nil)
	}
	p, err := m.store.Open(name)
	if err != nil {
		return nil, err
	}

	buildID := uuid.NewString()
	release, err := m.acquire(p, buildID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = services.WithBuildID(services.WithProject(ctx, name), buildID)
	logger := logging.WithContext(ctx, m.logger)
	started := m.now()

	result, runErr := m.run(ctx, logger, p, target, buildID, started)
	result.Duration = m.now().Sub(started)

	status := StatusSucceeded
	if runErr != nil {
		status = StatusFailed
		result.Error = runErr.Error()
	}
	m.mu.Lock()
	m.last[name] = status
	m.mu.Unlock()

	m.finishRecord(ctx, logger, result, status)
	if runErr != nil {
		logger.Warn("build failed",
			logging.String(logging.FieldEventType, "build_failed"),
			logging.String(logging.FieldErrorKind, services.Kind(runErr)),
			logging.Int("exit_code", result.ExitCode),
			logging.String("log_path", result.LogPath),
			logging.Error(runErr),
		)
		return result, runErr
	}
	logger.Info("build succeeded",
		logging.String(logging.FieldEventType, "build_succeeded"),
		logging.String("artifact", result.ArtifactPath),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

func (m *Manager) run(ctx context.Context, logger *slog.Logger, p *project.Project, target, buildID string, started time.Time) (*Result, error) {
	result := &Result{BuildID: buildID, Project: p.Name(), Target: target}

	logFile, logPath, err := openLogFile(p, target, buildID, started)
	if err != nil {
		return result, err
	}
	defer logFile.Close()
	result.LogPath = logPath

	if m.recorder != nil {
		rec := history.Record{ID: buildID, Project: p.Name(), Target: target, LogPath: logPath, StartedAt: started}
		if err := m.recorder.Start(ctx, rec); err != nil {
			logger.Warn("build history unavailable",
				logging.String(logging.FieldEventType, "history_write_failed"),
				logging.Error(err),
			)
		}
	}

	cleanStaging(p.Dir(project.BuildDir), logger)
	staging, err := os.MkdirTemp(p.Dir(project.BuildDir), stagingPrefix)
	if err != nil {
		return result, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	projectDir, err := stageProject(p, staging)
	if err != nil {
		return result, err
	}
	distDir := filepath.Join(staging, "dist")

	logger.Info("build started",
		logging.String(logging.FieldEventType, "build_started"),
		logging.String("target", target),
		logging.String("log_path", logPath),
	)

	runCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	var buf strings.Builder
	sink := io.MultiWriter(&buf, logFile)
	runErr := m.compiler.Distribute(runCtx, projectDir, distDir, func(line string) {
		_, _ = io.WriteString(sink, line+"\n")
		logger.Debug("renpy", logging.String("line", line))
	})
	result.Log = buf.String()
	result.ExitCode = renpy.ExitCode(runErr)
	if runErr != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return result, services.Wrap(services.ErrCompile, "build", "distribute", "build cancelled", ctxErr)
		}
		if errors.Is(runErr, services.ErrConfiguration) {
			return result, runErr
		}
		return result, services.Wrap(services.ErrCompile, "build", "distribute",
			fmt.Sprintf("compiler exited with status %d", result.ExitCode), runErr)
	}

	artifactName := ArtifactDirName(target, buildID)
	artifactDir := filepath.Join(p.Dir(project.BuildDir), artifactName)
	if err := m.compiler.AssembleWeb(distDir, artifactDir, textutil.DisplayName(p.Name())); err != nil {
		_ = os.RemoveAll(artifactDir)
		return result, services.Wrap(services.ErrCompile, "build", "assemble web player", "", err)
	}
	meta := Metadata{BuildID: buildID, Project: p.Name(), Target: target, CreatedAt: started.UTC()}
	if err := writeMetadata(artifactDir, meta); err != nil {
		_ = os.RemoveAll(artifactDir)
		return result, fmt.Errorf("write artifact metadata: %w", err)
	}
	if err := publish(p, target, artifactName); err != nil {
		return result, fmt.Errorf("publish artifact: %w", err)
	}
	if err := pruneArtifacts(p, target, artifactName); err != nil {
		logging.WarnWithContext(logger, "old artifacts not pruned", "artifact_prune_failed",
			logging.String("artifact", artifactName),
			logging.Error(err),
		)
	}
	result.Success = true
	result.ArtifactPath = p.ArtifactLink(target)
	return result, nil
}

// acquire claims the per-project build slot in this process and across
// processes sharing the workspace.
func (m *Manager) acquire(p *project.Project, buildID string) (func(), error) {
	name := p.Name()
	m.mu.Lock()
	if current, ok := m.running[name]; ok {
		m.mu.Unlock()
		return nil, services.Wrap(services.ErrBuildInProgress, "build", "acquire",
			fmt.Sprintf("project %q is already building (build %s)", name, current), nil)
	}
	m.running[name] = buildID
	m.mu.Unlock()

	unregister := func() {
		m.mu.Lock()
		delete(m.running, name)
		m.mu.Unlock()
	}

	buildDir := p.Dir(project.BuildDir)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		unregister()
		return nil, fmt.Errorf("create build dir: %w", err)
	}
	lock := flock.New(filepath.Join(buildDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		unregister()
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !ok {
		unregister()
		return nil, services.Wrap(services.ErrBuildInProgress, "build", "acquire",
			fmt.Sprintf("project %q is being built by another process", name), nil)
	}
	return func() {
		_ = lock.Unlock()
		unregister()
	}, nil
}

func (m *Manager) finishRecord(ctx context.Context, logger *slog.Logger, result *Result, status Status) {
	if m.recorder == nil {
		return
	}
	out := history.Outcome{
		Status:       string(status),
		ExitCode:     result.ExitCode,
		ErrorMessage: result.Error,
		ArtifactPath: result.ArtifactPath,
	}
	// The caller's context may already be cancelled; the record still lands.
	if err := m.recorder.Finish(context.WithoutCancel(ctx), result.BuildID, out, m.now()); err != nil {
		logger.Warn("build history unavailable",
			logging.String(logging.FieldEventType, "history_write_failed"),
			logging.Error(err),
		)
	}
}

func openLogFile(p *project.Project, target, buildID string, started time.Time) (*os.File, string, error) {
	dir := p.Dir(project.LogsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create logs dir: %w", err)
	}
	stamp := started.UTC().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("build-%s-%s.log", target, stamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		path = filepath.Join(dir, fmt.Sprintf("build-%s-%s-%s.log", target, stamp, buildID[:8]))
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open build log: %w", err)
	}
	return f, path, nil
}
