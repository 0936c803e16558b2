package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"vnforge/internal/bgremove"
	"vnforge/internal/build"
	"vnforge/internal/config"
	"vnforge/internal/generation"
	"vnforge/internal/history"
	"vnforge/internal/logging"
	"vnforge/internal/preview"
	"vnforge/internal/project"
	"vnforge/internal/renpy"
	"vnforge/internal/services"
)

// Option configures a Studio.
type Option func(*options)

type options struct {
	generator generation.Generator
	compiler  build.Compiler
	recorder  build.Recorder
	logger    *slog.Logger
}

// WithGenerator replaces the Gemini-backed generator.
func WithGenerator(gen generation.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// WithCompiler replaces the Ren'Py toolchain.
func WithCompiler(c build.Compiler) Option {
	return func(o *options) { o.compiler = c }
}

// WithRecorder replaces the SQLite build history.
func WithRecorder(rec build.Recorder) Option {
	return func(o *options) { o.recorder = rec }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Studio owns the long-lived managers for one workspace.
type Studio struct {
	cfg       *config.Config
	projects  *project.Store
	generator generation.Generator
	remover   *bgremove.Remover
	builds    *build.Manager
	previews  *preview.Manager
	history   *history.Store
	logger    *slog.Logger
}

// New wires a Studio from configuration. Without WithGenerator a Gemini
// client is created when an API key is configured; generation calls fail with
// ErrConfiguration otherwise.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Studio, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "studio", "init", "configuration required", nil)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Studio{
		cfg:      cfg,
		projects: project.NewStore(cfg.Paths.WorkspaceDir),
		remover: bgremove.New(bgremove.Options{
			Tolerance:   cfg.Images.BackgroundTolerance,
			Falloff:     cfg.Images.BackgroundFalloff,
			MinCoverage: cfg.Images.BackgroundMinCoverage,
		}),
		logger: logging.NewComponentLogger(logger, "studio"),
	}

	s.generator = o.generator
	if s.generator == nil && cfg.Gemini.APIKey != "" {
		client, err := generation.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.ImageModel,
			generation.WithTimeout(cfg.GenerationTimeout()),
			generation.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		s.generator = client
	}

	compiler := o.compiler
	if compiler == nil {
		tc, err := renpy.New(cfg.Renpy.SDKPath, renpy.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		compiler = tc
	}

	recorder := o.recorder
	if recorder == nil {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open build history: %w", err)
		}
		s.history = store
		recorder = store
	}

	s.builds = build.NewManager(s.projects, compiler,
		build.WithRecorder(recorder),
		build.WithLogger(logger),
		build.WithTimeout(cfg.BuildTimeout()),
	)
	s.previews = preview.NewManager(s.projects,
		preview.WithBind(cfg.Preview.BindHost, cfg.Preview.Port),
		preview.WithTarget(cfg.Renpy.Target),
		preview.WithLogger(logger),
	)
	return s, nil
}

// Projects exposes the underlying project store.
func (s *Studio) Projects() *project.Store { return s.projects }

// Close stops every preview server and releases the history database.
func (s *Studio) Close() error {
	var errs []error
	if err := s.previews.StopAll(); err != nil {
		errs = append(errs, err)
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// begin tags ctx with a request id and project and returns a logger carrying
// both.
func (s *Studio) begin(ctx context.Context, operation, projectName string) (context.Context, *slog.Logger) {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	ctx = services.WithProject(ctx, projectName)
	logger := logging.WithContext(ctx, s.logger).With(logging.String("operation", operation))
	return ctx, logger
}
