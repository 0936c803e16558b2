package studio

import (
	"context"

	"vnforge/internal/build"
	"vnforge/internal/history"
	"vnforge/internal/logging"
	"vnforge/internal/preview"
)

// BuildProject compiles the project. Compile failures return the result
// carrying the verbatim log together with the error.
func (s *Studio) BuildProject(ctx context.Context, name, target string) (*build.Result, error) {
	ctx, _ = s.begin(ctx, "build_project", name)
	if target == "" {
		target = s.cfg.Renpy.Target
	}
	return s.builds.Build(ctx, name, target)
}

// BuildStatus reports the project's build state.
func (s *Studio) BuildStatus(name string) build.Status {
	return s.builds.Status(name)
}

// BuildHistory lists recorded builds, newest first. An empty name lists all
// projects.
func (s *Studio) BuildHistory(ctx context.Context, name string, limit int) ([]history.Record, error) {
	return s.builds.History(ctx, name, limit)
}

// StartWebPreview serves the latest build of the project.
func (s *Studio) StartWebPreview(ctx context.Context, name string) (*preview.Handle, error) {
	ctx, logger := s.begin(ctx, "start_web_preview", name)
	handle, err := s.previews.Start(ctx, name)
	if err != nil {
		return nil, err
	}
	logger.Debug("preview ready", logging.String("url", handle.URL))
	return handle, nil
}

// StopWebPreview stops the project's preview server and returns its final
// state.
func (s *Studio) StopWebPreview(_ context.Context, name string) (preview.Handle, error) {
	if err := s.previews.Stop(name); err != nil {
		return s.previews.Status(name), err
	}
	return s.previews.Status(name), nil
}

// PreviewStatus reports the project's preview state.
func (s *Studio) PreviewStatus(name string) preview.Handle {
	return s.previews.Status(name)
}

// Previews lists every known preview server.
func (s *Studio) Previews() []preview.Handle {
	return s.previews.List()
}
