package mcpserver

import (
	"time"

	"vnforge/internal/build"
	"vnforge/internal/history"
	"vnforge/internal/preview"
	"vnforge/internal/project"
)

// ProjectInput names an existing project.
type ProjectInput struct {
	Project string `json:"project" jsonschema:"project name"`
}

// CreateProjectInput is the create_project payload.
type CreateProjectInput struct {
	Name     string `json:"name" jsonschema:"project name; sanitized to a Ren'Py identifier"`
	Template string `json:"template,omitempty" jsonschema:"project template (basic)"`
}

// ListProjectsInput is the (empty) list_projects payload.
type ListProjectsInput struct{}

// BackgroundInput is the generate_background payload.
type BackgroundInput struct {
	Project     string `json:"project" jsonschema:"project name"`
	Description string `json:"description" jsonschema:"scene to paint"`
	Style       string `json:"style,omitempty" jsonschema:"art style override"`
	Name        string `json:"name,omitempty" jsonschema:"image name; stored as images/bg_<name>.png"`
}

// CharacterInput is the generate_character payload.
type CharacterInput struct {
	Project     string   `json:"project" jsonschema:"project name"`
	Name        string   `json:"name" jsonschema:"character name"`
	Description string   `json:"description" jsonschema:"character appearance"`
	Emotions    []string `json:"emotions,omitempty" jsonschema:"emotion variants to draw (max 12)"`
	Pose        string   `json:"pose,omitempty" jsonschema:"pose shared by every variant"`
	Style       string   `json:"style,omitempty" jsonschema:"art style override"`
}

// ScriptInput is the generate_script payload.
type ScriptInput struct {
	Project string `json:"project" jsonschema:"project name"`
	Name    string `json:"name" jsonschema:"script name; stored as scripts/<name>.rpy"`
	Content string `json:"content" jsonschema:"full Ren'Py script source"`
}

// FileInput names one project file.
type FileInput struct {
	Project string `json:"project" jsonschema:"project name"`
	Path    string `json:"path" jsonschema:"file path relative to the project root, under images/ or scripts/"`
}

// EditFileInput is the edit_project_file payload.
type EditFileInput struct {
	Project string `json:"project" jsonschema:"project name"`
	Path    string `json:"path" jsonschema:"file path relative to the project root, under images/ or scripts/"`
	Content string `json:"content" jsonschema:"replacement file content"`
}

// BuildInput is the build_project payload.
type BuildInput struct {
	Project string `json:"project" jsonschema:"project name"`
	Target  string `json:"target,omitempty" jsonschema:"build target (web)"`
}

// HistoryInput is the build_history payload.
type HistoryInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name; empty lists every project"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum records (default 10)"`
}

// ProjectSummary describes one project.
type ProjectSummary struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Modified string `json:"modified"`
}

// ProjectsOutput lists projects.
type ProjectsOutput struct {
	Projects []ProjectSummary `json:"projects"`
}

// FileSummary describes one project file.
type FileSummary struct {
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// FilesOutput lists project files.
type FilesOutput struct {
	Project string        `json:"project"`
	Files   []FileSummary `json:"files"`
}

// BuildOutput reports one build.
type BuildOutput struct {
	BuildID         string  `json:"build_id"`
	Project         string  `json:"project"`
	Target          string  `json:"target"`
	Success         bool    `json:"success"`
	ExitCode        int     `json:"exit_code"`
	DurationSeconds float64 `json:"duration_seconds"`
	ArtifactPath    string  `json:"artifact_path,omitempty"`
	LogPath         string  `json:"log_path,omitempty"`
	Log             string  `json:"log"`
	Error           string  `json:"error,omitempty"`
}

// PreviewOutput reports a preview server.
type PreviewOutput struct {
	Project   string `json:"project"`
	State     string `json:"state"`
	URL       string `json:"url,omitempty"`
	Port      int    `json:"port,omitempty"`
	BuildID   string `json:"build_id,omitempty"`
	Stale     bool   `json:"stale"`
	StartedAt string `json:"started_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BuildRecord is one build history entry.
type BuildRecord struct {
	ID              string  `json:"id"`
	Project         string  `json:"project"`
	Target          string  `json:"target"`
	Status          string  `json:"status"`
	ExitCode        int     `json:"exit_code"`
	StartedAt       string  `json:"started_at"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
	LogPath         string  `json:"log_path,omitempty"`
}

// HistoryOutput lists build history.
type HistoryOutput struct {
	Builds []BuildRecord `json:"builds"`
}

func projectSummaries(infos []project.Info) []ProjectSummary {
	out := make([]ProjectSummary, 0, len(infos))
	for _, info := range infos {
		out = append(out, ProjectSummary{
			Name:     info.Name,
			Path:     info.Path,
			Modified: formatTime(info.Modified),
		})
	}
	return out
}

func fileSummaries(files []project.File) []FileSummary {
	out := make([]FileSummary, 0, len(files))
	for _, f := range files {
		out = append(out, FileSummary{
			Path:     f.Path,
			Type:     f.Type,
			Size:     f.Size,
			Modified: formatTime(f.Modified),
		})
	}
	return out
}

func buildOutput(res *build.Result) BuildOutput {
	if res == nil {
		return BuildOutput{}
	}
	return BuildOutput{
		BuildID:         res.BuildID,
		Project:         res.Project,
		Target:          res.Target,
		Success:         res.Success,
		ExitCode:        res.ExitCode,
		DurationSeconds: res.Duration.Seconds(),
		ArtifactPath:    res.ArtifactPath,
		LogPath:         res.LogPath,
		Log:             res.Log,
		Error:           res.Error,
	}
}

func previewOutput(h preview.Handle) PreviewOutput {
	return PreviewOutput{
		Project:   h.Project,
		State:     string(h.State),
		URL:       h.URL,
		Port:      h.Port,
		BuildID:   h.BuildID,
		Stale:     h.Stale,
		StartedAt: formatTime(h.StartedAt),
		Error:     h.Error,
	}
}

func buildRecords(records []history.Record) []BuildRecord {
	out := make([]BuildRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, BuildRecord{
			ID:              rec.ID,
			Project:         rec.Project,
			Target:          rec.Target,
			Status:          rec.Status,
			ExitCode:        rec.ExitCode,
			StartedAt:       formatTime(rec.StartedAt),
			DurationSeconds: rec.Duration().Seconds(),
			Error:           rec.ErrorMessage,
			LogPath:         rec.LogPath,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
