package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"vnforge/internal/logging"
	"vnforge/internal/project"
	"vnforge/internal/services"
	"vnforge/internal/textutil"
)

const previewLines = 15

// ProjectResult reports a created project.
type ProjectResult struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Template string `json:"template"`
}

// ScriptRequest stores a generated Ren'Py script.
type ScriptRequest struct {
	Project string `json:"project"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ScriptResult reports a stored script.
type ScriptResult struct {
	Project     string `json:"project"`
	ScriptName  string `json:"script_name"`
	ScriptPath  string `json:"script_path"`
	Label       string `json:"label,omitempty"`
	MainUpdated bool   `json:"main_updated"`
	Preview     string `json:"preview"`
	Message     string `json:"message"`
}

// FileContent is the payload of read and edit operations.
type FileContent struct {
	Project string `json:"project"`
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Size    int    `json:"size"`
	Lines   int    `json:"lines"`
}

// CreateProject lays out a new project from template ("basic" when empty).
func (s *Studio) CreateProject(ctx context.Context, name, template string) (*ProjectResult, error) {
	_, logger := s.begin(ctx, "create_project", name)
	if strings.TrimSpace(template) == "" {
		template = project.DefaultTemplate
	}
	p, err := s.projects.Create(name, template)
	if err != nil {
		return nil, err
	}
	logger.Info("project created",
		logging.String(logging.FieldEventType, "project_created"),
		logging.String("template", template),
		logging.String("path", p.Root()),
	)
	return &ProjectResult{Name: p.Name(), Path: p.Root(), Template: template}, nil
}

// ListProjects returns every project in the workspace.
func (s *Studio) ListProjects(context.Context) ([]project.Info, error) {
	return s.projects.List()
}

// GenerateScript stores content as scripts/<name>.rpy. When the main script
// is still the template placeholder it is rewritten to call the first label
// found in content.
func (s *Studio) GenerateScript(ctx context.Context, req ScriptRequest) (*ScriptResult, error) {
	_, logger := s.begin(ctx, "generate_script", req.Project)
	p, err := s.projects.Open(req.Project)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, services.Wrap(services.ErrValidation, "studio", "generate script", "script content is empty", nil)
	}
	name := textutil.SanitizeIdentifier(req.Name, "scene")
	if name+".rpy" == project.MainScript {
		return nil, services.Wrap(services.ErrValidation, "studio", "generate script",
			"use edit_project_file to change the main script", nil)
	}
	file := name + ".rpy"
	if _, err := p.WriteScript(file, []byte(req.Content)); err != nil {
		return nil, err
	}

	result := &ScriptResult{
		Project:    req.Project,
		ScriptName: name,
		ScriptPath: project.ScriptsDir + "/" + file,
		Label:      firstLabel(req.Content),
		Preview:    scriptPreview(req.Content),
	}
	if result.Label != "" {
		updated, err := s.linkMainScript(p, result.Label)
		if err != nil {
			return nil, err
		}
		result.MainUpdated = updated
	}

	result.Message = "Script saved to " + result.ScriptPath
	if result.MainUpdated {
		result.Message += fmt.Sprintf(" and %s updated to call '%s'", project.MainScript, result.Label)
	}
	logger.Info("script stored",
		logging.String(logging.FieldEventType, "script_stored"),
		logging.String("script", result.ScriptPath),
		logging.String("label", result.Label),
		logging.Bool("main_updated", result.MainUpdated),
	)
	return result, nil
}

// linkMainScript replaces a main script that still carries the template
// marker with a call to label.
func (s *Studio) linkMainScript(p *project.Project, label string) (bool, error) {
	mainPath := project.ScriptsDir + "/" + project.MainScript
	current, err := p.ReadFile(mainPath)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !strings.Contains(string(current), project.TemplateMarker) {
		return false, nil
	}
	main := fmt.Sprintf("label start:\n    # Call the generated story\n    call %s\n\n    # Return to main menu\n    return\n", label)
	if _, err := p.WriteFile(mainPath, []byte(main)); err != nil {
		return false, err
	}
	return true, nil
}

// ListProjectFiles lists the project's images and scripts.
func (s *Studio) ListProjectFiles(_ context.Context, name string) ([]project.File, error) {
	p, err := s.projects.Open(name)
	if err != nil {
		return nil, err
	}
	return p.ListFiles()
}

// ReadProjectFile returns one source file addressed relative to the project
// root, for example "scripts/script.rpy".
func (s *Studio) ReadProjectFile(_ context.Context, name, path string) (*FileContent, error) {
	p, err := s.projects.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := p.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, services.Wrap(services.ErrValidation, "studio", "read file",
			fmt.Sprintf("%s is binary; only text files can be read", path), nil)
	}
	content := string(data)
	return &FileContent{Project: name, Path: path, Content: content, Size: len(data), Lines: countLines(content)}, nil
}

// EditProjectFile creates or atomically replaces a text source file.
func (s *Studio) EditProjectFile(ctx context.Context, name, path, content string) (*FileContent, error) {
	_, logger := s.begin(ctx, "edit_project_file", name)
	if !utf8.ValidString(content) {
		return nil, services.Wrap(services.ErrValidation, "studio", "edit file",
			fmt.Sprintf("content for %s is not valid UTF-8", path), nil)
	}
	p, err := s.projects.Open(name)
	if err != nil {
		return nil, err
	}
	if _, err := p.WriteFile(path, []byte(content)); err != nil {
		return nil, err
	}
	logger.Info("file edited",
		logging.String(logging.FieldEventType, "file_edited"),
		logging.String("path", path),
		logging.Int("size", len(content)),
	)
	return &FileContent{Project: name, Path: path, Size: len(content), Lines: countLines(content)}, nil
}

// firstLabel returns the name of the first "label X:" statement.
func firstLabel(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "label ")
		if !ok {
			continue
		}
		name, _, found := strings.Cut(rest, ":")
		if !found {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}

func scriptPreview(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= previewLines {
		return content
	}
	return strings.Join(lines[:previewLines], "\n") + "\n... (truncated)"
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
