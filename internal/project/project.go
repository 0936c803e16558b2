package project

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"vnforge/internal/services"
	"vnforge/internal/textutil"
)

const (
	ImagesDir  = "images"
	ScriptsDir = "scripts"
	BuildDir   = "build"
	LogsDir    = "logs"

	// MainScript is the entry script every template provides.
	MainScript = "script.rpy"
	// DefaultTemplate is used when Create receives an empty template name.
	DefaultTemplate = "basic"
	// TemplateMarker identifies a main script that has not been customised yet.
	TemplateMarker = "Welcome to your new Ren'Py project!"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

//go:embed templates
var templateFS embed.FS

// ValidateName reports whether name is an acceptable project name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return services.Wrap(services.ErrValidation, "project", "validate name",
			fmt.Sprintf("%q must match %s", name, namePattern.String()), nil)
	}
	return nil
}

// Templates lists the built-in template names.
func Templates() []string {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Store resolves projects inside a workspace directory.
type Store struct {
	workspace string
}

// NewStore returns a store rooted at workspace. The directory is created on
// first use.
func NewStore(workspace string) *Store {
	return &Store{workspace: workspace}
}

// Workspace returns the root directory holding all projects.
func (s *Store) Workspace() string {
	return s.workspace
}

// Info summarises a project for listings.
type Info struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Modified time.Time `json:"modified"`
}

// Create lays out a new project from the named template. Creating a project
// that already exists is a validation error.
func (s *Store) Create(name, template string) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	templateDir := path.Join("templates", template)
	if _, err := fs.Stat(templateFS, templateDir); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "project", "create",
			fmt.Sprintf("unknown template %q (available: %s)", template, strings.Join(Templates(), ", ")), nil)
	}
	if err := os.MkdirAll(s.workspace, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	root := filepath.Join(s.workspace, name)
	if _, err := os.Stat(root); err == nil {
		return nil, services.Wrap(services.ErrValidation, "project", "create",
			fmt.Sprintf("project %q already exists", name), nil)
	}
	// Build the tree beside its final location so a half-created project is
	// never visible under its own name.
	staging, err := os.MkdirTemp(s.workspace, "."+name+".create-*")
	if err != nil {
		return nil, fmt.Errorf("create project staging: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, dir := range []string{ImagesDir, ScriptsDir, BuildDir, LogsDir} {
		if err := os.MkdirAll(filepath.Join(staging, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	replacer := strings.NewReplacer("%%TITLE%%", textutil.DisplayName(name), "%%NAME%%", name)
	err = fs.WalkDir(templateFS, templateDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		data, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(p, templateDir+"/")
		return os.WriteFile(filepath.Join(staging, ScriptsDir, filepath.FromSlash(rel)), []byte(replacer.Replace(string(data))), 0o644)
	})
	if err != nil {
		return nil, fmt.Errorf("copy template %s: %w", template, err)
	}

	if err := os.Rename(staging, root); err != nil {
		if _, statErr := os.Stat(root); statErr == nil {
			return nil, services.Wrap(services.ErrValidation, "project", "create",
				fmt.Sprintf("project %q already exists", name), nil)
		}
		return nil, fmt.Errorf("publish project: %w", err)
	}
	return &Project{name: name, root: root}, nil
}

// Open returns an existing project or an ErrNotFound error.
func (s *Store) Open(name string) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	root := filepath.Join(s.workspace, name)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, "project", "open",
			fmt.Sprintf("project %q does not exist", name), nil)
	}
	return &Project{name: name, root: root}, nil
}

// List returns every project in the workspace sorted by name.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.workspace)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	projects := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !namePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		projects = append(projects, Info{
			Name:     entry.Name(),
			Path:     filepath.Join(s.workspace, entry.Name()),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// Delete removes a project directory and everything below it.
func (s *Store) Delete(name string) error {
	p, err := s.Open(name)
	if err != nil {
		return err
	}
	return os.RemoveAll(p.root)
}
