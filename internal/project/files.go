package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vnforge/internal/fileutil"
	"vnforge/internal/services"
)

// Project is a handle on one project directory.
type Project struct {
	name string
	root string
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Root returns the absolute project directory.
func (p *Project) Root() string { return p.root }

// Dir returns the absolute path of one of the project subtrees.
func (p *Project) Dir(sub string) string { return filepath.Join(p.root, sub) }

// ArtifactLink returns the path of the build symlink for target.
func (p *Project) ArtifactLink(target string) string {
	return filepath.Join(p.root, BuildDir, target)
}

// File describes one entry returned by ListFiles.
type File struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Type     string    `json:"type"`
	Modified time.Time `json:"modified"`
}

// ListFiles returns the source files (images and scripts) relative to the
// project root, sorted by path.
func (p *Project) ListFiles() ([]File, error) {
	var files []File
	for _, sub := range []string{ImagesDir, ScriptsDir} {
		base := p.Dir(sub)
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(p.root, path)
			if err != nil {
				return err
			}
			files = append(files, File{
				Path:     filepath.ToSlash(rel),
				Size:     info.Size(),
				Type:     strings.TrimPrefix(filepath.Ext(path), "."),
				Modified: info.ModTime(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", sub, err)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ReadFile returns the contents of a source file addressed relative to the
// project root (for example "scripts/script.rpy").
func (p *Project) ReadFile(rel string) ([]byte, error) {
	abs, err := p.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "project", "read file",
				fmt.Sprintf("%s not found in project %s", rel, p.name), nil)
		}
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// WriteFile atomically creates or replaces a source file addressed relative
// to the project root.
func (p *Project) WriteFile(rel string, data []byte) (string, error) {
	abs, err := p.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create parent for %s: %w", rel, err)
	}
	if err := fileutil.WriteFileAtomic(abs, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return abs, nil
}

// WriteScript stores a Ren'Py script under scripts/.
func (p *Project) WriteScript(name string, content []byte) (string, error) {
	return p.WriteFile(ScriptsDir+"/"+name, content)
}

// WriteImage stores an encoded image under images/.
func (p *Project) WriteImage(name string, data []byte) (string, error) {
	return p.WriteFile(ImagesDir+"/"+name, data)
}

// LatestSourceChange returns the newest modification time of any file under
// images/ or scripts/.
func (p *Project) LatestSourceChange() (time.Time, error) {
	files, err := p.ListFiles()
	if err != nil {
		return time.Time{}, err
	}
	var latest time.Time
	for _, f := range files {
		if f.Modified.After(latest) {
			latest = f.Modified
		}
	}
	return latest, nil
}

// resolve maps a project-relative path to an absolute one inside images/ or
// scripts/, rejecting anything that escapes those trees.
func (p *Project) resolve(rel string) (string, error) {
	cleaned := filepath.ToSlash(filepath.Clean(strings.TrimSpace(rel)))
	if cleaned == "." || filepath.IsAbs(rel) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", services.Wrap(services.ErrValidation, "project", "resolve path",
			fmt.Sprintf("%q is not a project-relative path", rel), nil)
	}
	top, rest, _ := strings.Cut(cleaned, "/")
	if (top != ImagesDir && top != ScriptsDir) || rest == "" {
		return "", services.Wrap(services.ErrValidation, "project", "resolve path",
			fmt.Sprintf("%q must live under %s/ or %s/", rel, ImagesDir, ScriptsDir), nil)
	}
	return filepath.Join(p.root, filepath.FromSlash(cleaned)), nil
}
