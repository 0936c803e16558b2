package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vnforge/internal/fileutil"
	"vnforge/internal/project"
)

// imageExtensions are the asset types copied into game/images.
var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// stageProject lays out the Ren'Py tree for p under dir/<name>/game and
// returns the project directory handed to the compiler.
func stageProject(p *project.Project, dir string) (string, error) {
	root := filepath.Join(dir, p.Name())
	game := filepath.Join(root, "game")
	if err := os.MkdirAll(filepath.Join(game, "images"), 0o755); err != nil {
		return "", fmt.Errorf("create staging tree: %w", err)
	}

	scripts := p.Dir(project.ScriptsDir)
	err := fileutil.CopyTree(scripts, game, func(rel string) bool {
		return skipHidden(rel) || (!isDir(filepath.Join(scripts, rel)) && !strings.EqualFold(filepath.Ext(rel), ".rpy"))
	})
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("stage scripts: %w", err)
	}

	images := p.Dir(project.ImagesDir)
	err = fileutil.CopyTree(images, filepath.Join(game, "images"), func(rel string) bool {
		if skipHidden(rel) {
			return true
		}
		if isDir(filepath.Join(images, rel)) {
			return false
		}
		_, ok := imageExtensions[strings.ToLower(filepath.Ext(rel))]
		return !ok
	})
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("stage images: %w", err)
	}
	return root, nil
}

func skipHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
