package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vnforge/internal/fileutil"
	"vnforge/internal/project"
)

// MetadataFile is written at the root of every published artifact.
const MetadataFile = ".vnforge-build.json"

// removeArtifact deletes a superseded artifact tree.
var removeArtifact = os.RemoveAll

// keepArtifacts is how many published artifact directories survive pruning,
// counting the current one.
const keepArtifacts = 2

// Metadata describes a published artifact.
type Metadata struct {
	BuildID   string    `json:"build_id"`
	Project   string    `json:"project"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadMetadata loads the metadata stored in an artifact directory.
func ReadMetadata(artifactDir string) (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(filepath.Join(artifactDir, MetadataFile))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse %s: %w", MetadataFile, err)
	}
	return meta, nil
}

func writeMetadata(artifactDir string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(filepath.Join(artifactDir, MetadataFile), append(data, '\n'), 0o644)
}

// ArtifactDirName is the directory a build publishes into, relative to the
// project's build directory.
func ArtifactDirName(target, buildID string) string {
	return target + "-" + buildID
}

// publish points build/<target> at the artifact directory.
func publish(p *project.Project, target, artifactName string) error {
	link := p.ArtifactLink(target)
	if info, err := os.Lstat(link); err == nil && info.Mode()&fs.ModeSymlink == 0 {
		// A real directory left by an older layout blocks the swap.
		if err := os.RemoveAll(link); err != nil {
			return fmt.Errorf("remove legacy artifact dir: %w", err)
		}
	}
	return fileutil.ReplaceSymlink(artifactName, link)
}

func pruneArtifacts(p *project.Project, target, current string) error {
	buildDir := p.Dir(project.BuildDir)
	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return fmt.Errorf("read build dir: %w", err)
	}
	type candidate struct {
		name    string
		created time.Time
	}
	var old []candidate
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == current || !strings.HasPrefix(name, target+"-") {
			continue
		}
		meta, err := ReadMetadata(filepath.Join(buildDir, name))
		if err != nil {
			continue
		}
		old = append(old, candidate{name: name, created: meta.CreatedAt})
	}
	sort.Slice(old, func(i, j int) bool { return old[i].created.After(old[j].created) })
	var errs []error
	for i, c := range old {
		if i < keepArtifacts-1 {
			continue
		}
		if err := removeArtifact(filepath.Join(buildDir, c.name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CurrentArtifact resolves build/<target> to the published artifact
// directory. It returns fs.ErrNotExist when nothing has been published.
func CurrentArtifact(p *project.Project, target string) (string, Metadata, error) {
	link := p.ArtifactLink(target)
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return "", Metadata{}, err
	}
	meta, err := ReadMetadata(resolved)
	if err != nil {
		return resolved, Metadata{}, err
	}
	return resolved, meta, nil
}
