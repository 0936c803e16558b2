package renpy

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vnforge/internal/fileutil"
	"vnforge/internal/logging"
)

// GameArchive is the name of the archive the web player downloads at start.
const GameArchive = "game.zip"

// runtimeFiles are served directly by the web player and never packed into
// game.zip.
var runtimeFiles = map[string]struct{}{
	"index.html":         {},
	"index.html.symbols": {},
	"manifest.json":      {},
	"renpy-pre.js":       {},
	"renpy.data":         {},
	"renpy.js":           {},
	"renpy.wasm":         {},
	"service-worker.js":  {},
	"web-icon.png":       {},
	"web-presplash.jpg":  {},
}

// ErrNoWebPackage indicates the compiler exited cleanly without producing a
// web package.
var ErrNoWebPackage = errors.New("no web package in distribution")

// FindWebPackage returns the first *-web.zip in distDir.
func FindWebPackage(distDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(distDir, "*-web.zip"))
	if err != nil {
		return "", fmt.Errorf("glob web package: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoWebPackage, distDir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// AssembleWeb turns the distribution in distDir into a playable web player
// under outDir: the web package is extracted, the SDK web runtime is laid
// over it with title substituted into index.html, and every non-runtime file
// is packed into game.zip.
func (t *Toolchain) AssembleWeb(distDir, outDir, title string) error {
	pkg, err := FindWebPackage(distDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create web dir: %w", err)
	}
	if err := extractZip(pkg, outDir); err != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(pkg), err)
	}
	t.logger.Debug("web package extracted", logging.String("package", pkg), logging.String("destination", outDir))

	runtimeDir := t.WebRuntime()
	err = fileutil.CopyTree(runtimeDir, outDir, func(rel string) bool {
		return rel == "hash.txt" || rel == "index.html"
	})
	if err != nil {
		return fmt.Errorf("copy web runtime: %w", err)
	}
	index, err := os.ReadFile(filepath.Join(runtimeDir, "index.html"))
	if err != nil {
		return fmt.Errorf("read runtime index.html: %w", err)
	}
	customised := strings.ReplaceAll(string(index), "%%TITLE%%", title)
	if err := fileutil.WriteFileAtomic(filepath.Join(outDir, "index.html"), []byte(customised), 0o644); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}

	if err := writeGameArchive(outDir); err != nil {
		return fmt.Errorf("write %s: %w", GameArchive, err)
	}
	return nil
}

func extractZip(archive, dest string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer reader.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	for _, file := range reader.File {
		target := filepath.Join(root, filepath.FromSlash(file.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes destination", file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(file, target); err != nil {
			return fmt.Errorf("entry %s: %w", file.Name, err)
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeGameArchive(webDir string) error {
	archivePath := filepath.Join(webDir, GameArchive)
	tmp, err := os.CreateTemp(webDir, "."+GameArchive+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(tmp)
	walkErr := filepath.WalkDir(webDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if path == archivePath || path == tmpName {
			return nil
		}
		if _, skip := runtimeFiles[d.Name()]; skip {
			return nil
		}
		rel, err := filepath.Rel(webDir, path)
		if err != nil {
			return err
		}
		return addToArchive(zw, path, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		_ = zw.Close()
		_ = tmp.Close()
		return walkErr
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, archivePath)
}

func addToArchive(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
