package testsupport

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// SDKOptions shapes a fake Ren'Py SDK.
type SDKOptions struct {
	// Dir is where the SDK is written. Empty uses a fresh temp directory.
	Dir string
	// Script replaces the default renpy.sh body.
	Script string
	// Package lists the files placed in the generated <project>-web.zip.
	Package map[string]string
	// OmitWeb leaves out the web runtime directory.
	OmitWeb bool
}

// DefaultBuildScript mimics "renpy.sh <launcher> distribute --package web
// --destination <dest> <project>" by copying a prepared web package into
// the destination.
const DefaultBuildScript = `#!/bin/sh
echo "ren'py distribute $2 video=$SDL_VIDEODRIVER audio=$SDL_AUDIODRIVER"
dest="$6"
project="$7"
mkdir -p "$dest"
cp "$(dirname "$0")/fixture-web.zip" "$dest/$(basename "$project")-web.zip"
echo "packaged $(basename "$project")"
`

// FailingBuildScript prints a compile error and exits non-zero.
const FailingBuildScript = `#!/bin/sh
echo "File \"game/script.rpy\", line 3: expected statement."
echo "compile failed" >&2
exit 3
`

// SlowBuildScript blocks until killed.
const SlowBuildScript = `#!/bin/sh
echo "starting"
sleep 30
`

// NewFakeSDK writes a fake SDK tree: an executable renpy.sh stub, a launcher
// directory, the web runtime and a fixture web package. It returns the SDK
// directory.
func NewFakeSDK(t testing.TB, opts SDKOptions) string {
	t.Helper()

	dir := opts.Dir
	if dir == "" {
		dir = filepath.Join(t.TempDir(), "renpy-sdk")
	}
	if err := os.MkdirAll(filepath.Join(dir, "launcher"), 0o755); err != nil {
		t.Fatalf("mkdir launcher: %v", err)
	}
	script := opts.Script
	if script == "" {
		script = DefaultBuildScript
	}
	if err := os.WriteFile(filepath.Join(dir, "renpy.sh"), []byte(script), 0o755); err != nil {
		t.Fatalf("write renpy.sh: %v", err)
	}

	if !opts.OmitWeb {
		runtime := map[string]string{
			"index.html":    "<html><title>%%TITLE%%</title></html>\n",
			"renpy.js":      "// runtime\n",
			"renpy.wasm":    "wasm",
			"hash.txt":      "abc123\n",
			"web-icon.png":  "icon",
			"manifest.json": "{}\n",
		}
		for name, content := range runtime {
			WriteFile(t, filepath.Join(dir, "web", name), content)
		}
	}

	pkg := opts.Package
	if pkg == nil {
		pkg = map[string]string{
			"index.html":        "<html>package index</html>\n",
			"game/script.rpyc":  "compiled",
			"game/images/a.png": "png",
		}
	}
	writeZip(t, filepath.Join(dir, "fixture-web.zip"), pkg)
	return dir
}

func writeZip(t testing.TB, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}
