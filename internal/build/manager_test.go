package build_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"vnforge/internal/build"
	"vnforge/internal/config"
	"vnforge/internal/project"
	"vnforge/internal/renpy"
	"vnforge/internal/services"
	"vnforge/internal/testsupport"
)

type blockingCompiler struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingCompiler() *blockingCompiler {
	return &blockingCompiler{started: make(chan struct{}), release: make(chan struct{})}
}

// Distribute blocks until release is closed and then fails. Calls made
// after release succeed immediately.
func (c *blockingCompiler) Distribute(ctx context.Context, _, _ string, onLine func(string)) error {
	select {
	case <-c.release:
		onLine("compiled")
		return nil
	default:
	}
	c.once.Do(func() { close(c.started) })
	onLine("compiling")
	select {
	case <-c.release:
		return errors.New("stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *blockingCompiler) AssembleWeb(_, outDir, _ string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "index.html"), []byte("<html></html>"), 0o644)
}

func setup(t *testing.T, sdk testsupport.SDKOptions) (*config.Config, *project.Store, *project.Project) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithFakeSDK(sdk))
	store := project.NewStore(cfg.Paths.WorkspaceDir)
	p, err := store.Create("barista", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(p.Dir(project.ImagesDir), "cafe.png"), "png")
	testsupport.WriteFile(t, filepath.Join(p.Dir(project.ImagesDir), "notes.txt"), "skip me")
	return cfg, store, p
}

func newToolchain(t *testing.T, cfg *config.Config) *renpy.Toolchain {
	t.Helper()
	tc, err := renpy.New(cfg.Renpy.SDKPath)
	if err != nil {
		t.Fatalf("renpy.New failed: %v", err)
	}
	return tc
}

func TestBuildPublishesArtifact(t *testing.T) {
	cfg, store, p := setup(t, testsupport.SDKOptions{})
	recorder := testsupport.MustOpenHistory(t, cfg)
	mgr := build.NewManager(store, newToolchain(t, cfg), build.WithRecorder(recorder))

	if got := mgr.Status("barista"); got != build.StatusIdle {
		t.Fatalf("expected idle before first build, got %s", got)
	}
	res, err := mgr.Build(context.Background(), "barista", "")
	if err != nil {
		t.Fatalf("Build failed: %v (log %q)", err, res.Log)
	}
	if !res.Success || res.Target != "web" || res.BuildID == "" {
		t.Fatalf("unexpected result: %#v", res)
	}
	if !strings.Contains(res.Log, "packaged barista") {
		t.Fatalf("expected compiler output in log, got %q", res.Log)
	}
	logged, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if string(logged) != res.Log {
		t.Fatalf("log file differs from result log: %q vs %q", logged, res.Log)
	}
	if !strings.HasPrefix(filepath.Base(res.LogPath), "build-web-") {
		t.Fatalf("unexpected log name %s", res.LogPath)
	}

	if res.ArtifactPath != p.ArtifactLink("web") {
		t.Fatalf("unexpected artifact path %s", res.ArtifactPath)
	}
	dir, meta, err := build.CurrentArtifact(p, "web")
	if err != nil {
		t.Fatalf("CurrentArtifact failed: %v", err)
	}
	if meta.BuildID != res.BuildID || filepath.Base(dir) != build.ArtifactDirName("web", res.BuildID) {
		t.Fatalf("artifact does not match build: %s %#v", dir, meta)
	}
	index, err := os.ReadFile(filepath.Join(res.ArtifactPath, "index.html"))
	if err != nil || !strings.Contains(string(index), "<title>Barista</title>") {
		t.Fatalf("expected customised index.html, got %q (%v)", index, err)
	}
	if mgr.Status("barista") != build.StatusSucceeded {
		t.Fatalf("expected succeeded status, got %s", mgr.Status("barista"))
	}

	records, err := mgr.History(context.Background(), "barista", 5)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != res.BuildID || records[0].Status != "succeeded" {
		t.Fatalf("unexpected history: %#v", records)
	}

	entries, _ := os.ReadDir(p.Dir(project.BuildDir))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".staging-") {
			t.Fatalf("staging dir left behind: %s", e.Name())
		}
	}
}

func TestBuildStagesScriptsAndImages(t *testing.T) {
	cfg, store, _ := setup(t, testsupport.SDKOptions{Script: `#!/bin/sh
find "$7/game" -type f | sort | sed "s|$7/||"
mkdir -p "$6"
cp "$(dirname "$0")/fixture-web.zip" "$6/barista-web.zip"
`})
	mgr := build.NewManager(store, newToolchain(t, cfg))
	res, err := mgr.Build(context.Background(), "barista", "web")
	if err != nil {
		t.Fatalf("Build failed: %v (log %q)", err, res.Log)
	}
	for _, want := range []string{"game/images/cafe.png", "game/script.rpy", "game/options.rpy"} {
		if !strings.Contains(res.Log, want) {
			t.Fatalf("expected %s staged, log:\n%s", want, res.Log)
		}
	}
	if strings.Contains(res.Log, "notes.txt") {
		t.Fatalf("non-image file staged, log:\n%s", res.Log)
	}
}

func TestBuildCompileFailureKeepsPreviousArtifact(t *testing.T) {
	cfg, store, p := setup(t, testsupport.SDKOptions{})
	mgr := build.NewManager(store, newToolchain(t, cfg))
	first, err := mgr.Build(context.Background(), "barista", "web")
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(cfg.Renpy.SDKPath, "renpy.sh"), []byte(testsupport.FailingBuildScript), 0o755); err != nil {
		t.Fatalf("swap script: %v", err)
	}
	res, err := mgr.Build(context.Background(), "barista", "web")
	if !errors.Is(err, services.ErrCompile) {
		t.Fatalf("expected compile failure, got %v", err)
	}
	if res == nil || res.Success || res.ExitCode != 3 {
		t.Fatalf("unexpected failure result: %#v", res)
	}
	if !strings.Contains(res.Log, "expected statement") || !strings.Contains(res.Log, "compile failed") {
		t.Fatalf("expected verbatim log, got %q", res.Log)
	}
	if mgr.Status("barista") != build.StatusFailed {
		t.Fatalf("expected failed status, got %s", mgr.Status("barista"))
	}
	_, meta, err := build.CurrentArtifact(p, "web")
	if err != nil || meta.BuildID != first.BuildID {
		t.Fatalf("previous artifact should stay published: %#v %v", meta, err)
	}
}

func TestConcurrentBuildRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := project.NewStore(cfg.Paths.WorkspaceDir)
	if _, err := store.Create("barista", ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	compiler := newBlockingCompiler()
	mgr := build.NewManager(store, compiler)

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Build(context.Background(), "barista", "web")
		done <- err
	}()
	<-compiler.started

	if mgr.Status("barista") != build.StatusRunning {
		t.Fatalf("expected running status, got %s", mgr.Status("barista"))
	}
	if _, err := mgr.Build(context.Background(), "barista", "web"); !errors.Is(err, services.ErrBuildInProgress) {
		t.Fatalf("expected ErrBuildInProgress, got %v", err)
	}

	close(compiler.release)
	if err := <-done; !errors.Is(err, services.ErrCompile) {
		t.Fatalf("expected first build to fail with compile error, got %v", err)
	}
	if mgr.Status("barista") != build.StatusFailed {
		t.Fatalf("expected failed status, got %s", mgr.Status("barista"))
	}

	res, err := mgr.Build(context.Background(), "barista", "web")
	if err != nil {
		t.Fatalf("retry after the first build finished failed: %v", err)
	}
	if !res.Success || mgr.Status("barista") != build.StatusSucceeded {
		t.Fatalf("expected successful retry, got %#v status %s", res, mgr.Status("barista"))
	}
}

func TestBuildsForDifferentProjectsRunConcurrently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := project.NewStore(cfg.Paths.WorkspaceDir)
	for _, name := range []string{"alpha", "beta"} {
		if _, err := store.Create(name, ""); err != nil {
			t.Fatalf("Create %s failed: %v", name, err)
		}
	}
	compiler := newBlockingCompiler()
	mgr := build.NewManager(store, compiler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 2)
	for _, name := range []string{"alpha", "beta"} {
		go func() {
			_, err := mgr.Build(ctx, name, "web")
			errs <- err
		}()
	}
	deadline := time.After(5 * time.Second)
	for mgr.Status("alpha") != build.StatusRunning || mgr.Status("beta") != build.StatusRunning {
		select {
		case <-deadline:
			t.Fatal("builds for different projects did not run together")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	for range 2 {
		if err := <-errs; !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	}
}

func TestBuildRejectedWhenLockHeldElsewhere(t *testing.T) {
	cfg, store, p := setup(t, testsupport.SDKOptions{})
	other := flock.New(filepath.Join(p.Dir(project.BuildDir), ".lock"))
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("failed to take lock: %v", err)
	}
	defer other.Unlock()

	mgr := build.NewManager(store, newToolchain(t, cfg))
	if _, err := mgr.Build(context.Background(), "barista", "web"); !errors.Is(err, services.ErrBuildInProgress) {
		t.Fatalf("expected ErrBuildInProgress, got %v", err)
	}
	if mgr.Status("barista") != build.StatusIdle {
		t.Fatalf("rejected build should not change status, got %s", mgr.Status("barista"))
	}
}

func TestBuildValidation(t *testing.T) {
	cfg, store, _ := setup(t, testsupport.SDKOptions{})
	mgr := build.NewManager(store, newToolchain(t, cfg))

	if _, err := mgr.Build(context.Background(), "barista", "android"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for target, got %v", err)
	}
	if _, err := mgr.Build(context.Background(), "ghost", "web"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBuildTimeoutKillsCompiler(t *testing.T) {
	cfg, store, _ := setup(t, testsupport.SDKOptions{Script: testsupport.SlowBuildScript})
	mgr := build.NewManager(store, newToolchain(t, cfg), build.WithTimeout(300*time.Millisecond))

	start := time.Now()
	res, err := mgr.Build(context.Background(), "barista", "web")
	if !errors.Is(err, services.ErrCompile) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout compile failure, got %v", err)
	}
	if !strings.Contains(res.Log, "starting") {
		t.Fatalf("expected partial log, got %q", res.Log)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("timeout did not stop the compiler")
	}
}
