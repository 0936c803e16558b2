package renpy_test

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"vnforge/internal/renpy"
	"vnforge/internal/services"
	"vnforge/internal/testsupport"
)

type stubExecutor struct {
	lines []string
	err   error
	calls int
	cmd   renpy.Command
}

func (s *stubExecutor) Run(_ context.Context, cmd renpy.Command, onLine func(string)) error {
	s.calls++
	s.cmd = cmd
	for _, line := range s.lines {
		if onLine != nil {
			onLine(line)
		}
	}
	return s.err
}

type exitErr struct{ code int }

func (e exitErr) Error() string { return "exit status" }
func (e exitErr) ExitCode() int { return e.code }

func TestNewRequiresSDKPath(t *testing.T) {
	if _, err := renpy.New("  "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCheckReportsMissingPieces(t *testing.T) {
	missing, err := renpy.New(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := missing.Check(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing sdk, got %v", err)
	}

	noWeb := testsupport.NewFakeSDK(t, testsupport.SDKOptions{OmitWeb: true})
	tc, err := renpy.New(noWeb)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = tc.Check()
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "web support") {
		t.Fatalf("expected web support error, got %v", err)
	}

	empty := t.TempDir()
	tc, _ = renpy.New(empty)
	if _, err := tc.Executable(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected missing executable error, got %v", err)
	}
}

func TestCommandShape(t *testing.T) {
	sdk := testsupport.NewFakeSDK(t, testsupport.SDKOptions{})
	tc, err := renpy.New(sdk)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	cmd, err := tc.Command("/work/game", "/work/dist")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if cmd.Binary != filepath.Join(sdk, "renpy.sh") {
		t.Fatalf("unexpected binary %q", cmd.Binary)
	}
	want := []string{filepath.Join(sdk, "launcher"), "distribute", "--package", "web", "--destination", "/work/dist", "/work/game"}
	if strings.Join(cmd.Args, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected args %v", cmd.Args)
	}
	if cmd.Dir != sdk {
		t.Fatalf("expected cwd %s, got %s", sdk, cmd.Dir)
	}
}

func TestHeadlessEnvKeepsExistingValues(t *testing.T) {
	env := renpy.HeadlessEnv([]string{"PATH=/bin", "SDL_VIDEODRIVER=x11"})
	joined := strings.Join(env, "\n")
	if !strings.Contains(joined, "SDL_VIDEODRIVER=x11") || strings.Contains(joined, "SDL_VIDEODRIVER=dummy") {
		t.Fatalf("existing SDL_VIDEODRIVER should win: %v", env)
	}
	for _, want := range []string{"SDL_AUDIODRIVER=dummy", "RENPY_FORCE_SOFTWARE=1", "RENPY_DISABLE_UPDATE=1", "RENPY_DISABLE_JOYSTICK=1"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %s in %v", want, env)
		}
	}
}

func TestDistributeUsesExecutor(t *testing.T) {
	sdk := testsupport.NewFakeSDK(t, testsupport.SDKOptions{})
	stub := &stubExecutor{lines: []string{"one", "two"}, err: exitErr{code: 2}}
	tc, err := renpy.New(sdk, renpy.WithExecutor(stub))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var got []string
	err = tc.Distribute(context.Background(), "/p", "/d", func(line string) { got = append(got, line) })
	if renpy.ExitCode(err) != 2 {
		t.Fatalf("expected exit code 2, got %d (%v)", renpy.ExitCode(err), err)
	}
	if stub.calls != 1 || len(got) != 2 {
		t.Fatalf("unexpected executor use: calls=%d lines=%v", stub.calls, got)
	}
}

func TestExitCode(t *testing.T) {
	if renpy.ExitCode(nil) != 0 {
		t.Fatal("nil error should be exit 0")
	}
	if renpy.ExitCode(errors.New("boom")) != -1 {
		t.Fatal("plain error should be -1")
	}
}

func TestDistributeRunsScriptHeadless(t *testing.T) {
	sdk := testsupport.NewFakeSDK(t, testsupport.SDKOptions{})
	tc, err := renpy.New(sdk)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	project := filepath.Join(t.TempDir(), "barista")
	dest := filepath.Join(t.TempDir(), "dist")

	var lines []string
	if err := tc.Distribute(context.Background(), project, dest, func(line string) { lines = append(lines, line) }); err != nil {
		t.Fatalf("Distribute failed: %v (output %v)", err, lines)
	}
	if len(lines) == 0 || !strings.Contains(lines[0], "video=dummy audio=dummy") {
		t.Fatalf("expected headless env in output, got %v", lines)
	}
	if _, err := os.Stat(filepath.Join(dest, "barista-web.zip")); err != nil {
		t.Fatalf("expected web package: %v", err)
	}
}

func TestDistributeReportsExitCodeAndOutput(t *testing.T) {
	sdk := testsupport.NewFakeSDK(t, testsupport.SDKOptions{Script: testsupport.FailingBuildScript})
	tc, _ := renpy.New(sdk)

	var lines []string
	err := tc.Distribute(context.Background(), t.TempDir(), t.TempDir(), func(line string) { lines = append(lines, line) })
	if renpy.ExitCode(err) != 3 {
		t.Fatalf("expected exit code 3, got %d (%v)", renpy.ExitCode(err), err)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "expected statement") || !strings.Contains(joined, "compile failed") {
		t.Fatalf("expected stdout and stderr captured, got %q", joined)
	}
}

func TestDistributeCancellationKillsProcessGroup(t *testing.T) {
	sdk := testsupport.NewFakeSDK(t, testsupport.SDKOptions{Script: testsupport.SlowBuildScript})
	tc, _ := renpy.New(sdk)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := tc.Distribute(ctx, t.TempDir(), t.TempDir(), nil)
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("cancellation took too long: %s", elapsed)
	}
}

func TestAssembleWeb(t *testing.T) {
	sdk := testsupport.NewFakeSDK(t, testsupport.SDKOptions{})
	tc, _ := renpy.New(sdk)
	dist := t.TempDir()
	if err := tc.Distribute(context.Background(), filepath.Join(t.TempDir(), "barista"), dist, nil); err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "web")
	if err := tc.AssembleWeb(dist, out, "Barista"); err != nil {
		t.Fatalf("AssembleWeb failed: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if string(index) != "<html><title>Barista</title></html>\n" {
		t.Fatalf("unexpected index.html %q", index)
	}
	if _, err := os.Stat(filepath.Join(out, "hash.txt")); !os.IsNotExist(err) {
		t.Fatalf("hash.txt should not be copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "renpy.wasm")); err != nil {
		t.Fatalf("runtime file missing: %v", err)
	}

	reader, err := zip.OpenReader(filepath.Join(out, renpy.GameArchive))
	if err != nil {
		t.Fatalf("open game.zip: %v", err)
	}
	defer reader.Close()
	var names []string
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	want := []string{"game/images/a.png", "game/script.rpyc"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected game.zip entries %v", names)
	}
}

func TestAssembleWebWithoutPackage(t *testing.T) {
	sdk := testsupport.NewFakeSDK(t, testsupport.SDKOptions{})
	tc, _ := renpy.New(sdk)
	err := tc.AssembleWeb(t.TempDir(), t.TempDir(), "X")
	if !errors.Is(err, renpy.ErrNoWebPackage) {
		t.Fatalf("expected ErrNoWebPackage, got %v", err)
	}
}
