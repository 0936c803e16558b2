package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vnforge/internal/services"
	"vnforge/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, apiKey string, sdk testsupport.SDKOptions) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"GEMINI_API_KEY", "GEMINI_IMAGE_MODEL", "RENPY_SDK_PATH", "VNFORGE_WORKSPACE", "VNFORGE_LOG_LEVEL", "VNFORGE_LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	sdkPath := testsupport.NewFakeSDK(t, sdk)
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
workspace_dir = %q
state_dir = %q
log_dir = %q

[gemini]
api_key = %q

[renpy]
sdk_path = %q

[preview]
port = 0

[logging]
level = "error"
`,
		filepath.Join(base, "projects"),
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"),
		apiKey,
		sdkPath,
	)
	testsupport.WriteFile(t, configPath, content)
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "test", testsupport.SDKOptions{})

	out, _, err := runCLI(t, env, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestProjectScriptBuildFlow(t *testing.T) {
	env := setupCLITestEnv(t, "test", testsupport.SDKOptions{})

	out, _, err := runCLI(t, env, "", "project", "create", "cafe")
	if err != nil {
		t.Fatalf("project create: %v", err)
	}
	requireContains(t, out, "Created project cafe")

	out, _, err = runCLI(t, env, "", "project", "list")
	if err != nil {
		t.Fatalf("project list: %v", err)
	}
	requireContains(t, out, "cafe")

	script := "label intro:\n    \"Welcome in.\"\n    return\n"
	if _, _, err := runCLI(t, env, script, "script", "add", "cafe", "intro"); err != nil {
		t.Fatalf("script add: %v", err)
	}
	out, _, err = runCLI(t, env, "", "project", "cat", "cafe", "scripts/script.rpy")
	if err != nil {
		t.Fatalf("project cat: %v", err)
	}
	requireContains(t, out, "call intro")

	out, _, err = runCLI(t, env, "", "build", "cafe")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContains(t, out, "succeeded")
	requireContains(t, out, filepath.Join("cafe", "build", "web"))

	out, _, err = runCLI(t, env, "", "builds", "cafe")
	if err != nil {
		t.Fatalf("builds: %v", err)
	}
	requireContains(t, out, "succeeded")

	out, _, err = runCLI(t, env, "", "logs", "cafe", "-n", "5")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "packaged cafe")

	out, _, err = runCLI(t, env, "", "--json", "project", "files", "cafe")
	if err != nil {
		t.Fatalf("project files: %v", err)
	}
	requireContains(t, out, `"scripts/intro.rpy"`)

	if _, _, err := runCLI(t, env, "", "project", "delete", "cafe"); err == nil {
		t.Fatal("expected delete without --force to fail")
	}
	if _, _, err := runCLI(t, env, "", "project", "delete", "cafe", "--force"); err != nil {
		t.Fatalf("project delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.baseDir, "projects", "cafe")); !os.IsNotExist(err) {
		t.Fatalf("project dir still present: %v", err)
	}
}

func TestBuildFailurePrintsLog(t *testing.T) {
	env := setupCLITestEnv(t, "test", testsupport.SDKOptions{Script: testsupport.FailingBuildScript})
	if _, _, err := runCLI(t, env, "", "project", "create", "cafe"); err != nil {
		t.Fatalf("project create: %v", err)
	}

	out, stderr, err := runCLI(t, env, "", "build", "cafe")
	if !errors.Is(err, services.ErrCompile) {
		t.Fatalf("expected compile failure, got %v", err)
	}
	requireContains(t, stderr, "expected statement")
	requireContains(t, out, "failed (exit 3)")
}

func TestMissingKeyFailsFastButStatusReports(t *testing.T) {
	env := setupCLITestEnv(t, "", testsupport.SDKOptions{})

	if _, _, err := runCLI(t, env, "", "project", "list"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	out, _, err := runCLI(t, env, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Gemini API key")
	requireContains(t, out, "[ERROR] missing")
	requireContains(t, out, "Ren'Py SDK")
}
