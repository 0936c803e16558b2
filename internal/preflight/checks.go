package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"vnforge/internal/config"
	"vnforge/internal/deps"
	"vnforge/internal/renpy"
)

const sampleAPIKey = "your_gemini_api_key_here"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckGeminiKey verifies an API key is configured. The key is not sent
// anywhere.
func CheckGeminiKey(apiKey string) Result {
	const name = "Gemini API key"
	key := strings.TrimSpace(apiKey)
	switch {
	case key == "":
		return Result{Name: name, Detail: "missing (set GEMINI_API_KEY)"}
	case key == sampleAPIKey:
		return Result{Name: name, Detail: "still the sample placeholder"}
	}
	return Result{Name: name, Passed: true, Detail: "configured (" + maskKey(key) + ")"}
}

// CheckRenpySDK verifies the SDK has a launcher executable and web support.
func CheckRenpySDK(sdkPath string) Result {
	const name = "Ren'Py SDK"
	tc, err := renpy.New(sdkPath)
	if err != nil {
		return Result{Name: name, Detail: "missing (set RENPY_SDK_PATH)"}
	}
	if err := tc.Check(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: tc.SDKPath()}
}

// CheckPort verifies the fixed preview port can be bound.
func CheckPort(ctx context.Context, host string, port int) Result {
	const name = "Preview port"
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unavailable (%v)", addr, err)}
	}
	_ = ln.Close()
	return Result{Name: name, Passed: true, Detail: addr + " free"}
}

// CheckSystemDeps evaluates the external programs builds need.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	launcher := ""
	if tc, err := renpy.New(cfg.Renpy.SDKPath); err == nil {
		if exe, err := tc.Executable(); err == nil {
			launcher = exe
		}
	}
	requirements := []deps.Requirement{
		{
			Name:        "Ren'Py launcher",
			Command:     launcher,
			Description: "Required for builds",
		},
		{
			Name:        "sh",
			Command:     "sh",
			Description: "Runs the renpy.sh launcher script",
		},
	}
	return deps.CheckBinaries(requirements)
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
