package preflight

import (
	"context"

	"vnforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckGeminiKey(cfg.Gemini.APIKey),
		CheckRenpySDK(cfg.Renpy.SDKPath),
	}

	// Ephemeral ports are always available.
	if cfg.Preview.Port != 0 {
		results = append(results, CheckPort(ctx, cfg.Preview.BindHost, cfg.Preview.Port))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
