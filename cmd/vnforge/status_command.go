package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vnforge/internal/config"
	"vnforge/internal/deps"
	"vnforge/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Check configuration, credentials and the Ren'Py SDK",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.LoadUnvalidated(ctx.configPath())
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			systemDeps := preflight.CheckSystemDeps(cfg)
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"config_path":  path,
					"config_found": exists,
					"checks":       results,
					"dependencies": systemDeps,
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader("Configuration", colorize)
			configMsg := path
			configKind := statusOK
			if !exists {
				configMsg = path + " (not found; using defaults)"
				configKind = statusWarn
			}
			lines = append(lines, renderStatusLine("Config file", configKind, configMsg, colorize))
			if err := cfg.Validate(); err != nil {
				lines = append(lines, renderStatusLine("Validation", statusError, err.Error(), colorize))
			} else {
				lines = append(lines, renderStatusLine("Validation", statusOK, "", colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(systemDeps, colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, dep := range statuses {
		switch {
		case dep.Available:
			lines = append(lines, renderStatusLine(dep.Name, statusOK, dep.Command, colorize))
		case dep.Optional:
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, dep.Detail, colorize))
		default:
			msg := dep.Detail
			if dep.Description != "" {
				msg = fmt.Sprintf("%s (%s)", dep.Detail, dep.Description)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusError, msg, colorize))
		}
	}
	return lines
}
