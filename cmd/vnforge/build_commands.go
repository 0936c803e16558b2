package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vnforge/internal/studio"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var target string
	var showLog bool
	cmd := &cobra.Command{
		Use:   "build <project>",
		Short: "Compile the project for the web",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				res, err := st.BuildProject(c, args[0], target)
				if res == nil {
					return err
				}
				if ctx.jsonOutput() {
					if jsonErr := writeJSON(cmd, res); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				out := cmd.OutOrStdout()
				if err != nil {
					// The compiler output is the only useful diagnostic.
					fmt.Fprint(cmd.ErrOrStderr(), res.Log)
					fmt.Fprintf(out, "Build %s failed (exit %d); log at %s\n", res.BuildID, res.ExitCode, res.LogPath)
					return err
				}
				if showLog {
					fmt.Fprint(out, res.Log)
				}
				fmt.Fprintf(out, "Build %s succeeded in %s\n", res.BuildID, res.Duration.Round(time.Millisecond))
				fmt.Fprintf(out, "Artifact: %s\n", res.ArtifactPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Build target (default from config)")
	cmd.Flags().BoolVar(&showLog, "log", false, "Print the compiler log on success")
	return cmd
}

func newBuildsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "builds [project]",
		Short: "Show recent builds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				records, err := st.BuildHistory(c, name, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No builds recorded")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					duration := "-"
					if rec.FinishedAt != nil {
						duration = rec.Duration().Round(time.Second).String()
					}
					rows = append(rows, []string{
						shortID(rec.ID),
						rec.Project,
						rec.Target,
						rec.Status,
						strconv.Itoa(rec.ExitCode),
						rec.StartedAt.Local().Format(time.DateTime),
						duration,
					})
				}
				headers := []string{"ID", "Project", "Target", "Status", "Exit", "Started", "Duration"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum builds to show")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
