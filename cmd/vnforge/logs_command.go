package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vnforge/internal/logs"
	"vnforge/internal/studio"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs <project>",
		Short: "Show the compiler log of the latest build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				records, err := st.BuildHistory(c, args[0], 1)
				if err != nil {
					return err
				}
				if len(records) == 0 || records[0].LogPath == "" {
					return fmt.Errorf("no builds recorded for %s", args[0])
				}
				path := records[0].LogPath

				tail, offset, err := logs.LastLines(path, lines)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, line := range tail {
					fmt.Fprintln(out, line)
				}
				if !follow {
					return nil
				}
				err = logs.Follow(signalCtx, path, offset, logs.DefaultFollowInterval, func(line string) {
					fmt.Fprintln(out, line)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as the build writes them")
	return cmd
}
