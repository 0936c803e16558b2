package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vnforge/internal/studio"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <project>",
		Short: "Serve the latest web build until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				handle, err := st.StartWebPreview(c, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Serving %s build %s at %s\n", handle.Project, shortID(handle.BuildID), handle.URL)
				if handle.Stale {
					fmt.Fprintln(out, "Sources changed since this build; run `vnforge build` to refresh.")
				}
				fmt.Fprintln(out, "Press Ctrl+C to stop.")

				<-signalCtx.Done()
				final, err := st.StopWebPreview(context.WithoutCancel(c), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Preview %s\n", final.State)
				return nil
			})
		},
	}
}
