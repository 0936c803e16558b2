package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vnforge/internal/studio"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	scriptCmd := &cobra.Command{
		Use:   "script",
		Short: "Manage Ren'Py scripts",
	}
	scriptCmd.AddCommand(newScriptAddCommand(ctx))
	return scriptCmd
}

func newScriptAddCommand(ctx *commandContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add <project> <name>",
		Short: "Store a script and link it from the main script",
		Long:  "Reads the script from --file, or from stdin when no file is given.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readScript(cmd, file)
			if err != nil {
				return err
			}
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				res, err := st.GenerateScript(c, studio.ScriptRequest{
					Project: args[0],
					Name:    args[1],
					Content: content,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Script file to read")
	return cmd
}

func readScript(cmd *cobra.Command, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file = strings.TrimSpace(file); file != "" && file != "-" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}
