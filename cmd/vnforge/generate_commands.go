package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vnforge/internal/studio"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate backgrounds and character sprites",
	}
	generateCmd.AddCommand(newGenerateBackgroundCommand(ctx))
	generateCmd.AddCommand(newGenerateCharacterCommand(ctx))
	return generateCmd
}

func newGenerateBackgroundCommand(ctx *commandContext) *cobra.Command {
	var name, style string
	cmd := &cobra.Command{
		Use:   "background <project> <description...>",
		Short: "Generate a 16:9 background image",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				res, err := st.GenerateBackground(c, studio.BackgroundRequest{
					Project:     args[0],
					Description: strings.Join(args[1:], " "),
					Style:       style,
					Name:        name,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Saved %s (%dx%d)\n\n%s\n", res.File, res.Width, res.Height, res.Snippet)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Image name (stored as images/bg_<name>.png)")
	cmd.Flags().StringVar(&style, "style", "", "Art style override")
	return cmd
}

func newGenerateCharacterCommand(ctx *commandContext) *cobra.Command {
	var emotions []string
	var pose, style string
	cmd := &cobra.Command{
		Use:   "character <project> <name> <description...>",
		Short: "Generate one sprite per emotion from a single image request",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				res, err := st.GenerateCharacter(c, studio.CharacterRequest{
					Project:     args[0],
					Name:        args[1],
					Description: strings.Join(args[2:], " "),
					Emotions:    emotions,
					Pose:        pose,
					Style:       style,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(res.Sprites))
				for _, sprite := range res.Sprites {
					rows = append(rows, []string{
						sprite.Emotion,
						sprite.File,
						fmt.Sprintf("%dx%d", sprite.Width, sprite.Height),
						yesNo(sprite.Degraded),
					})
				}
				fmt.Fprintf(out, "Character %s (grid %s)\n", res.Character, res.Grid)
				fmt.Fprintln(out, renderTable([]string{"Emotion", "File", "Size", "Degraded"}, rows, nil))
				fmt.Fprintf(out, "\n%s\n", res.Snippet)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&emotions, "emotions", "e", nil, "Emotion variants (comma separated; defaults from config)")
	cmd.Flags().StringVar(&pose, "pose", "", "Pose shared by every variant")
	cmd.Flags().StringVar(&style, "style", "", "Art style override")
	return cmd
}
