package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vnforge/internal/studio"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Create and inspect projects",
	}
	projectCmd.AddCommand(newProjectCreateCommand(ctx))
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectFilesCommand(ctx))
	projectCmd.AddCommand(newProjectCatCommand(ctx))
	projectCmd.AddCommand(newProjectDeleteCommand(ctx))
	return projectCmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new project from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				res, err := st.CreateProject(c, args[0], template)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s at %s (template %s)\n", res.Name, res.Path, res.Template)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&template, "template", "t", "", "Project template (default basic)")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				infos, err := st.ListProjects(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, infos)
				}
				out := cmd.OutOrStdout()
				if len(infos) == 0 {
					fmt.Fprintln(out, "No projects yet. Create one with `vnforge project create <name>`.")
					return nil
				}
				rows := make([][]string, 0, len(infos))
				for _, info := range infos {
					rows = append(rows, []string{info.Name, info.Modified.Local().Format(time.DateTime), info.Path})
				}
				fmt.Fprintln(out, renderTable([]string{"Name", "Modified", "Path"}, rows, nil))
				return nil
			})
		},
	}
}

func newProjectFilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "files <project>",
		Short: "List image and script files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				files, err := st.ListProjectFiles(c, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, files)
				}
				rows := make([][]string, 0, len(files))
				for _, f := range files {
					rows = append(rows, []string{f.Path, f.Type, strconv.FormatInt(f.Size, 10)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Path", "Type", "Bytes"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newProjectCatCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <project> <path>",
		Short: "Print a project file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd, func(c context.Context, st *studio.Studio) error {
				content, err := st.ReadProjectFile(c, args[0], args[1])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, content)
				}
				fmt.Fprint(cmd.OutOrStdout(), content.Content)
				return nil
			})
		},
	}
}

func newProjectDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a project and all of its assets and builds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete %s without --force", args[0])
			}
			return ctx.withStudio(cmd, func(_ context.Context, st *studio.Studio) error {
				if err := st.Projects().Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")
	return cmd
}
