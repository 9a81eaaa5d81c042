package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/projreg/internal/project"
)

func newCreateCmd(opts *globalOptions) *cobra.Command {
	var name, sources, target string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new project",
		Long: `Register a new project and save the registry.

Examples:
  projreg create --name Alpha --sources 3 --target json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			in, err := project.ParseInput(name, sources, target)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(ctx, &err)

			p, err := a.svc.Create(ctx, in.Name, in.SourceSchemaCount, in.TargetSchema)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Project %q created.\n", p.Name)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&sources, "sources", "", "number of source schemas")
	cmd.Flags().StringVar(&target, "target", "", "target schema")
	return cmd
}

func newUpdateCmd(opts *globalOptions) *cobra.Command {
	var name, sources, target string

	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Change a registered project",
		Long: `Change the fields of a registered project. Fields without a flag keep
their current value. Renaming keeps the project's position in the list.

Examples:
  projreg update Alpha --sources 4
  projreg update Alpha --name Gamma --target csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			a, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(ctx, &err)

			current, err := a.svc.Get(ctx, args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if !flags.Changed("name") {
				name = current.Name
			}
			if !flags.Changed("sources") {
				sources = strconv.Itoa(current.SourceSchemaCount)
			}
			if !flags.Changed("target") {
				target = current.TargetSchema
			}

			in, err := project.ParseInput(name, sources, target)
			if err != nil {
				return err
			}
			p, err := a.svc.Update(ctx, current.Name, in.Project())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Project %q updated.\n", p.Name)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new project name")
	cmd.Flags().StringVar(&sources, "sources", "", "new number of source schemas")
	cmd.Flags().StringVar(&target, "target", "", "new target schema")
	return cmd
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a registered project",
		Long: `Remove a project from the registry and save it.

Examples:
  projreg delete Alpha`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			a, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(ctx, &err)

			p, err := a.svc.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Project %q deleted.\n", p.Name)
			return err
		},
	}
}
