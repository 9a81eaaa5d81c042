package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/projreg/internal/project"
)

// Output formats accepted by list -o.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTOML  = "toml"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newListCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		Long: `List every registered project in insertion order.

Examples:
  # Show a table
  projreg list

  # Machine-readable output
  projreg list -o json
  projreg list -o yaml
  projreg list -o toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			switch format {
			case formatTable, formatJSON, formatYAML, formatTOML:
			default:
				return fmt.Errorf("unknown output format %q (want table, json, yaml or toml)", format)
			}

			ctx := cmd.Context()
			a, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(ctx, &err)

			return writeProjects(cmd.OutOrStdout(), format, a.svc.List(ctx))
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json, yaml, toml")
	return cmd
}

// projectList wraps the listing for formats that need a top-level table.
type projectList struct {
	Projects []project.Project `toml:"projects" yaml:"projects"`
}

func writeProjects(w io.Writer, format string, projects []project.Project) error {
	if projects == nil {
		projects = []project.Project{}
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(projects)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(projectList{Projects: projects}); err != nil {
			return err
		}
		return enc.Close()
	case formatTOML:
		return toml.NewEncoder(w).Encode(projectList{Projects: projects})
	default:
		if len(projects) == 0 {
			_, err := fmt.Fprintln(w, "No projects yet.")
			return err
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("NAME", "SOURCE SCHEMAS", "TARGET SCHEMA").
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		for _, p := range projects {
			t.Row(p.Name, strconv.Itoa(p.SourceSchemaCount), p.TargetSchema)
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err
	}
}
