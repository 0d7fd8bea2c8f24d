package cmd

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newLsCommand() *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:   "ls [project | project/repository] [path]",
		Short: "List projects, repositories, or the tree under a path",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			ctx := cmd.Context()

			if len(args) == 0 {
				projects, err := c.ListProjects(ctx, false)
				if err != nil {
					return err
				}

				table := pterm.TableData{{"NAME", "STATUS", "CREATED BY", "CREATED AT"}}
				for _, p := range projects {
					table = append(table, []string{p.Name, p.Status, p.CreatedBy, p.CreatedAt})
				}

				return pterm.DefaultTable.WithHasHeader().WithData(table).WithWriter(cmd.OutOrStdout()).Render()
			}

			project, repository, err := splitRepoRef(args[0])
			if err != nil {
				repos, lerr := c.ListRepositories(ctx, args[0])
				if lerr != nil {
					return lerr
				}

				table := pterm.TableData{{"NAME", "STATUS", "ENCRYPTED", "CREATED BY"}}
				for _, r := range repos {
					table = append(table, []string{r.Name, r.Status, boolStr(r.Encrypted), r.CreatedBy})
				}

				return pterm.DefaultTable.WithHasHeader().WithData(table).WithWriter(cmd.OutOrStdout()).Render()
			}

			path := "/"
			if len(args) == 2 {
				path = args[1]
			}

			entries, err := c.List(ctx, project, repository, revision, normalizePath(path))
			if err != nil {
				return err
			}

			table := pterm.TableData{{"PATH", "KIND", "REVISION"}}
			for _, e := range entries {
				table = append(table, []string{e.Path, e.Kind, strconv.Itoa(int(e.Revision))})
			}

			return pterm.DefaultTable.WithHasHeader().WithData(table).WithWriter(cmd.OutOrStdout()).Render()
		},
	}

	cmd.Flags().StringVar(&revision, "revision", "head", "revision to list (\"head\", \"-N\", or an absolute number)")

	return cmd
}

func boolStr(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
