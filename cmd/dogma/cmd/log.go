package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newLogCommand() *cobra.Command {
	var from, to string
	var maxCommits int

	cmd := &cobra.Command{
		Use:   "log <project/repository> [path]",
		Short: "List commits affecting a path between two revisions",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, repository, err := splitRepoRef(args[0])
			if err != nil {
				return err
			}

			path := "/"
			if len(args) == 2 {
				path = args[1]
			}

			c := newClient()

			commits, err := c.History(cmd.Context(), project, repository, from, to, normalizePath(path), maxCommits)
			if err != nil {
				return err
			}

			table := pterm.TableData{{"REVISION", "AUTHOR", "TIMESTAMP", "SUMMARY"}}
			for _, cm := range commits {
				table = append(table, []string{itoa32(cm.Revision), cm.Author.Name, cm.Ts, cm.Summary})
			}

			return pterm.DefaultTable.WithHasHeader().WithData(table).WithWriter(cmd.OutOrStdout()).Render()
		},
	}

	cmd.Flags().StringVar(&from, "from", "head", "starting revision")
	cmd.Flags().StringVar(&to, "to", "-1", "ending revision")
	cmd.Flags().IntVar(&maxCommits, "max", 0, "maximum number of commits to return, 0 for unbounded")

	return cmd
}
