package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiffCommand() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "diff <project/repository> [path]",
		Short: "Show the change set between two revisions under a path",
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

			changes, err := c.Compare(cmd.Context(), project, repository, from, to, normalizePath(path))
			if err != nil {
				return err
			}

			for _, ch := range changes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ch.Type, ch.Path)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "-1", "starting revision")
	cmd.Flags().StringVar(&to, "to", "head", "ending revision")

	return cmd
}
