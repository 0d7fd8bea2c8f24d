package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNormalizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <project/repository> <revision>",
		Short: "Resolve a revision expression against the repository's current HEAD",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, repository, err := splitRepoRef(args[0])
			if err != nil {
				return err
			}

			c := newClient()

			rev, err := c.NormalizeRevision(cmd.Context(), project, repository, args[1])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rev)

			return nil
		},
	}

	return cmd
}
