package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <project | project/repository>",
		Short: "Remove a project or a repository within one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			ctx := cmd.Context()

			if project, repository, err := splitRepoRef(args[0]); err == nil {
				if err := c.RemoveRepository(ctx, project, repository); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "removed repository %s/%s\n", project, repository)

				return nil
			}

			if err := c.RemoveProject(ctx, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed project %s\n", args[0])

			return nil
		},
	}

	return cmd
}
