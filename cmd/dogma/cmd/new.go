package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dogma-project/dogma/cmd/dogma/internal/client"
)

func newNewCommand() *cobra.Command {
	var authorName string

	cmd := &cobra.Command{
		Use:   "new <project | project/repository>",
		Short: "Create a project or a repository within one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			ctx := cmd.Context()
			author := client.Author{Name: authorName}

			if project, repository, err := splitRepoRef(args[0]); err == nil {
				if err := c.CreateRepository(ctx, project, repository, author); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "created repository %s/%s\n", project, repository)

				return nil
			}

			if err := c.CreateProject(ctx, args[0], author); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created project %s\n", args[0])

			return nil
		},
	}

	cmd.Flags().StringVar(&authorName, "author", "anonymous", "author name recorded on the creating commit")

	return cmd
}
