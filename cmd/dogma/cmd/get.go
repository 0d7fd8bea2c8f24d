package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCommand() *cobra.Command {
	var revision string
	var queryType, expression string

	cmd := &cobra.Command{
		Use:   "get <project/repository> <path>",
		Short: "Print an entry's metadata and content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, repository, err := splitRepoRef(args[0])
			if err != nil {
				return err
			}

			c := newClient()

			entry, err := c.Get(cmd.Context(), project, repository, revision, normalizePath(args[1]), queryType, expression)
			if err != nil {
				return err
			}

			if entry == nil {
				return fmt.Errorf("no entry at %s in revision %s", args[1], revision)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "path:     %s\nkind:     %s\nrevision: %d\ncontent:  %s\n",
				entry.Path, entry.Kind, entry.Revision, entry.Content)

			return nil
		},
	}

	cmd.Flags().StringVar(&revision, "revision", "head", "revision to read")
	cmd.Flags().StringVar(&queryType, "query-type", "", "query projection type, e.g. JSON_PATH")
	cmd.Flags().StringVar(&expression, "expression", "", "query expression, for --query-type")

	return cmd
}
