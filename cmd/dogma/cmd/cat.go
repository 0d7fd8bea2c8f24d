package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCatCommand() *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:   "cat <project/repository> <path>",
		Short: "Print an entry's raw content to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, repository, err := splitRepoRef(args[0])
			if err != nil {
				return err
			}

			c := newClient()

			entry, err := c.Get(cmd.Context(), project, repository, revision, normalizePath(args[1]), "", "")
			if err != nil {
				return err
			}

			if entry == nil {
				return fmt.Errorf("no entry at %s in revision %s", args[1], revision)
			}

			_, err = os.Stdout.Write(entry.Content)

			return err
		},
	}

	cmd.Flags().StringVar(&revision, "revision", "head", "revision to read")

	return cmd
}
