package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dogma-project/dogma/cmd/dogma/internal/client"
)

func newWatchCommand() *cobra.Command {
	var lastKnown string
	var waitSeconds int

	cmd := &cobra.Command{
		Use:   "watch <project/repository> <path>",
		Short: "Block until path changes, then print the new entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, repository, err := splitRepoRef(args[0])
			if err != nil {
				return err
			}

			c := newClient()

			entry, err := c.Watch(cmd.Context(), project, repository, lastKnown, normalizePath(args[1]), waitSeconds)
			if err == client.ErrNotModified {
				fmt.Fprintln(cmd.OutOrStdout(), "timed out, no new revision")
				return nil
			}

			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "revision %d\ncontent: %s\n", entry.Revision, entry.Content)

			return nil
		},
	}

	cmd.Flags().StringVar(&lastKnown, "revision", "head", "last known revision; the call blocks for changes after it")
	cmd.Flags().IntVar(&waitSeconds, "wait", 30, "maximum seconds to hold the request open")

	return cmd
}
