package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dogma-project/dogma/cmd/dogma/internal/client"
)

func newPutCommand() *cobra.Command {
	var (
		baseRevision string
		summary      string
		author       string
		changeType   string
		forcePush    bool
	)

	cmd := &cobra.Command{
		Use:   "put <project/repository> <path> <file>",
		Short: "Upsert a file's content as a new commit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, repository, err := splitRepoRef(args[0])
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[2], err)
			}

			c := newClient()

			if summary == "" {
				summary = "put " + args[1]
			}

			result, err := c.Push(cmd.Context(), project, repository, client.PushRequest{
				BaseRevision: baseRevision,
				Summary:      summary,
				Author:       client.Author{Name: author},
				ForcePush:    forcePush,
				Changes: []client.Change{
					{Type: changeType, Path: normalizePath(args[1]), Content: content},
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "revision %d\n", result.Revision)

			return nil
		},
	}

	cmd.Flags().StringVar(&baseRevision, "base", "head", "base revision this commit is relative to")
	cmd.Flags().StringVar(&summary, "summary", "", "commit summary")
	cmd.Flags().StringVar(&author, "author", "anonymous", "commit author name")
	cmd.Flags().StringVar(&changeType, "type", "UPSERT_TEXT", "change type: UPSERT_TEXT, UPSERT_JSON, or UPSERT_YAML")
	cmd.Flags().BoolVar(&forcePush, "force", false, "push even while the executor is read-only")

	return cmd
}
