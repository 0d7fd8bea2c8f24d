package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/dogma-project/dogma/cmd/dogma/internal/client"
)

func newEditCommand() *cobra.Command {
	var summary, author string

	cmd := &cobra.Command{
		Use:   "edit <project/repository> <path>",
		Short: "Open an entry's current content in $EDITOR and push the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, repository, err := splitRepoRef(args[0])
			if err != nil {
				return err
			}

			path := normalizePath(args[1])

			c := newClient()
			ctx := cmd.Context()

			entry, err := c.Get(ctx, project, repository, "head", path, "", "")
			if err != nil {
				return err
			}

			var before []byte
			if entry != nil {
				before = entry.Content
			}

			edited, err := editInPlace(before)
			if err != nil {
				return err
			}

			if bytes.Equal(before, edited) {
				fmt.Fprintln(cmd.OutOrStdout(), "no changes")
				return nil
			}

			if summary == "" {
				summary = "edit " + path
			}

			result, err := c.Push(ctx, project, repository, client.PushRequest{
				BaseRevision: "head",
				Summary:      summary,
				Author:       client.Author{Name: author},
				Changes:      []client.Change{{Type: "UPSERT_TEXT", Path: path, Content: edited}},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "revision %d\n", result.Revision)

			return nil
		},
	}

	cmd.Flags().StringVar(&summary, "summary", "", "commit summary")
	cmd.Flags().StringVar(&author, "author", "anonymous", "commit author name")

	return cmd
}

// editInPlace writes content to a temp file, opens $EDITOR on it, and
// returns the file's content after the editor exits.
func editInPlace(content []byte) ([]byte, error) {
	tmp, err := os.CreateTemp("", "dogma-edit-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, err
	}

	if err := tmp.Close(); err != nil {
		return nil, err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	proc := exec.Command(editor, tmp.Name())
	proc.Stdin = os.Stdin
	proc.Stdout = os.Stdout
	proc.Stderr = os.Stderr

	if err := proc.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w", editor, err)
	}

	return os.ReadFile(tmp.Name())
}
