// Package cmd wires the dogma CLI's subcommands together, following the
// same cobra-driven root-command shape components/mdz uses for the midaz
// CLI: persistent global flags on the root command, one subcommand per
// package-level NewCommand constructor.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dogma-project/dogma/cmd/dogma/internal/client"
)

// Exit codes per the CLI surface: 0 success, 1 usage error, 2 server error,
// 3 network error.
const (
	ExitOK         = 0
	ExitUsageError = 1
	ExitServerError = 2
	ExitNetworkError = 3
)

var (
	connectAddr string
	token       string
)

// NewRootCommand builds the dogma root command with every subcommand
// attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dogma",
		Short:         "dogma is the CLI client for a dogmad configuration-repository server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&connectAddr, "connect", "127.0.0.1:36462", "dogmad server address (host:port)")
	root.PersistentFlags().StringVar(&token, "token", "", "bearer token for the dogmad server")

	root.AddCommand(
		newLsCommand(),
		newNewCommand(),
		newPutCommand(),
		newEditCommand(),
		newGetCommand(),
		newCatCommand(),
		newRmCommand(),
		newWatchCommand(),
		newDiffCommand(),
		newLogCommand(),
		newNormalizeCommand(),
	)

	return root
}

func newClient() *client.Client {
	return client.New(connectAddr, token)
}

// Execute runs the root command and translates the returned error into one
// of the CLI's exit codes.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch err.(type) {
	case *client.NetworkError:
		return ExitNetworkError
	case *client.ServerError:
		return ExitServerError
	default:
		return ExitUsageError
	}
}
