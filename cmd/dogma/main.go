// Command dogma is the command-line client for a dogmad server: ls, new,
// put, edit, get, cat, rm, watch, diff, log, and normalize, per §6's
// illustrative CLI surface.
package main

import "github.com/dogma-project/dogma/cmd/dogma/cmd"

func main() {
	cmd.Execute()
}
