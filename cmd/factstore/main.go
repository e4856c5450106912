// Command factstore validates fact specs, evaluates conditions, edits
// persisted facts, and runs scenario files.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/factstore/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands that report through the output formatter have already
		// printed; cobra argument errors have not.
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
