// Command keeper is the command-line front end to the document store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/keeper/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "keeper:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
