// Command notewise is the entry point for the notewise note-answering
// service. It provides a CLI interface (via Cobra) and an HTTP server
// exposing the question, note, and search endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/calder-n/notewise/cmd/notewise/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
