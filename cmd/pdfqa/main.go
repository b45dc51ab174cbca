// Command pdfqa is the entry point for the PDF question-answering tool.
// It provides a CLI interface (via Cobra) and an optional HTTP server for
// interactive use.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/pdfqa-go/cmd/pdfqa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
