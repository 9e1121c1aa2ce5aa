// Package main is the entry point for the notefeed-tail CLI.
package main

import (
	"fmt"
	"os"

	"github.com/tbraaten/notefeed/internal/tailtui"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var _ = []string{commit, date}

func main() {
	if err := tailtui.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
