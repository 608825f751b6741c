package main

import (
	"os"

	"github.com/ytarchive/ytarchive/internal/cli"
)

// main is the entry point to the program. Configuration is loaded from
// the users config directory (or --config) and merged with the environment
// before the requested command runs.
func main() {
	os.Exit(cli.Execute())
}
