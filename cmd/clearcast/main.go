// Command clearcast is the entry point for the verification service and
// its one-shot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/clearcast/clearcast/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
