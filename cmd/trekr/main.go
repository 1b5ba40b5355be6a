// ABOUTME: Trekr CLI entrypoint
// ABOUTME: Executes the root command and exits nonzero on failure

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
