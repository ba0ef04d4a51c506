// Command pipemetrics runs the translator and dashboard generator outside
// Lambda: replaying events, rebuilding the dashboard on a schedule and
// generating demo data.
package main

import (
	"fmt"
	"os"
)

// Build-time variables
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
