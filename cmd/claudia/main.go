// Command claudia is the CLI entry point for the coordination core: task
// and session management backed by either a local Store or a running
// Coordinator, selected automatically per §4.5.
package main

import (
	"fmt"
	"os"

	"github.com/claudia-coord/claudia/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "claudia:", err)
		os.Exit(1)
	}
}
