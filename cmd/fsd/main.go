// Command fsd drives the frontend compiler's batch and resident modes.
package main

import (
	"fmt"
	"os"

	"github.com/flutter-tools/fsd/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
