// Command jackc compiles Jack source files to Hack VM code.
package main

import (
	"fmt"
	"os"

	"github.com/kirkdrichardson/jackc/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if cmd.IsUsageError(err) {
		return 2
	}
	return 1
}
