package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/dynoscaler/internal/cmd"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// Exit codes
const (
	exitConfig  = 1 // invalid configuration, the loop never started
	exitFailure = 2 // any other failure
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.IsFatal(err) {
			fmt.Fprintln(os.Stderr, "Configuration error:", err)
			os.Exit(exitConfig)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitFailure)
	}
}
