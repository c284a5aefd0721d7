package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Benchmark completed (and met any accuracy threshold)
	ExitBelowTarget = 1 // Benchmark ran, but accuracy fell below --fail-under
	ExitError       = 2 // Configuration or runtime error
)

// ThresholdError indicates that the benchmark ran to completion, but the
// measured accuracy fell below the threshold the caller asked for.
type ThresholdError struct {
	Message string
}

func (e *ThresholdError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var thresholdErr *ThresholdError
		if errors.As(err, &thresholdErr) {
			os.Exit(ExitBelowTarget)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
