package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes.
const (
	ExitSuccess = 0
	ExitError   = 1 // runtime or configuration error
	ExitUsage   = 2 // invalid flags or ratings
)

// usageError marks failures caused by the command line rather than the server.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var uerr *usageError
		if errors.As(err, &uerr) {
			os.Exit(ExitUsage)
		}
		os.Exit(ExitError)
	}
}
