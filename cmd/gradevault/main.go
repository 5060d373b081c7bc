package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Signal-driven shutdown of the daemon is a clean exit path,
		// not an error worth printing.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "gradevault: %v\n", err)
		}
		os.Exit(1)
	}
}
