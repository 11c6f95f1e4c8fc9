// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run(), where the logger may not exist yet.
func Fatal(err error) {
	WriteError(os.Stderr, err)
	os.Exit(1)
}

// WriteError writes err in the form Fatal reports it.
func WriteError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

// Run calls run and exits through Fatal if it fails.
func Run(run func() error) {
	if err := run(); err != nil {
		Fatal(err)
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. A
// second signal after stop is called terminates the process as usual.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
