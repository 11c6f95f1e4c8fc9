// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// rtctrace-replay reads a dump file and prints one JSON line per
// frame. Statistics frames are expanded: the patches of each session
// are applied in order and the line carries the reconstructed
// snapshot instead of the patch.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/rtctrace/lib/process"
	"github.com/bureau-foundation/rtctrace/lib/version"
	"github.com/bureau-foundation/rtctrace/transport"
)

func main() {
	process.Run(run)
}

func run() error {
	var options replayOptions
	var force bool

	flagSet := pflag.NewFlagSet("rtctrace-replay", pflag.ContinueOnError)
	flagSet.StringVar(&options.session, "session", "", "only print frames of this session (global frames are always printed)")
	flagSet.BoolVar(&options.patches, "patches", false, "print statistics patches as recorded instead of reconstructed snapshots")
	flagSet.BoolVar(&force, "force", false, "replay a dump whose digest does not match")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("rtctrace-replay")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	args := flagSet.Args()
	if len(args) != 1 {
		printHelp(flagSet)
		return fmt.Errorf("expected exactly one dump file")
	}

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	dump, readErr := transport.ReadDump(file)
	switch {
	case readErr == nil:
	case dump == nil:
		return readErr
	case errors.Is(readErr, transport.ErrDigest) && !force:
		return fmt.Errorf("%s: %w (use --force to replay anyway)", args[0], readErr)
	default:
		// A truncated dump still replays the frames before the cut.
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", args[0], readErr)
	}

	summary, err := replay(dump, os.Stdout, options)
	fmt.Fprintf(os.Stderr, "%d frames, %d statistics samples, %d sessions, %d errors\n",
		summary.Frames, summary.Statistics, summary.Sessions, summary.Errors)
	if err != nil {
		return err
	}
	if summary.Errors > 0 {
		return fmt.Errorf("%d frames could not be replayed", summary.Errors)
	}
	if readErr != nil && errors.Is(readErr, io.ErrUnexpectedEOF) {
		return readErr
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `rtctrace-replay prints the frames of a dump as JSON lines.

Usage:
  rtctrace-replay [flags] <dump>

Examples:
  # Print every frame, statistics as full snapshots
  rtctrace-replay probe.dump

  # Follow one connection's statistics as recorded
  rtctrace-replay --session PC_0 --patches probe.dump | jq .

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
