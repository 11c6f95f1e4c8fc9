// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// rtctrace-probe traces a pair of loopback peer connections. It is a
// smoke test for a collector deployment and a source of sample dumps:
// both connections are instrumented, negotiate a data channel with
// each other over the local network stack, exchange messages for
// --duration and close. Every call, event and statistics sample is
// traced to the collector (--endpoint) or to a dump file (--dump).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/rtctrace/lib/clock"
	"github.com/bureau-foundation/rtctrace/lib/config"
	"github.com/bureau-foundation/rtctrace/lib/process"
	"github.com/bureau-foundation/rtctrace/lib/version"
	"github.com/bureau-foundation/rtctrace/sampler"
	"github.com/bureau-foundation/rtctrace/stats"
	"github.com/bureau-foundation/rtctrace/trace"
	"github.com/bureau-foundation/rtctrace/tracer"
	"github.com/bureau-foundation/rtctrace/transport"
)

// flushTimeout bounds how long the probe waits for queued frames to
// reach the collector before exiting.
const flushTimeout = 10 * time.Second

func main() {
	process.Run(run)
}

func run() error {
	var configPath string
	var duration time.Duration

	flagSet := pflag.NewFlagSet("rtctrace-probe", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to rtctrace.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.String("endpoint", "", "collector WebSocket URL, e.g. wss://collector.example.org")
	flagSet.String("path", "", "path appended to the collector URL")
	flagSet.String("codec", "", "frame codec: json or cbor")
	flagSet.String("dump", "", "write frames to this dump file instead of a collector")
	flagSet.String("compression", "", "dump compression: none, lz4 or zstd")
	flagSet.Duration("interval", 0, "statistics sampling interval")
	flagSet.String("diff-mode", "", "statistics diff mode: structural or flat")
	flagSet.String("ice-config", "", "JSONC file with iceServers for the probe connections")
	flagSet.DurationVar(&duration, "duration", 10*time.Second, "how long to keep the connections open")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("rtctrace-probe")
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
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, flagSet); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := process.SignalContext(context.Background())
	defer stop()

	return probe(ctx, cfg, duration)
}

// loadConfig loads the file named by --config or RTCTRACE_CONFIG. With
// neither, the defaults are used and flags must name a destination.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.EnvironmentVariable) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// applyFlags overrides configuration values with the flags given on
// the command line.
func applyFlags(cfg *config.Config, flagSet *pflag.FlagSet) error {
	stringFlags := map[string]*string{
		"endpoint":    &cfg.Collector.Endpoint,
		"path":        &cfg.Collector.Path,
		"codec":       &cfg.Collector.Codec,
		"dump":        &cfg.Dump.Path,
		"compression": &cfg.Dump.Compression,
		"diff-mode":   &cfg.Sampling.DiffMode,
		"ice-config":  &cfg.ICE.ConfigFile,
	}
	for name, target := range stringFlags {
		if !flagSet.Changed(name) {
			continue
		}
		value, err := flagSet.GetString(name)
		if err != nil {
			return err
		}
		*target = value
	}
	if flagSet.Changed("interval") {
		interval, err := flagSet.GetDuration("interval")
		if err != nil {
			return err
		}
		cfg.Sampling.Interval = interval.String()
	}
	// A dump given on the command line replaces the configured
	// collector.
	if flagSet.Changed("dump") && !flagSet.Changed("endpoint") {
		cfg.Collector.Endpoint = ""
	}
	return nil
}

func probe(ctx context.Context, cfg *config.Config, duration time.Duration) error {
	logger := cfg.NewLogger(os.Stderr)
	clk := clock.Real()

	codec, err := trace.CodecByName(cfg.Collector.Codec)
	if err != nil {
		return err
	}
	diffMode, err := stats.ParseMode(cfg.Sampling.DiffMode)
	if err != nil {
		return err
	}

	frames := transport.New(codec, logger, transport.Options{
		MaxQueuedFrames: cfg.Collector.MaxQueuedFrames,
	})
	transportCtx, cancelTransport := context.WithCancel(context.Background())
	defer cancelTransport()
	writerDone := make(chan struct{})
	go func() {
		frames.Run(transportCtx)
		close(writerDone)
	}()

	connectorDone := make(chan struct{})
	if cfg.Collector.Endpoint != "" {
		dial := func(ctx context.Context) (transport.LiveChannel, error) {
			return transport.DialWebSocket(ctx, cfg.Collector.Endpoint, cfg.Collector.Path, nil)
		}
		connector := transport.NewConnector(frames, dial, clk, logger)
		connector.Reconnect = cfg.Collector.Reconnect
		go func() {
			defer close(connectorDone)
			if err := connector.Run(transportCtx); err != nil {
				logger.Error("collector connection failed", "endpoint", cfg.Collector.Endpoint, "error", err)
			}
		}()
	} else {
		close(connectorDone)
		compression, err := transport.ParseCompression(cfg.Dump.Compression)
		if err != nil {
			return err
		}
		dump, err := transport.CreateDump(cfg.Dump.Path, compression, codec.Binary())
		if err != nil {
			return err
		}
		if err := frames.Open(dump); err != nil {
			return err
		}
	}

	traces := tracer.New(frames, tracer.Options{Clock: clk, Logger: logger, DiffMode: diffMode})
	samples := sampler.New(traces, clk, logger)
	defer samples.StopAll()

	iceConfig, err := iceConfiguration(cfg.ICE.ConfigFile)
	if err != nil {
		return err
	}

	logger.Info("probe starting",
		"version", version.Info(),
		"endpoint", cfg.Collector.Endpoint,
		"dump", cfg.Dump.Path,
		"codec", codec.Name(),
		"duration", duration,
	)
	loopErr := runLoopback(ctx, loopbackOptions{
		tracer:           traces,
		sampler:          samples,
		clock:            clk,
		configuration:    iceConfig,
		samplingInterval: cfg.SamplingInterval(),
		duration:         duration,
		logger:           logger,
	})

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), flushTimeout)
	defer cancelFlush()
	if err := frames.Flush(flushCtx); err != nil && !errors.Is(err, transport.ErrClosed) {
		logger.Warn("frames not delivered before exit", "queued", frames.Len(), "error", err)
	}
	closeErr := frames.Close()
	cancelTransport()
	<-writerDone
	<-connectorDone

	logger.Info("probe finished", "sent", frames.Sent(), "dropped", frames.Dropped())
	return errors.Join(loopErr, closeErr)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `rtctrace-probe traces two loopback peer connections.

Configuration comes from --config (or $%s); flags override it.
Frames go to --endpoint, or to --dump when no collector is given.

Usage:
  rtctrace-probe [flags]

Examples:
  # Trace to a local collector for 30 seconds
  rtctrace-probe --endpoint ws://localhost:3000 --path /probe --duration 30s

  # Write a CBOR dump for rtctrace-replay
  rtctrace-probe --dump probe.dump --codec cbor --interval 500ms

Flags:
`, config.EnvironmentVariable)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
