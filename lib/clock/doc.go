// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the trace
// pipeline.
//
// Frame timestamps, per-session sampling tickers and the reconnect
// backoff in the transport all read time through a Clock. Production
// code uses Real(); tests use Fake() and advance time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	s := sampler.New(sink, c, logger)
//	s.Start(ctx, "PC_0", source, time.Second)
//	c.WaitForTimers(1)    // the session goroutine registered its ticker
//	c.Advance(time.Second) // one sample fires
package clock
