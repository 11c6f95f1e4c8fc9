// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport delivers encoded trace frames, in order, over a
// channel that may not exist yet when the first frames are produced.
//
// A Transport starts Pending: frames are encoded and queued. Open
// attaches a Channel and the writer goroutine (Run) drains the queue in
// FIFO order; frames sent while the drain is in progress are appended
// behind it, so queued and new frames never interleave. A failed write
// puts the frame back at the head of the queue and returns the
// transport to Pending until the next Open. Close is terminal: later
// sends are dropped without error.
//
// The queue is unbounded by default. Options.MaxQueuedFrames bounds it
// by dropping the oldest frames, trading old telemetry for memory
// during a long collector outage.
//
// Channels:
//
//   - WebSocketChannel: the collector connection, sub-protocol "1.0".
//   - DumpChannel: a local file of length-prefixed frames, compressed
//     with lz4 or zstd and sealed with a BLAKE3 digest. ReadDump reads
//     it back.
//
// Connector dials the collector, opens the transport on success and
// re-dials with exponential backoff when the connection drops.
package transport
