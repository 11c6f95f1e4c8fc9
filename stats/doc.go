// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stats holds the statistics snapshot model and the per-session
// snapshot differ.
//
// A peer connection reports its statistics as a set of reports keyed
// by report id, each a flat map of metric name to value. Sampled every
// second, most metrics do not change between samples, so shipping full
// snapshots wastes almost all of the bandwidth. The Differ keeps the
// previous snapshot of every session and turns each new sample into a
// Patch:
//
//   - the first sample of a session is a full patch carrying the whole
//     snapshot;
//   - every later sample is a delta patch: the add, remove and replace
//     operations that transform the previous snapshot into the current
//     one, addressed by RFC 6901 JSON pointers (/reportId/metric).
//
// Apply is the collector-side inverse. For any two consecutive samples
// prev and cur of one session, Apply(delta, prev) equals cur.
//
// Per-report timestamps change on every sample and would defeat the
// diff; they are stripped before diffing and the trace frame carries a
// single timestamp instead.
//
// ModeFlat reproduces the legacy flat delta format (unchanged metrics
// omitted, empty reports dropped) for collectors that still parse it.
// It cannot express a metric or report disappearing, so new consumers
// should use the structural mode.
package stats
