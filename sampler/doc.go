// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sampler periodically collects connection statistics for
// traced sessions.
//
// Each session gets one goroutine driven by a clock ticker. A sample
// runs to completion in that goroutine before the next tick is read,
// so the samples of one session are never concurrent and are handed
// to the Sink in the order they were taken. Ticks that arrive while a
// slow sample is running are coalesced by the ticker. Sessions sample
// independently of one another.
//
// A failed sample is reported to the Sink and sampling continues.
package sampler
