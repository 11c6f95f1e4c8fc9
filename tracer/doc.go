// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracer is the trace pipeline. Every observed call, event or
// statistics sample passes through the same steps:
//
//  1. the call arguments are collapsed to one payload (see
//     trace.Collapse),
//  2. obfuscate.Dispatch redacts network addresses according to the
//     event name,
//  3. statistics payloads are replaced by the session's patch from
//     stats.Differ,
//  4. trace.Encoder stamps the frame, and
//  5. the Sender (normally a transport.Transport) queues it.
//
// A Tracer also hands out session ids and forgets a session's diff
// state when the session ends.
package tracer
