// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace defines the trace frame, the event-name vocabulary and
// the wire codecs.
//
// A frame is one observed event on one session:
//
//	[eventName, sessionId, payload, timestampMillis]
//
// The four-element array is the wire form in both codecs. JSON text
// frames are what existing collectors parse; CBOR binary frames carry
// the same array. An empty session id (events not bound to a peer
// connection, such as media capture calls) is encoded as null.
//
// Payloads reach the encoder already redacted. Encoder applies the
// arity rule of the instrumentation layer: no arguments become a nil
// payload, one argument is the payload itself, several arguments
// become a list.
package trace
