// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import "github.com/bureau-foundation/rtctrace/lib/clock"

// Encoder stamps frames with wall-clock time.
type Encoder struct {
	clock clock.Clock
}

// NewEncoder creates an Encoder reading time from clk.
func NewEncoder(clk clock.Clock) *Encoder {
	return &Encoder{clock: clk}
}

// Encode builds a frame for an observed call or event. args are the
// already-redacted call arguments; see Collapse for the arity rule.
func (e *Encoder) Encode(eventName, sessionID string, args ...any) Frame {
	return Frame{
		eventName:       eventName,
		sessionID:       sessionID,
		payload:         Collapse(args),
		timestampMillis: e.clock.Now().UnixMilli(),
	}
}

// Collapse canonicalizes argument arity: no arguments is nil, a single
// argument is returned as is (not wrapped), several arguments are
// returned as a list. Collectors depend on this exact shape.
func Collapse(args []any) any {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	default:
		out := make([]any, len(args))
		copy(out, args)
		return out
	}
}
