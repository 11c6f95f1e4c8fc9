// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

// Frame is one trace event ready for the wire. Frames are values:
// once built they are not modified, and the transport preserves the
// order in which they are handed to it.
type Frame struct {
	eventName       string
	sessionID       string
	payload         any
	timestampMillis int64
}

// NewFrame builds a frame from decoded wire fields. Producers use
// Encoder.Encode instead.
func NewFrame(eventName, sessionID string, payload any, timestampMillis int64) Frame {
	return Frame{
		eventName:       eventName,
		sessionID:       sessionID,
		payload:         payload,
		timestampMillis: timestampMillis,
	}
}

func (f Frame) EventName() string      { return f.eventName }
func (f Frame) SessionID() string      { return f.sessionID }
func (f Frame) Payload() any           { return f.payload }
func (f Frame) TimestampMillis() int64 { return f.timestampMillis }

// Tuple returns the wire array. An empty session id becomes nil.
func (f Frame) Tuple() []any {
	var sessionID any
	if f.sessionID != "" {
		sessionID = f.sessionID
	}
	return []any{f.eventName, sessionID, f.payload, f.timestampMillis}
}
