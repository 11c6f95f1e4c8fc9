// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/rtctrace/lib/codec"
)

// Codec converts frames to and from wire messages.
type Codec interface {
	Marshal(frame Frame) ([]byte, error)
	Unmarshal(data []byte) (Frame, error)

	// Binary reports whether messages are binary (true) or text.
	Binary() bool

	// Name is the configuration name of the codec.
	Name() string
}

// CodecByName returns the codec configured as name: "json" (the
// default when name is empty) or "cbor".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown frame codec %q (want json or cbor)", name)
	}
}

// JSONCodec encodes frames as JSON text arrays.
type JSONCodec struct{}

func (JSONCodec) Binary() bool { return false }
func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(frame Frame) ([]byte, error) {
	data, err := json.Marshal(frame.Tuple())
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", frame.eventName, err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte) (Frame, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	if len(fields) != 4 {
		return Frame{}, fmt.Errorf("decoding frame: got %d fields, want 4", len(fields))
	}

	var frame Frame
	if err := json.Unmarshal(fields[0], &frame.eventName); err != nil {
		return Frame{}, fmt.Errorf("decoding frame event name: %w", err)
	}
	var sessionID *string
	if err := json.Unmarshal(fields[1], &sessionID); err != nil {
		return Frame{}, fmt.Errorf("decoding frame session id: %w", err)
	}
	if sessionID != nil {
		frame.sessionID = *sessionID
	}
	if err := json.Unmarshal(fields[2], &frame.payload); err != nil {
		return Frame{}, fmt.Errorf("decoding frame payload: %w", err)
	}
	if err := json.Unmarshal(fields[3], &frame.timestampMillis); err != nil {
		return Frame{}, fmt.Errorf("decoding frame timestamp: %w", err)
	}
	return frame, nil
}

// CBORCodec encodes frames as CBOR arrays through lib/codec.
type CBORCodec struct{}

// cborFrame is the CBOR wire layout: a four-element array.
type cborFrame struct {
	_               struct{} `cbor:",toarray"`
	EventName       string
	SessionID       *string
	Payload         any
	TimestampMillis int64
}

func (CBORCodec) Binary() bool { return true }
func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Marshal(frame Frame) ([]byte, error) {
	wire := cborFrame{
		EventName:       frame.eventName,
		Payload:         frame.payload,
		TimestampMillis: frame.timestampMillis,
	}
	if frame.sessionID != "" {
		sessionID := frame.sessionID
		wire.SessionID = &sessionID
	}
	data, err := codec.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", frame.eventName, err)
	}
	return data, nil
}

func (CBORCodec) Unmarshal(data []byte) (Frame, error) {
	var wire cborFrame
	if err := codec.Unmarshal(data, &wire); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	frame := Frame{
		eventName:       wire.EventName,
		payload:         wire.Payload,
		timestampMillis: wire.TimestampMillis,
	}
	if wire.SessionID != nil {
		frame.sessionID = *wire.SessionID
	}
	return frame, nil
}
