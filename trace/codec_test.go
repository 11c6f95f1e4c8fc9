// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSONCodecWireShape(t *testing.T) {
	frame := NewFrame(EventOnSignalingStateChange, "PC_0", "stable", 1700000000123)

	data, err := JSONCodec{}.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `["onsignalingstatechange","PC_0","stable",1700000000123]`
	if string(data) != want {
		t.Errorf("wire = %s, want %s", data, want)
	}
}

func TestJSONCodecEmptySessionIsNull(t *testing.T) {
	frame := NewFrame(EventGetUserMedia, "", nil, 5)

	data, err := JSONCodec{}.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `["getUserMedia",null,null,5]` {
		t.Errorf("wire = %s", data)
	}

	decoded, err := JSONCodec{}.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.SessionID() != "" || decoded.Payload() != nil {
		t.Errorf("decoded = %+v, want empty session and nil payload", decoded)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	payload := map[string]any{
		"kind": "delta",
		"operations": []any{
			map[string]any{"op": "replace", "path": "/T/bytesSent", "value": "12"},
		},
	}
	frame := NewFrame(EventGetStats, "PC_1", payload, 42)

	for _, codec := range []Codec{JSONCodec{}, CBORCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := codec.Marshal(frame)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			decoded, err := codec.Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if decoded.EventName() != EventGetStats || decoded.SessionID() != "PC_1" || decoded.TimestampMillis() != 42 {
				t.Errorf("decoded header = %q/%q/%d", decoded.EventName(), decoded.SessionID(), decoded.TimestampMillis())
			}
			if diff := cmp.Diff(payload, decoded.Payload()); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONCodecRejectsWrongArity(t *testing.T) {
	if _, err := (JSONCodec{}).Unmarshal([]byte(`["a","b",null]`)); err == nil {
		t.Error("Unmarshal accepted a three-element frame")
	}
	if _, err := (JSONCodec{}).Unmarshal([]byte(`{"event":"a"}`)); err == nil {
		t.Error("Unmarshal accepted an object")
	}
}

func TestCodecByName(t *testing.T) {
	for name, binary := range map[string]bool{"": false, "json": false, "cbor": true} {
		codec, err := CodecByName(name)
		if err != nil {
			t.Fatalf("CodecByName(%q): %v", name, err)
		}
		if codec.Binary() != binary {
			t.Errorf("CodecByName(%q).Binary() = %v, want %v", name, codec.Binary(), binary)
		}
	}
	if _, err := CodecByName("protobuf"); err == nil {
		t.Error("CodecByName accepted an unknown codec")
	}
}
