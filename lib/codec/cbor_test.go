// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{
		"zeta":  1,
		"alpha": "x",
		"mid":   []any{true, nil},
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestUnmarshalUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{
		"RTCIceCandidate_abc": map[string]any{"port": 443},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	inner, ok := outer["RTCIceCandidate_abc"].(map[string]any)
	if !ok {
		t.Fatalf("inner %T, want map[string]any", outer["RTCIceCandidate_abc"])
	}
	if inner["port"] != int64(443) {
		t.Errorf("port = %#v, want int64(443)", inner["port"])
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal([]any{"getstats", "PC_0"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"getstats"`) {
		t.Errorf("diagnostic %q does not mention the event name", diagnostic)
	}
}
