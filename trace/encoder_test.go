// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/rtctrace/lib/clock"
)

func TestEncodeStampsWallClockMillis(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 250*int(time.Millisecond), time.UTC)
	encoder := NewEncoder(clock.Fake(now))

	frame := encoder.Encode(EventClose, "PC_3")

	if frame.EventName() != EventClose || frame.SessionID() != "PC_3" {
		t.Errorf("frame = %q/%q, want close/PC_3", frame.EventName(), frame.SessionID())
	}
	if frame.TimestampMillis() != now.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", frame.TimestampMillis(), now.UnixMilli())
	}
}

func TestCollapseArity(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want any
	}{
		{"no arguments", nil, nil},
		{"single scalar", []any{"stable"}, "stable"},
		{"single list stays unwrapped", []any{[]any{1, 2}}, []any{1, 2}},
		{"single object", []any{map[string]any{"sdp": "v=0"}}, map[string]any{"sdp": "v=0"}},
		{"two arguments", []any{"a", 1}, []any{"a", 1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if diff := cmp.Diff(test.want, Collapse(test.args)); diff != "" {
				t.Errorf("Collapse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCollapseCopiesArguments(t *testing.T) {
	args := []any{"a", "b"}
	collapsed := Collapse(args).([]any)
	args[0] = "changed"
	if collapsed[0] != "a" {
		t.Error("Collapse result aliases the argument slice")
	}
}

func TestIsStatistics(t *testing.T) {
	for _, name := range []string{EventGetStats, EventGetStatsLegacy} {
		if !IsStatistics(name) {
			t.Errorf("IsStatistics(%q) = false", name)
		}
	}
	for _, name := range []string{EventGetStatsFailure, EventCreate, ""} {
		if IsStatistics(name) {
			t.Errorf("IsStatistics(%q) = true", name)
		}
	}
}
