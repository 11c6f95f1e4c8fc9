// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/rtctrace/stats"
	"github.com/bureau-foundation/rtctrace/trace"
)

type typedCandidate struct {
	line string
	mid  string
}

func (c typedCandidate) CandidateLine() string { return c.line }
func (c typedCandidate) WithCandidateLine(line string) any {
	c.line = line
	return c
}

const hostCandidate = "candidate:1 1 udp 2122260223 192.168.1.5 54321 typ host"

func TestDispatchCandidateEvents(t *testing.T) {
	for _, event := range []string{trace.EventAddIceCandidate, trace.EventOnIceCandidate} {
		payload := map[string]any{"candidate": hostCandidate, "sdpMid": "0"}

		got, err := Dispatch(event, payload)
		if err != nil {
			t.Fatalf("%s: %v", event, err)
		}
		want := map[string]any{
			"candidate": "candidate:1 1 udp 2122260223 192.168.1.x 54321 typ host",
			"sdpMid":    "0",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", event, diff)
		}
		if payload["candidate"] != hostCandidate {
			t.Errorf("%s: caller payload modified", event)
		}
	}
}

func TestDispatchTypedCandidate(t *testing.T) {
	got, err := Dispatch(trace.EventOnIceCandidate, typedCandidate{line: hostCandidate, mid: "0"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	typed, ok := got.(typedCandidate)
	if !ok {
		t.Fatalf("Dispatch returned %T, want typedCandidate", got)
	}
	if typed.line != "candidate:1 1 udp 2122260223 192.168.1.x 54321 typ host" || typed.mid != "0" {
		t.Errorf("got %+v", typed)
	}
}

func TestDispatchMalformedCandidate(t *testing.T) {
	_, err := Dispatch(trace.EventAddIceCandidate, map[string]any{"candidate": "candidate:broken"})
	if !errors.Is(err, ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}
}

func TestDispatchEndOfCandidatesIsNoop(t *testing.T) {
	payload := map[string]any{"candidate": ""}
	got, err := Dispatch(trace.EventOnIceCandidate, payload)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchDescriptionEvents(t *testing.T) {
	events := []string{
		trace.EventSetLocalDescription,
		trace.EventSetRemoteDescription,
		trace.EventCreateOfferOnSuccess,
		trace.EventCreateAnswerOnSuccess,
	}
	for _, event := range events {
		got, err := Dispatch(event, map[string]any{"type": "offer", "sdp": "v=0\nc=IN IP4 10.0.0.1\n"})
		if err != nil {
			t.Fatalf("%s: %v", event, err)
		}
		want := map[string]any{"type": "offer", "sdp": "v=0\r\nc=IN IP4 0.0.0.0\r\n"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", event, diff)
		}
	}
}

func TestDispatchStatistics(t *testing.T) {
	snapshot := stats.Snapshot{"c": stats.Report{"ipAddress": "10.0.0.5", "candidateType": "host"}}

	got, err := Dispatch(trace.EventGetStats, snapshot)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := stats.Snapshot{"c": stats.Report{"ipAddress": "10.0.0.x", "candidateType": "host"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if snapshot["c"]["ipAddress"] != "10.0.0.5" {
		t.Error("caller snapshot modified")
	}

	raw := map[string]any{
		"c":         map[string]any{"ipAddress": "10.0.0.5"},
		"timestamp": 12.0,
	}
	got, err = Dispatch(trace.EventGetStatsLegacy, raw)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	wantRaw := map[string]any{
		"c":         map[string]any{"ipAddress": "10.0.0.x"},
		"timestamp": 12.0,
	}
	if diff := cmp.Diff(wantRaw, got); diff != "" {
		t.Errorf("raw mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchUnknownEventIsNoop(t *testing.T) {
	payload := map[string]any{"candidate": hostCandidate, "sdp": "c=IN IP4 10.0.0.1"}
	for _, event := range []string{"ontrack", "", "createDataChannel"} {
		got, err := Dispatch(event, payload)
		if err != nil {
			t.Fatalf("%q: %v", event, err)
		}
		if diff := cmp.Diff(payload, got); diff != "" {
			t.Errorf("%q changed the payload (-want +got):\n%s", event, diff)
		}
	}
	if got, err := Dispatch(trace.EventGetStats, nil); got != nil || err != nil {
		t.Errorf("nil payload = %v, %v", got, err)
	}
}
