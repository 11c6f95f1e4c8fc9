// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/rtctrace/obfuscate"
	"github.com/bureau-foundation/rtctrace/trace"
)

func TestSanitizeNilConfiguration(t *testing.T) {
	got := SanitizeConfiguration(nil)
	if got["nullConfig"] != true {
		t.Fatalf("nil configuration = %v, want nullConfig", got)
	}
}

func TestSanitizeStripsEveryCredential(t *testing.T) {
	config := &webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.example.org"}},
			{URLs: []string{"turn:a.example.org", "turns:a.example.org"}, Username: "u1", Credential: "p1"},
			{URLs: []string{"turn:b.example.org"}, Username: "u2", Credential: "p2"},
		},
		ICECandidatePoolSize: 2,
	}
	got := SanitizeConfiguration(config)

	servers := got["iceServers"].([]any)
	if len(servers) != 3 {
		t.Fatalf("got %d servers, want 3", len(servers))
	}
	for i, server := range servers {
		if _, ok := server.(map[string]any)["credential"]; ok {
			t.Errorf("server %d carries a credential", i)
		}
	}
	wantSecond := map[string]any{
		"urls":     []any{"turn:a.example.org", "turns:a.example.org"},
		"username": "u1",
	}
	if diff := cmp.Diff(wantSecond, servers[1]); diff != "" {
		t.Errorf("second server mismatch (-want +got):\n%s", diff)
	}
	if got["iceCandidatePoolSize"] != 2 {
		t.Errorf("iceCandidatePoolSize = %v, want 2", got["iceCandidatePoolSize"])
	}
	if got["browserType"] != BrowserType {
		t.Errorf("browserType = %v, want %s", got["browserType"], BrowserType)
	}
}

func TestParseICEConfig(t *testing.T) {
	config, err := ParseICEConfig([]byte(`{
		// public STUN
		"iceServers": [
			{"urls": "stun:stun.example.org:3478"},
			/* relay */
			{"urls": ["turn:turn.example.org"], "username": "u", "credential": "p"},
		],
		"iceTransportPolicy": "relay",
	}`))
	if err != nil {
		t.Fatalf("ParseICEConfig: %v", err)
	}
	if len(config.ICEServers) != 2 {
		t.Fatalf("got %d servers, want 2", len(config.ICEServers))
	}
	if diff := cmp.Diff([]string{"stun:stun.example.org:3478"}, config.ICEServers[0].URLs); diff != "" {
		t.Errorf("first server urls mismatch (-want +got):\n%s", diff)
	}
	if config.ICEServers[1].Username != "u" || config.ICEServers[1].Credential != "p" {
		t.Errorf("second server = %+v", config.ICEServers[1])
	}
	if config.ICETransportPolicy != webrtc.ICETransportPolicyRelay {
		t.Errorf("policy = %v, want relay", config.ICETransportPolicy)
	}
}

func TestParseICEConfigErrors(t *testing.T) {
	for name, input := range map[string]string{
		"not json":       `iceServers: []`,
		"no urls":        `{"iceServers": [{"username": "u"}]}`,
		"bad urls":       `{"iceServers": [{"urls": 3}]}`,
		"unknown policy": `{"iceTransportPolicy": "direct"}`,
	} {
		if _, err := ParseICEConfig([]byte(input)); err == nil {
			t.Errorf("%s: ParseICEConfig succeeded", name)
		}
	}
}

func TestLoadICEConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ice.jsonc")
	if err := os.WriteFile(path, []byte(`{"iceServers": [{"urls": "stun:s"}]} // done`), 0o600); err != nil {
		t.Fatal(err)
	}
	config, err := LoadICEConfig(path)
	if err != nil {
		t.Fatalf("LoadICEConfig: %v", err)
	}
	if len(config.ICEServers) != 1 {
		t.Fatalf("got %d servers, want 1", len(config.ICEServers))
	}
	if _, err := LoadICEConfig(filepath.Join(t.TempDir(), "missing.jsonc")); err == nil {
		t.Fatal("LoadICEConfig of a missing file succeeded")
	}
}

func TestPayloadsAreRedactedThroughCarriers(t *testing.T) {
	candidate := CandidatePayload{Candidate: "a=candidate:1 1 udp 1 2001:db8::1 9 typ host"}
	redacted, err := obfuscate.Dispatch(trace.EventOnIceCandidate, candidate)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := redacted.(CandidatePayload).Candidate; got != "a=candidate:1 1 udp 1 ::1 9 typ host" {
		t.Fatalf("candidate = %q", got)
	}
	if candidate.Candidate != "a=candidate:1 1 udp 1 2001:db8::1 9 typ host" {
		t.Fatal("Dispatch modified the caller's payload")
	}

	description := DescriptionPayload{Type: "answer", SDP: "v=0\na=rtcp:9 IN IP4 10.0.0.1\n"}
	out, err := obfuscate.Dispatch(trace.EventSetRemoteDescription, description)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := out.(DescriptionPayload).SDP; got != "v=0\r\na=rtcp:9 IN IP4 0.0.0.0\r\n" {
		t.Fatalf("sdp = %q", got)
	}
}
