// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/rtctrace/stats"
)

func TestObfuscateStatistics(t *testing.T) {
	snapshot := stats.Snapshot{
		"Cand-local": stats.Report{
			"type":          "localcandidate",
			"ipAddress":     "192.168.1.5",
			"portNumber":    "54321",
			"candidateType": "host",
		},
		"Cand-relay": stats.Report{
			"type":          "localcandidate",
			"ipAddress":     "198.51.100.20",
			"candidateType": "relayed",
		},
		"RTCIceCandidate_std": stats.Report{
			"type":           "remote-candidate",
			"address":        "2001:db8::9",
			"candidateType":  "srflx",
			"relatedAddress": "10.0.0.3",
		},
		"RTCIceCandidate_relay": stats.Report{
			"type":           "local-candidate",
			"address":        "198.51.100.21",
			"candidateType":  "relay",
			"relatedAddress": "203.0.113.7",
		},
		"Conn-audio-1-0": stats.Report{
			"googLocalAddress":  "10.0.0.5:54321",
			"googRemoteAddress": "[2001:db8::1]:443",
			"bytesSent":         "1200",
		},
	}

	ObfuscateStatistics(snapshot)

	want := stats.Snapshot{
		"Cand-local": stats.Report{
			"type":          "localcandidate",
			"ipAddress":     "192.168.1.x",
			"portNumber":    "54321",
			"candidateType": "host",
		},
		"Cand-relay": stats.Report{
			"type":          "localcandidate",
			"ipAddress":     "198.51.100.20",
			"candidateType": "relayed",
		},
		"RTCIceCandidate_std": stats.Report{
			"type":           "remote-candidate",
			"address":        "::1",
			"candidateType":  "srflx",
			"relatedAddress": "10.0.0.x",
		},
		"RTCIceCandidate_relay": stats.Report{
			"type":           "local-candidate",
			"address":        "198.51.100.21",
			"candidateType":  "relay",
			"relatedAddress": "203.0.113.x",
		},
		"Conn-audio-1-0": stats.Report{
			"googLocalAddress":  "10.0.0.x:54321",
			"googRemoteAddress": "[::1]:443",
			"bytesSent":         "1200",
		},
	}
	if diff := cmp.Diff(want, snapshot); diff != "" {
		t.Errorf("redacted snapshot mismatch (-want +got):\n%s", diff)
	}
}
