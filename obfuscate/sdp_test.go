// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"strings"
	"testing"
)

const offer = "v=0\r\n" +
	"o=- 4611731400430051336 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=audio 54321 UDP/TLS/RTP/SAVPF 111\r\n" +
	"c=IN IP4 203.0.113.7\r\n" +
	"a=rtcp:54322 IN IP4 203.0.113.7\r\n" +
	"a=candidate:1 1 udp 2122260223 192.168.1.5 54321 typ host generation 0\r\n" +
	"a=candidate:4 1 udp 41885439 198.51.100.20 3478 typ relay raddr 203.0.113.7 rport 54321\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n"

func TestObfuscateSessionDescription(t *testing.T) {
	want := "v=0\r\n" +
		"o=- 4611731400430051336 2 IN IP4 127.0.0.1\r\n" +
		"s=-\r\n" +
		"t=0 0\r\n" +
		"m=audio 54321 UDP/TLS/RTP/SAVPF 111\r\n" +
		"c=IN IP4 0.0.0.0\r\n" +
		"a=rtcp:9 IN IP4 0.0.0.0\r\n" +
		"a=candidate:1 1 udp 2122260223 192.168.1.x 54321 typ host generation 0\r\n" +
		"a=candidate:4 1 udp 41885439 198.51.100.20 3478 typ relay raddr 203.0.113.x rport 54321\r\n" +
		"a=rtpmap:111 opus/48000/2\r\n"

	if got := ObfuscateSessionDescription(offer); got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestObfuscateSessionDescriptionNullLinesIgnoreInput(t *testing.T) {
	for _, connection := range []string{"c=IN IP4 10.0.0.1", "c=IN IP6 2001:db8::1", "c=IN IP4 224.2.1.1/127"} {
		got := ObfuscateSessionDescription("v=0\n" + connection + "\na=rtcp:1 IN IP6 ::2\n")
		want := "v=0\r\n" + NullConnectionLine + "\r\n" + NullRTCPLine + "\r\n"
		if got != want {
			t.Errorf("input %q: got %q, want %q", connection, got, want)
		}
	}
}

func TestObfuscateSessionDescriptionLineEndings(t *testing.T) {
	got := ObfuscateSessionDescription("v=0\ns=-")
	if got != "v=0\r\ns=-\r\n" {
		t.Errorf("got %q, want CRLF-joined with trailing CRLF", got)
	}
}

func TestObfuscateSessionDescriptionDropsMalformedCandidate(t *testing.T) {
	got := ObfuscateSessionDescription("v=0\r\na=candidate:garbage 10.0.0.1\r\ns=-\r\n")
	if strings.Contains(got, "10.0.0.1") {
		t.Errorf("malformed candidate leaked its address: %q", got)
	}
	if got != "v=0\r\ns=-\r\n" {
		t.Errorf("got %q", got)
	}
}
