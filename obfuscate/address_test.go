// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import "testing"

func TestAddress(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"192.168.1.5", "192.168.1.x"},
		{"10.0.0.255", "10.0.0.x"},
		{"2001:db8::1", "::1"},
		{"[2001:db8::1]", "::1"},
		{"fe80::1%eth0", "::1"},
		{"::1", "::1"},
		{"4a1c2d3e-aaaa-bbbb-cccc-0123456789ab.local", "4a1c2d3e-aaaa-bbbb-cccc-0123456789ab.local"},
		{"turn.example.com", "turn.example.com"},
		{"1.2.3", "1.2.3"},
		{"", ""},
	}
	for _, test := range tests {
		if got := Address(test.input); got != test.want {
			t.Errorf("Address(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10.0.0.5:54321", "10.0.0.x:54321"},
		{"[2001:db8::1]:443", "[::1]:443"},
		{"relay.example.com:3478", "relay.example.com:3478"},
		{"192.168.0.7", "192.168.0.x"},
	}
	for _, test := range tests {
		if got := HostPort(test.input); got != test.want {
			t.Errorf("HostPort(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}
