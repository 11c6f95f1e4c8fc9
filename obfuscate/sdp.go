// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import "strings"

const (
	// NullConnectionLine replaces every c= line.
	NullConnectionLine = "c=IN IP4 0.0.0.0"

	// NullRTCPLine replaces every a=rtcp: line.
	NullRTCPLine = "a=rtcp:9 IN IP4 0.0.0.0"

	lineTerminator = "\r\n"
)

// ObfuscateSessionDescription rewrites a session description line by
// line: candidate attributes are redacted, connection data and RTCP
// attributes are replaced with null addresses, and everything else is
// kept verbatim. Output lines end in CRLF, including the last.
//
// A candidate attribute that does not parse is dropped rather than
// passed through with its address.
func ObfuscateSessionDescription(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "a=candidate:"):
			redacted, err := ObfuscateCandidate(line)
			if err != nil {
				continue
			}
			out = append(out, redacted)
		case strings.HasPrefix(line, "c="):
			out = append(out, NullConnectionLine)
		case strings.HasPrefix(line, "a=rtcp:"):
			out = append(out, NullRTCPLine)
		default:
			out = append(out, line)
		}
	}
	return strings.TrimSpace(strings.Join(out, lineTerminator)) + lineTerminator
}
