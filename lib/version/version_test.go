// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	saved := []string{GitCommit, GitDirty, BuildTime, Version}
	t.Cleanup(func() {
		GitCommit, GitDirty, BuildTime, Version = saved[0], saved[1], saved[2], saved[3]
	})

	GitCommit, GitDirty, BuildTime, Version = "abc1234", "true", "2026-01-01T00:00:00Z", "1.2.3"
	if got, want := Info(), "1.2.3 (abc1234-dirty, 2026-01-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "false"
	var buffer bytes.Buffer
	Fprint(&buffer, "rtctrace-probe")
	if got, want := buffer.String(), "rtctrace-probe 1.2.3 (abc1234, 2026-01-01T00:00:00Z)\n"; got != want {
		t.Errorf("Fprint = %q, want %q", got, want)
	}
	if !strings.Contains(Full(), "Go: ") {
		t.Errorf("Full() = %q, want Go version line", Full())
	}
}
