// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the rtctrace
// binaries: fatal error reporting before (or without) a structured
// logger, and the signal-bound context a binary runs under.
package process
