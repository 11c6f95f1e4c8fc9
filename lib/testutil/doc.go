// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel helpers for tests that wait on
// goroutines (the transport writer, per-session samplers) without
// sleeping.
package testutil
