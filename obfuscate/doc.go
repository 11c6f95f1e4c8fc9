// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package obfuscate redacts network addresses from trace payloads
// before they leave the process.
//
// IPv4 addresses keep their first three octets so sessions can still
// be grouped by network. IPv6 addresses are replaced entirely with
// "::1": allocations are large enough that a prefix identifies a
// subscriber. Hostnames and strings that are not addresses pass
// through unchanged.
//
// The address of a relay candidate is the TURN server's address and is
// kept so operators can group sessions by TURN server. The related
// address of any candidate is the host address behind it and is always
// redacted.
//
// Dispatch applies the right redaction for an event name. It is total:
// event names without a rule return the payload unchanged.
package obfuscate
