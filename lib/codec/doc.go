// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR encoding configuration shared by the
// binary trace wire format and the dump file reader.
//
// Trace frames have two encodings. JSON text frames are what existing
// collectors accept. CBOR binary frames are smaller and cheaper to
// produce for the same structure, and are what this package encodes.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys and smallest integer encoding, so the same frame always
// produces the same bytes.
package codec
