// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package peer instruments pion/webrtc peer connections.
//
// Instrument wraps a Connection (normally a *webrtc.PeerConnection)
// so that every setup call, event and state change is traced, and
// starts periodic statistics sampling for the connection's session.
// Sampling stops and the session's diff state is discarded when the
// signaling state becomes closed or Close is called.
//
// pion accepts one handler per event, so applications register their
// handlers on the Instrumented wrapper rather than on the connection.
//
// Payloads are typed (CandidatePayload, DescriptionPayload, TrackInfo,
// StreamInfo, ChannelInfo). The redaction in package obfuscate reaches
// the address-bearing ones through the CandidateCarrier and
// DescriptionCarrier interfaces.
package peer
