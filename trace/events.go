// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

// Event names. Method calls are traced under the method name; the
// outcome of an asynchronous call is traced under the method name with
// SuccessSuffix or FailureSuffix appended.
const (
	EventCreate      = "create"
	EventConstraints = "constraints"

	EventCreateOffer          = "createOffer"
	EventCreateAnswer         = "createAnswer"
	EventSetLocalDescription  = "setLocalDescription"
	EventSetRemoteDescription = "setRemoteDescription"
	EventAddIceCandidate      = "addIceCandidate"
	EventCreateDataChannel    = "createDataChannel"
	EventAddTrack             = "addTrack"
	EventRemoveTrack          = "removeTrack"
	EventClose                = "close"

	EventCreateOfferOnSuccess  = EventCreateOffer + SuccessSuffix
	EventCreateAnswerOnSuccess = EventCreateAnswer + SuccessSuffix

	EventOnIceCandidate      = "onicecandidate"
	EventOnTrack             = "ontrack"
	EventOnDataChannel       = "ondatachannel"
	EventOnNegotiationNeeded = "onnegotiationneeded"

	EventOnSignalingStateChange     = "onsignalingstatechange"
	EventOnIceConnectionStateChange = "oniceconnectionstatechange"
	EventOnIceGatheringStateChange  = "onicegatheringstatechange"
	EventOnConnectionStateChange    = "onconnectionstatechange"

	// EventGetStats carries a statistics patch.
	EventGetStats = "getstats"
	// EventGetStatsLegacy is the camel-cased spelling older
	// instrumentation used for the same event.
	EventGetStatsLegacy = "getStats"
	// EventGetStatsFailure reports a sample that could not be taken.
	// The session keeps sampling.
	EventGetStatsFailure = EventGetStats + FailureSuffix

	EventGetUserMedia = "getUserMedia"

	SuccessSuffix = "OnSuccess"
	FailureSuffix = "OnFailure"
)

// IsStatistics reports whether eventName carries a statistics payload.
func IsStatistics(eventName string) bool {
	return eventName == EventGetStats || eventName == EventGetStatsLegacy
}
