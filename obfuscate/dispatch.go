// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"github.com/bureau-foundation/rtctrace/stats"
	"github.com/bureau-foundation/rtctrace/trace"
)

// CandidateCarrier is a typed payload holding a candidate line.
type CandidateCarrier interface {
	CandidateLine() string
	WithCandidateLine(line string) any
}

// DescriptionCarrier is a typed payload holding a session description.
type DescriptionCarrier interface {
	SessionDescription() string
	WithSessionDescription(text string) any
}

type rule int

const (
	ruleCandidate rule = iota + 1
	ruleDescription
	ruleStatistics
)

var rules = map[string]rule{
	trace.EventAddIceCandidate:       ruleCandidate,
	trace.EventOnIceCandidate:        ruleCandidate,
	trace.EventSetLocalDescription:   ruleDescription,
	trace.EventSetRemoteDescription:  ruleDescription,
	trace.EventCreateOfferOnSuccess:  ruleDescription,
	trace.EventCreateAnswerOnSuccess: ruleDescription,
	trace.EventGetStats:              ruleStatistics,
	trace.EventGetStatsLegacy:        ruleStatistics,
}

// Dispatch redacts payload according to the rule for eventName and
// returns the redacted payload. The caller's payload is not modified.
// Unknown event names and payload shapes without the relevant field
// are returned unchanged. The only error is a malformed candidate
// (wrapping ErrParse).
func Dispatch(eventName string, payload any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	switch rules[eventName] {
	case ruleCandidate:
		return redactCandidatePayload(payload)
	case ruleDescription:
		return redactDescriptionPayload(payload), nil
	case ruleStatistics:
		return redactStatisticsPayload(payload), nil
	default:
		return payload, nil
	}
}

func redactCandidatePayload(payload any) (any, error) {
	switch typed := payload.(type) {
	case CandidateCarrier:
		line := typed.CandidateLine()
		if line == "" {
			return payload, nil
		}
		redacted, err := ObfuscateCandidate(line)
		if err != nil {
			return nil, err
		}
		return typed.WithCandidateLine(redacted), nil
	case map[string]any:
		line, ok := typed["candidate"].(string)
		if !ok || line == "" {
			return payload, nil
		}
		redacted, err := ObfuscateCandidate(line)
		if err != nil {
			return nil, err
		}
		return withField(typed, "candidate", redacted), nil
	default:
		return payload, nil
	}
}

func redactDescriptionPayload(payload any) any {
	switch typed := payload.(type) {
	case DescriptionCarrier:
		text := typed.SessionDescription()
		if text == "" {
			return payload
		}
		return typed.WithSessionDescription(ObfuscateSessionDescription(text))
	case map[string]any:
		text, ok := typed["sdp"].(string)
		if !ok || text == "" {
			return payload
		}
		return withField(typed, "sdp", ObfuscateSessionDescription(text))
	default:
		return payload
	}
}

func redactStatisticsPayload(payload any) any {
	switch typed := payload.(type) {
	case stats.Snapshot:
		snapshot := typed.Clone()
		ObfuscateStatistics(snapshot)
		return snapshot
	case map[string]any:
		out := make(map[string]any, len(typed))
		for id, value := range typed {
			if report, ok := value.(map[string]any); ok {
				report = stats.Report(report).Clone()
				redactReport(report)
				out[id] = report
				continue
			}
			out[id] = value
		}
		return out
	default:
		return payload
	}
}

// withField returns a shallow copy of m with key set to value.
func withField(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}
