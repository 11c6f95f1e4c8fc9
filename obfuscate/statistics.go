// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import "github.com/bureau-foundation/rtctrace/stats"

// Statistics fields holding a bare address of the reported candidate.
// ipAddress is the legacy name; address and ip are the standard and
// pion spellings.
var addressFields = []string{"ipAddress", "address", "ip"}

// Statistics fields holding "address:port".
var hostPortFields = []string{"googLocalAddress", "googRemoteAddress"}

// relayCandidateTypes are the candidateType values of relay
// candidates, in legacy and standard spelling.
var relayCandidateTypes = map[string]bool{
	"relayed":              true,
	string(CandidateRelay): true,
}

// ObfuscateStatistics redacts address-bearing fields of every report
// in place. No other field is touched.
func ObfuscateStatistics(snapshot stats.Snapshot) {
	for _, report := range snapshot {
		redactReport(report)
	}
}

func redactReport(report map[string]any) {
	candidateType, _ := report["candidateType"].(string)
	if !relayCandidateTypes[candidateType] {
		for _, field := range addressFields {
			if address, ok := report[field].(string); ok && address != "" {
				report[field] = Address(address)
			}
		}
	}
	if related, ok := report["relatedAddress"].(string); ok && related != "" {
		report["relatedAddress"] = Address(related)
	}
	for _, field := range hostPortFields {
		if value, ok := report[field].(string); ok && value != "" {
			report[field] = HostPort(value)
		}
	}
}
