// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/rtctrace/stats"
)

// statsGetter is the part of Connection a StatsSource needs.
type statsGetter interface {
	GetStats() webrtc.StatsReport
}

// StatsSource samples a connection's statistics. It implements
// sampler.Source.
type StatsSource struct {
	connection statsGetter
}

// NewStatsSource returns a StatsSource for connection.
func NewStatsSource(connection statsGetter) *StatsSource {
	return &StatsSource{connection: connection}
}

// GetStats collects the connection's statistics report and converts
// each stats object to a Report keyed by its JSON field names.
func (s *StatsSource) GetStats(ctx context.Context) (stats.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ConvertReport(s.connection.GetStats())
}

// ConvertReport converts a pion statistics report to a Snapshot.
func ConvertReport(report webrtc.StatsReport) (stats.Snapshot, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encoding statistics report: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decoding statistics report: %w", err)
	}
	snapshot, err := stats.FromMap(generic)
	if err != nil {
		return nil, fmt.Errorf("converting statistics report: %w", err)
	}
	return snapshot, nil
}
