// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bureau-foundation/rtctrace/lib/codec"
	"github.com/bureau-foundation/rtctrace/stats"
	"github.com/bureau-foundation/rtctrace/trace"
	"github.com/bureau-foundation/rtctrace/transport"
)

type replayOptions struct {
	// session restricts output to one session plus global frames.
	session string

	// patches prints statistics payloads as recorded.
	patches bool
}

// record is one output line.
type record struct {
	Index     int            `json:"index"`
	Event     string         `json:"event"`
	Session   string         `json:"session,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Payload   any            `json:"payload,omitempty"`
	Stats     stats.Snapshot `json:"stats,omitempty"`
	Error     string         `json:"error,omitempty"`

	// Diagnostic is the CBOR diagnostic notation of a binary frame
	// that did not decode.
	Diagnostic string `json:"diagnostic,omitempty"`
}

type replaySummary struct {
	Frames     int
	Statistics int
	Sessions   int
	Errors     int
}

// replay decodes every frame of dump and writes one record per frame
// to w. Frames that cannot be decoded, and statistics patches that do
// not apply to the session's previous snapshot, produce a record with
// Error set and are counted in the summary. A session whose patch
// failed has no baseline until its next full snapshot.
func replay(dump *transport.Dump, w io.Writer, options replayOptions) (replaySummary, error) {
	var frameCodec trace.Codec = trace.JSONCodec{}
	if dump.Binary {
		frameCodec = trace.CBORCodec{}
	}

	encoder := json.NewEncoder(w)
	snapshots := make(map[string]stats.Snapshot)
	seen := make(map[string]struct{})
	var summary replaySummary

	for index, data := range dump.Frames {
		summary.Frames++
		frame, err := frameCodec.Unmarshal(data)
		if err != nil {
			summary.Errors++
			failed := record{Index: index, Error: err.Error()}
			if dump.Binary {
				failed.Diagnostic, _ = codec.Diagnose(data)
			}
			if err := encoder.Encode(failed); err != nil {
				return summary, fmt.Errorf("writing record %d: %w", index, err)
			}
			continue
		}

		session := frame.SessionID()
		if session != "" {
			seen[session] = struct{}{}
		}
		out := record{
			Index:     index,
			Event:     frame.EventName(),
			Session:   session,
			Timestamp: frame.TimestampMillis(),
			Payload:   frame.Payload(),
		}

		if trace.IsStatistics(frame.EventName()) {
			summary.Statistics++
			snapshot, err := applyFrame(snapshots[session], frame.Payload())
			if err != nil {
				summary.Errors++
				delete(snapshots, session)
				out.Error = err.Error()
			} else {
				snapshots[session] = snapshot
				if !options.patches {
					out.Payload = nil
					out.Stats = snapshot
				}
			}
		}

		if options.session != "" && session != "" && session != options.session {
			continue
		}
		if err := encoder.Encode(out); err != nil {
			return summary, fmt.Errorf("writing record %d: %w", index, err)
		}
	}
	summary.Sessions = len(seen)
	return summary, nil
}

func applyFrame(previous stats.Snapshot, payload any) (stats.Snapshot, error) {
	if payload == nil {
		return nil, fmt.Errorf("statistics frame without a patch")
	}
	patch, err := stats.DecodePatch(payload)
	if err != nil {
		return nil, err
	}
	if patch.Kind == stats.KindDelta && previous == nil {
		return nil, fmt.Errorf("delta patch without a previous snapshot")
	}
	return stats.Apply(patch, previous)
}
