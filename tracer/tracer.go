// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bureau-foundation/rtctrace/lib/clock"
	"github.com/bureau-foundation/rtctrace/obfuscate"
	"github.com/bureau-foundation/rtctrace/stats"
	"github.com/bureau-foundation/rtctrace/trace"
)

// Sender accepts encoded frames in order. *transport.Transport
// satisfies it.
type Sender interface {
	Send(frame trace.Frame)
}

// Options configures a Tracer. Zero values select the real clock, a
// discarding logger and structural diffs.
type Options struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	DiffMode stats.Mode
}

// Tracer runs the trace pipeline. It is safe for concurrent use.
type Tracer struct {
	sender  Sender
	encoder *trace.Encoder
	differ  *stats.Differ
	logger  *slog.Logger

	nextSession atomic.Uint64
}

// New creates a Tracer sending frames to sender.
func New(sender Sender, options Options) *Tracer {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Tracer{
		sender:  sender,
		encoder: trace.NewEncoder(options.Clock),
		differ:  stats.NewDiffer(options.DiffMode),
		logger:  options.Logger,
	}
}

// NewSessionID returns the next session id: PC_0, PC_1, ...
func (t *Tracer) NewSessionID() string {
	return fmt.Sprintf("PC_%d", t.nextSession.Add(1)-1)
}

// Trace records one call or event. sessionID is empty for events that
// belong to no session. A payload that fails redaction is dropped:
// the frame is still sent, with a nil payload, so the collector sees
// that the call happened.
func (t *Tracer) Trace(eventName, sessionID string, args ...any) {
	payload, err := obfuscate.Dispatch(eventName, trace.Collapse(args))
	if err != nil {
		t.logger.Warn("dropping payload that failed redaction",
			"event", eventName,
			"session", sessionID,
			"error", err,
		)
		payload = nil
	}

	if trace.IsStatistics(eventName) && payload != nil {
		snapshot, err := toSnapshot(payload)
		if err != nil {
			t.logger.Warn("dropping malformed statistics payload",
				"event", eventName,
				"session", sessionID,
				"error", err,
			)
			payload = nil
		} else {
			payload = t.differ.Diff(sessionID, snapshot)
		}
	}

	t.sender.Send(t.encoder.Encode(eventName, sessionID, payload))
}

// TraceStats redacts snapshot, diffs it against the session's previous
// sample and sends the patch as a getstats event. snapshot is not
// modified.
func (t *Tracer) TraceStats(sessionID string, snapshot stats.Snapshot) {
	t.Trace(trace.EventGetStats, sessionID, snapshot)
}

// TraceStatsFailure reports a sample that could not be taken. The
// session's diff state is left alone, so the next successful sample is
// diffed against the last successful one.
func (t *Tracer) TraceStatsFailure(sessionID string, err error) {
	t.Trace(trace.EventGetStatsFailure, sessionID, err.Error())
}

// EndSession discards the session's diff state.
func (t *Tracer) EndSession(sessionID string) {
	t.differ.Forget(sessionID)
}

// Sessions returns the number of sessions with diff state.
func (t *Tracer) Sessions() int {
	return t.differ.Sessions()
}

func toSnapshot(payload any) (stats.Snapshot, error) {
	switch typed := payload.(type) {
	case stats.Snapshot:
		return typed, nil
	case map[string]any:
		return stats.FromMap(typed)
	default:
		return nil, fmt.Errorf("statistics payload is %T, not an object", payload)
	}
}
