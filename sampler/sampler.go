// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/rtctrace/lib/clock"
	"github.com/bureau-foundation/rtctrace/stats"
)

// Source produces a statistics snapshot for one session.
type Source interface {
	GetStats(ctx context.Context) (stats.Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (stats.Snapshot, error)

func (f SourceFunc) GetStats(ctx context.Context) (stats.Snapshot, error) { return f(ctx) }

// Sink receives samples. The tracer implements it.
type Sink interface {
	TraceStats(sessionID string, snapshot stats.Snapshot)
	TraceStatsFailure(sessionID string, err error)
}

// Sampler runs the sampling loops of all sessions.
type Sampler struct {
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Sampler delivering samples to sink.
func New(sink Sink, clk clock.Clock, logger *slog.Logger) *Sampler {
	return &Sampler{
		sink:     sink,
		clock:    clk,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Start begins sampling sessionID from source every interval. The
// first sample is taken one interval after Start. Sampling ends when
// Stop is called or ctx is cancelled. Starting a session that is
// already sampling is an error.
func (s *Sampler) Start(ctx context.Context, sessionID string, source Source, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sampling interval for %s must be positive, got %v", sessionID, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sessionID]; exists {
		return fmt.Errorf("session %s is already sampling", sessionID)
	}

	ctx, cancel := context.WithCancel(ctx)
	entry := &session{cancel: cancel, done: make(chan struct{})}
	s.sessions[sessionID] = entry

	// Register the ticker before returning so a caller advancing a
	// fake clock right after Start does not race the goroutine.
	ticker := s.clock.NewTicker(interval)
	go s.run(ctx, sessionID, source, ticker, entry)

	s.logger.Debug("sampling started", "session", sessionID, "interval", interval)
	return nil
}

func (s *Sampler) run(ctx context.Context, sessionID string, source Source, ticker *clock.Ticker, entry *session) {
	defer close(entry.done)
	defer ticker.Stop()
	defer func() {
		// Cancellation of the parent context ends the session without
		// a Stop call.
		s.mu.Lock()
		if s.sessions[sessionID] == entry {
			delete(s.sessions, sessionID)
		}
		s.mu.Unlock()
		entry.cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snapshot, err := source.GetStats(ctx)
		// A sample that completes after Stop is discarded.
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("statistics sample failed", "session", sessionID, "error", err)
			s.sink.TraceStatsFailure(sessionID, err)
			continue
		}
		s.sink.TraceStats(sessionID, snapshot)
	}
}

// Stop ends sampling for sessionID and waits for an in-flight sample
// to finish. No sample is delivered after Stop returns. Stopping an
// unknown or already stopped session does nothing.
func (s *Sampler) Stop(sessionID string) {
	s.mu.Lock()
	entry, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !exists {
		return
	}

	entry.cancel()
	<-entry.done
	s.logger.Debug("sampling stopped", "session", sessionID)
}

// StopAll stops every session.
func (s *Sampler) StopAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Stop(id)
	}
}

// Active returns the number of sessions being sampled.
func (s *Sampler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
