// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/rtctrace/trace"
)

// ErrClosed is returned by Open and Flush after Close.
var ErrClosed = errors.New("transport: closed")

// Channel carries encoded frames to the collector. WriteMessage is
// only called from the transport's writer goroutine.
type Channel interface {
	// WriteMessage sends one frame as a single message. binary
	// selects a binary rather than text message where the channel
	// distinguishes them.
	WriteMessage(binary bool, data []byte) error

	Close() error
}

// State is the transport's connection state.
type State int

const (
	// StatePending queues frames until a channel is opened.
	StatePending State = iota
	// StateOpen writes frames to the channel in order.
	StateOpen
	// StateClosed drops frames.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Options configures a Transport.
type Options struct {
	// MaxQueuedFrames bounds the queue. When a send would exceed it,
	// the oldest queued frame is dropped. Zero means unbounded.
	MaxQueuedFrames int

	// OnChannelError is called from the writer goroutine after a write
	// fails and the transport has returned to Pending.
	OnChannelError func(error)
}

// Transport is the ordered, buffered frame sender. All methods are
// safe for concurrent use; Run must be called exactly once.
type Transport struct {
	codec   trace.Codec
	logger  *slog.Logger
	options Options

	mu      sync.Mutex
	state   State
	channel Channel
	queue   []queuedFrame
	writing bool
	dropped uint64
	sent    uint64

	// progress is closed and replaced whenever a write completes or the
	// state changes, waking Flush callers.
	progress chan struct{}

	// notify (capacity 1) wakes the writer when there is work.
	notify chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

type queuedFrame struct {
	eventName string
	data      []byte
}

// New creates a Pending transport encoding frames with codec.
func New(codec trace.Codec, logger *slog.Logger, options Options) *Transport {
	if options.MaxQueuedFrames < 0 {
		panic(fmt.Sprintf("transport: MaxQueuedFrames must not be negative, got %d", options.MaxQueuedFrames))
	}
	return &Transport{
		codec:    codec,
		logger:   logger,
		options:  options,
		progress: make(chan struct{}),
		notify:   make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

// Send encodes frame and queues it behind every frame sent before it.
// After Close, Send does nothing. A frame that cannot be encoded is
// logged and dropped.
func (t *Transport) Send(frame trace.Frame) {
	data, err := t.codec.Marshal(frame)
	if err != nil {
		t.logger.Warn("dropping frame that cannot be encoded",
			"event", frame.EventName(),
			"session", frame.SessionID(),
			"error", err,
		)
		return
	}

	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		return
	}
	t.queue = append(t.queue, queuedFrame{eventName: frame.EventName(), data: data})
	t.enforceBoundLocked()
	t.mu.Unlock()

	t.wake()
}

// Open attaches channel and moves the transport to Open. The writer
// drains queued frames first, in the order they were sent. Opening a
// closed transport closes channel and returns ErrClosed.
func (t *Transport) Open(channel Channel) error {
	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		channel.Close()
		return ErrClosed
	}
	t.channel = channel
	t.state = StateOpen
	t.broadcastLocked()
	t.mu.Unlock()

	t.wake()
	return nil
}

// Detach returns the transport to Pending if channel is the attached
// channel. Connector calls it when the collector connection drops
// between writes. Frames keep queueing.
func (t *Transport) Detach(channel Channel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateOpen && t.channel == channel {
		t.channel = nil
		t.state = StatePending
		t.broadcastLocked()
	}
}

// Close moves the transport to Closed, discards queued frames and
// closes the attached channel, if any. Later calls return nil.
func (t *Transport) Close() error {
	var channel Channel
	t.closeOnce.Do(func() {
		t.mu.Lock()
		channel = t.channel
		t.channel = nil
		t.state = StateClosed
		t.queue = nil
		t.broadcastLocked()
		t.mu.Unlock()
		close(t.closed)
	})
	if channel != nil {
		return channel.Close()
	}
	return nil
}

// Run is the writer loop. It returns when ctx is cancelled or the
// transport is closed.
func (t *Transport) Run(ctx context.Context) {
	for {
		select {
		case <-t.notify:
		case <-t.closed:
			return
		case <-ctx.Done():
			return
		}
		t.drain()
	}
}

// drain writes queued frames while the transport is open. Each frame
// is taken off the queue before the write and put back at the head if
// the write fails, so a frame is written at most once per Open and
// never reordered.
func (t *Transport) drain() {
	for {
		t.mu.Lock()
		if t.state != StateOpen || len(t.queue) == 0 {
			t.mu.Unlock()
			return
		}
		head := t.queue[0]
		t.queue[0] = queuedFrame{} // release data for GC
		t.queue = t.queue[1:]
		channel := t.channel
		t.writing = true
		t.mu.Unlock()

		err := channel.WriteMessage(t.codec.Binary(), head.data)

		t.mu.Lock()
		t.writing = false
		if err == nil {
			t.sent++
			t.broadcastLocked()
			t.mu.Unlock()
			continue
		}
		if t.state != StateClosed {
			t.queue = append([]queuedFrame{head}, t.queue...)
			t.enforceBoundLocked()
			if t.channel == channel {
				t.channel = nil
				t.state = StatePending
			}
		}
		queued := len(t.queue)
		t.broadcastLocked()
		t.mu.Unlock()

		t.logger.Warn("frame write failed, queueing until the channel reopens",
			"event", head.eventName,
			"error", err,
			"queued", queued,
		)
		if t.options.OnChannelError != nil {
			t.options.OnChannelError(err)
		}
		// A new channel may have been opened while the write was in
		// flight; drain again against it.
		t.wake()
		return
	}
}

// Flush blocks until every queued frame has been written or ctx is
// done. It does not open a channel: flushing a Pending transport
// waits for Open.
func (t *Transport) Flush(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.state == StateClosed {
			t.mu.Unlock()
			return ErrClosed
		}
		if len(t.queue) == 0 && !t.writing {
			t.mu.Unlock()
			return nil
		}
		progress := t.progress
		t.mu.Unlock()

		select {
		case <-progress:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// State returns the current state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Len returns the number of queued frames.
func (t *Transport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Dropped returns the number of frames dropped by the queue bound.
func (t *Transport) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Sent returns the number of frames written to a channel.
func (t *Transport) Sent() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}

func (t *Transport) enforceBoundLocked() {
	limit := t.options.MaxQueuedFrames
	if limit == 0 {
		return
	}
	for len(t.queue) > limit {
		t.queue[0] = queuedFrame{}
		t.queue = t.queue[1:]
		t.dropped++
	}
}

func (t *Transport) broadcastLocked() {
	close(t.progress)
	t.progress = make(chan struct{})
}

// wake signals the writer without blocking.
func (t *Transport) wake() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}
