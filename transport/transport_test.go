// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/rtctrace/lib/testutil"
	"github.com/bureau-foundation/rtctrace/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeChannel records written messages. Writes fail while failNext is
// positive.
type fakeChannel struct {
	mu       sync.Mutex
	failNext int
	closed   bool

	written chan []byte
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{written: make(chan []byte, 64)}
}

func (c *fakeChannel) WriteMessage(binary bool, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed channel")
	}
	if c.failNext > 0 {
		c.failNext--
		return errors.New("connection reset")
	}
	c.written <- data
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func frame(name string) trace.Frame {
	return trace.NewFrame(name, "PC_0", nil, 1)
}

func eventOf(t *testing.T, data []byte) string {
	t.Helper()
	decoded, err := trace.JSONCodec{}.Unmarshal(data)
	if err != nil {
		t.Fatalf("decoding written frame: %v", err)
	}
	return decoded.EventName()
}

func startTransport(t *testing.T, options Options) *Transport {
	t.Helper()
	transport := New(trace.JSONCodec{}, discardLogger(), options)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		transport.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return transport
}

func requireEvents(t *testing.T, channel *fakeChannel, want ...string) {
	t.Helper()
	for i, name := range want {
		data := testutil.RequireReceive(t, channel.written, 5*time.Second, "frame %d (%s)", i, name)
		if got := eventOf(t, data); got != name {
			t.Fatalf("frame %d = %q, want %q", i, got, name)
		}
	}
}

func TestPendingFramesReleasedInOrderBeforeLaterFrames(t *testing.T) {
	transport := startTransport(t, Options{})
	transport.Send(frame("F1"))
	transport.Send(frame("F2"))
	transport.Send(frame("F3"))

	if state := transport.State(); state != StatePending {
		t.Fatalf("state = %v, want pending", state)
	}
	if queued := transport.Len(); queued != 3 {
		t.Fatalf("Len = %d, want 3", queued)
	}

	channel := newFakeChannel()
	if err := transport.Open(channel); err != nil {
		t.Fatalf("Open: %v", err)
	}
	transport.Send(frame("F4"))

	requireEvents(t, channel, "F1", "F2", "F3", "F4")
	testutil.RequireNoReceive(t, channel.written, 50*time.Millisecond, "no duplicate frames")
	if sent := transport.Sent(); sent != 4 {
		t.Fatalf("Sent = %d, want 4", sent)
	}
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	transport := startTransport(t, Options{})
	channel := newFakeChannel()
	if err := transport.Open(channel); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !channel.isClosed() {
		t.Fatal("Close did not close the attached channel")
	}

	transport.Send(frame("late"))
	if queued := transport.Len(); queued != 0 {
		t.Fatalf("Len after close = %d, want 0", queued)
	}
	if state := transport.State(); state != StateClosed {
		t.Fatalf("state = %v, want closed", state)
	}
	if err := transport.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpenAfterCloseFails(t *testing.T) {
	transport := startTransport(t, Options{})
	transport.Close()

	channel := newFakeChannel()
	if err := transport.Open(channel); !errors.Is(err, ErrClosed) {
		t.Fatalf("Open after Close = %v, want ErrClosed", err)
	}
	if !channel.isClosed() {
		t.Fatal("rejected channel was not closed")
	}
}

func TestCloseDiscardsQueuedFrames(t *testing.T) {
	transport := startTransport(t, Options{})
	transport.Send(frame("F1"))
	transport.Send(frame("F2"))
	transport.Close()
	if queued := transport.Len(); queued != 0 {
		t.Fatalf("Len = %d, want 0", queued)
	}
}

func TestWriteFailureRequeuesAndReturnsToPending(t *testing.T) {
	channelErrors := make(chan error, 4)
	transport := startTransport(t, Options{
		OnChannelError: func(err error) { channelErrors <- err },
	})

	failing := newFakeChannel()
	failing.failNext = 1
	transport.Send(frame("F1"))
	transport.Send(frame("F2"))
	if err := transport.Open(failing); err != nil {
		t.Fatalf("Open: %v", err)
	}

	testutil.RequireReceive(t, channelErrors, 5*time.Second, "channel error")
	if state := transport.State(); state != StatePending {
		t.Fatalf("state after write failure = %v, want pending", state)
	}
	if queued := transport.Len(); queued != 2 {
		t.Fatalf("Len after write failure = %d, want 2", queued)
	}

	transport.Send(frame("F3"))
	replacement := newFakeChannel()
	if err := transport.Open(replacement); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	requireEvents(t, replacement, "F1", "F2", "F3")
}

func TestDropOldestBound(t *testing.T) {
	transport := startTransport(t, Options{MaxQueuedFrames: 2})
	transport.Send(frame("F1"))
	transport.Send(frame("F2"))
	transport.Send(frame("F3"))

	if queued := transport.Len(); queued != 2 {
		t.Fatalf("Len = %d, want 2", queued)
	}
	if dropped := transport.Dropped(); dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", dropped)
	}

	channel := newFakeChannel()
	transport.Open(channel)
	requireEvents(t, channel, "F2", "F3")
}

func TestNegativeBoundPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New with negative MaxQueuedFrames did not panic")
		}
	}()
	New(trace.JSONCodec{}, discardLogger(), Options{MaxQueuedFrames: -1})
}

func TestFlush(t *testing.T) {
	transport := startTransport(t, Options{})
	for _, name := range []string{"F1", "F2", "F3"} {
		transport.Send(frame(name))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := transport.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Flush on pending transport = %v, want deadline exceeded", err)
	}

	channel := newFakeChannel()
	transport.Open(channel)

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := transport.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sent := transport.Sent(); sent != 3 {
		t.Fatalf("Sent after Flush = %d, want 3", sent)
	}

	transport.Close()
	if err := transport.Flush(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Flush after Close = %v, want ErrClosed", err)
	}
}

func TestConcurrentSendersKeepPerSenderOrder(t *testing.T) {
	transport := startTransport(t, Options{})
	channel := &fakeChannel{written: make(chan []byte, 1000)}
	transport.Open(channel)

	const perSender = 100
	var wg sync.WaitGroup
	for _, sender := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perSender {
				transport.Send(trace.NewFrame(sender, "", i, int64(i)))
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := transport.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	next := map[string]int64{}
	for range 3 * perSender {
		data := testutil.RequireReceive(t, channel.written, time.Second, "frame")
		decoded, err := trace.JSONCodec{}.Unmarshal(data)
		if err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if decoded.TimestampMillis() != next[decoded.EventName()] {
			t.Fatalf("sender %s: got frame %d, want %d",
				decoded.EventName(), decoded.TimestampMillis(), next[decoded.EventName()])
		}
		next[decoded.EventName()]++
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StatePending: "pending",
		StateOpen:    "open",
		StateClosed:  "closed",
		State(9):     "unknown(9)",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
