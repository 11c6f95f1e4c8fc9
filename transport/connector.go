// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/rtctrace/lib/clock"
)

// LiveChannel is a Channel that reports when its connection is gone.
type LiveChannel interface {
	Channel
	Done() <-chan struct{}
}

// DialFunc opens a new collector connection.
type DialFunc func(ctx context.Context) (LiveChannel, error)

// Backoff bounds for re-dialing. The delay starts at initialBackoff,
// doubles after each failed dial and resets after a successful one.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Connector keeps a Transport attached to the collector.
type Connector struct {
	transport *Transport
	dial      DialFunc
	clock     clock.Clock
	logger    *slog.Logger

	// Reconnect re-dials after a failed dial or a dropped connection,
	// keeping frames queued in between. Without it Run returns after
	// the first connection attempt; if that connection was opened, its
	// end closes the transport and later sends are dropped.
	Reconnect bool
}

// NewConnector creates a Connector that opens transport with channels
// from dial.
func NewConnector(transport *Transport, dial DialFunc, clk clock.Clock, logger *slog.Logger) *Connector {
	return &Connector{
		transport: transport,
		dial:      dial,
		clock:     clk,
		logger:    logger,
		Reconnect: true,
	}
}

// Run dials, opens the transport and waits for the connection to end,
// repeating while Reconnect is set. It returns when ctx is cancelled,
// the transport is closed, or (without Reconnect) the first connection
// attempt is over. With Reconnect, frames queue in the transport the
// whole time the collector is unreachable.
func (c *Connector) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		channel, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !c.Reconnect {
				return err
			}
			c.logger.Warn("collector dial failed, will retry",
				"error", err,
				"backoff", backoff,
				"queued", c.transport.Len(),
			)
			select {
			case <-c.clock.After(backoff):
			case <-ctx.Done():
				return nil
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		if err := c.transport.Open(channel); err != nil {
			return nil
		}
		c.logger.Info("collector connected", "queued", c.transport.Len())

		select {
		case <-channel.Done():
			if err := channelError(channel); err != nil {
				c.logger.Warn("collector connection lost", "error", err, "queued", c.transport.Len())
			} else {
				c.logger.Info("collector closed the connection", "queued", c.transport.Len())
			}
			if !c.Reconnect {
				// Closing the transport also closes channel. Later
				// sends are dropped instead of queueing with nothing
				// left to drain them.
				return c.transport.Close()
			}
			c.transport.Detach(channel)
			channel.Close()
		case <-ctx.Done():
			return nil
		}
	}
}

// channelError returns the error that ended channel, for channels that
// report one.
func channelError(channel LiveChannel) error {
	if reporter, ok := channel.(interface{ Err() error }); ok {
		return reporter.Err()
	}
	return nil
}
