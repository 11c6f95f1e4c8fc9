// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/rtctrace/lib/netutil"
)

// ProtocolVersion is the WebSocket sub-protocol collectors expect.
const ProtocolVersion = "1.0"

const (
	handshakeTimeout = 30 * time.Second
	writeTimeout     = 10 * time.Second
	closeTimeout     = time.Second
)

// WebSocketChannel is a collector connection.
type WebSocketChannel struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	// done is closed when the read loop ends: the collector closed
	// the connection or the network failed.
	done chan struct{}
	// err is the read loop's terminal error, nil for a normal close.
	// Set before done is closed.
	err error

	closeOnce sync.Once
}

// DialWebSocket connects to the collector at endpoint with path
// appended, negotiating sub-protocol ProtocolVersion.
func DialWebSocket(ctx context.Context, endpoint, path string, header http.Header) (*WebSocketChannel, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{ProtocolVersion},
	}
	target := endpoint + path
	conn, response, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("dialing collector %s: %w (status %s)", target, err, response.Status)
		}
		return nil, fmt.Errorf("dialing collector %s: %w", target, err)
	}

	channel := &WebSocketChannel{
		conn: conn,
		done: make(chan struct{}),
	}
	go channel.readLoop()
	return channel, nil
}

// readLoop consumes inbound messages so control frames (ping, close)
// are processed. Collectors do not send data messages to the tracer;
// any that arrive are discarded.
func (c *WebSocketChannel) readLoop() {
	defer close(c.done)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !netutil.IsExpectedCloseError(err) {
				c.err = err
			}
			return
		}
	}
}

// Subprotocol returns the sub-protocol the collector accepted.
func (c *WebSocketChannel) Subprotocol() string {
	return c.conn.Subprotocol()
}

// Done is closed when the connection is gone.
func (c *WebSocketChannel) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended once Done is closed: nil when
// either side closed it normally.
func (c *WebSocketChannel) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// WriteMessage sends data as one text or binary message.
func (c *WebSocketChannel) WriteMessage(binary bool, data []byte) error {
	messageType := websocket.TextMessage
	if binary {
		messageType = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil { //nolint:realclock network deadline
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// Close sends a normal-closure control frame and closes the
// connection.
func (c *WebSocketChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeTimeout)) //nolint:realclock network deadline
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
