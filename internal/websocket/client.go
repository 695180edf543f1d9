// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var (
	// ErrClientClosed is returned when sending to a disconnected client.
	ErrClientClosed = errors.New("websocket client closed")

	// ErrSendBufferFull is returned when the client is not keeping up.
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// clientIDCounter gives clients a stable order for broadcasts.
var clientIDCounter atomic.Uint64

// Handler receives the browser messages a Client does not handle itself.
// HandleMessage runs on the client's read goroutine.
type Handler interface {
	HandleMessage(ctx context.Context, msg Inbound)

	// Closed is called once after the connection is gone.
	Closed()
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	handler Handler
	surface *Surface
}

// NewClient creates a client. ctx supplies logging values; the client's
// own lifetime ends when the connection closes.
func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn) *Client {
	cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Client{
		id:     clientIDCounter.Add(1),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		ctx:    cctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.surface = newSurface(c)
	return c
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Surface returns the map surface driven over this connection.
func (c *Client) Surface() *Surface {
	return c.surface
}

// SetHandler installs the handler for session messages. Call before Start.
func (c *Client) SetHandler(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// Done is closed when the read side of the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues msg without blocking.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		return ErrSendBufferFull
	}
}

// closeSend closes the send channel once; the write pump then sends a close
// frame and exits.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) currentHandler() Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

// readPump pumps messages from the connection to the surface and handler.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		close(c.done)
		if h := c.currentHandler(); h != nil {
			h.Closed()
		}
		select {
		case c.hub.Unregister <- c:
		case <-time.After(writeWait):
			// Hub already stopped; it closed us on the way out.
			c.closeSend()
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Error().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		var msg Inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			metrics.WSErrors.WithLabelValues("invalid_json").Inc()
			_ = c.Send(Message{Type: MessageTypeError, Data: ErrorData{Code: "INVALID_MESSAGE", Message: "message is not valid JSON"}})
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Inbound) {
	switch msg.Type {
	case MessageTypePing:
		_ = c.Send(Message{Type: MessageTypePong})

	case MessageTypeMapReady, MessageTypeMapError:
		var data MapReadyData
		if err := msg.Decode(&data); err != nil || data.Handle == "" {
			_ = c.Send(Message{Type: MessageTypeError, Data: ErrorData{Code: "INVALID_MESSAGE", Message: "map_ready requires a handle"}})
			return
		}
		if msg.Type == MessageTypeMapError && data.Error == "" {
			data.Error = "map engine failed to initialize"
		}
		if !c.surface.resolve(data.Handle, data.Error) {
			logging.Debug().Str("handle", string(data.Handle)).Msg("map_ready for unknown or abandoned handle")
		}

	default:
		h := c.currentHandler()
		if h == nil {
			return
		}
		h.HandleMessage(c.ctx, msg)
	}
}

// writePump pumps queued messages to the connection and keeps it alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(message)
			if err != nil {
				metrics.WSErrors.WithLabelValues("marshal").Inc()
				logging.Error().Err(err).Str("message_type", message.Type).Msg("failed to marshal websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Error().Err(err).Msg("failed to write websocket message")
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
