package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pairchat/domain/event"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
)

// Connection is one live websocket. It implements contract.EventSink:
// delivered events are serialized and pushed through a buffered send
// channel so a slow reader never blocks the fan-out worker.
//
// The send channel is never closed: the fan-out worker may still hold
// this sink after the read loop tears the connection down, and a send
// on a closed channel would panic it. Teardown closes done instead,
// and Consume drains against that signal.
type Connection struct {
	id        string
	userID    string
	socket    *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

func newConnection(id, userID string, socket *websocket.Conn, bufferSize int, log *slog.Logger) *Connection {
	return &Connection{
		id:     id,
		userID: userID,
		socket: socket,
		send:   make(chan []byte, bufferSize),
		done:   make(chan struct{}),
		log:    log,
	}
}

func (c *Connection) ID() string     { return c.id }
func (c *Connection) UserID() string { return c.userID }

// Consume implements the EventSink interface. Delivery is best-effort:
// when the buffer is full the event is dropped and the client is
// expected to resync through the REST history endpoint.
func (c *Connection) Consume(_ context.Context, e event.DomainEvent) error {
	envelope, ok := toEnvelope(e)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return nil
	case c.send <- payload:
	default:
		c.log.Warn("Dropping event for slow connection",
			"connection_id", c.id,
			"user_id", c.userID,
			"event", envelope.Event)
	}
	return nil
}

// sendError pushes an error envelope to this client only.
func (c *Connection) sendError(message string) {
	payload, err := json.Marshal(outEnvelope{Event: EventError, Data: errorPayload{Message: message}})
	if err != nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- payload:
	default:
	}
}

// close signals teardown, unblocking the write pump. The send channel
// stays open so late deliveries from the fan-out worker are inert.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump drains the send channel to the browser. One goroutine per
// connection; the ping ticker keeps intermediate proxies from cutting
// idle sockets.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
