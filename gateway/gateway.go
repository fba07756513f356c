// Package gateway exposes the websocket surface of the server: one
// long-lived connection per browser tab, JSON envelopes in both
// directions, identity bound to the JWT presented at handshake.
package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pairchat/auth"
	"pairchat/contract"
	"pairchat/domain/event"
	"pairchat/services"
)

type Gateway struct {
	rooms                contract.IRoomDirectory
	presence             contract.IPresence
	publisher            contract.Publisher
	messages             services.IMessageService
	authenticator        auth.Authenticator
	connectionBufferSize int
	upgrader             websocket.Upgrader
	log                  *slog.Logger
}

func NewGateway(log *slog.Logger, rooms contract.IRoomDirectory,
	presence contract.IPresence, publisher contract.Publisher,
	messages services.IMessageService, authenticator auth.Authenticator,
	connectionBufferSize int) *Gateway {
	return &Gateway{
		rooms:                rooms,
		presence:             presence,
		publisher:            publisher,
		messages:             messages,
		authenticator:        authenticator,
		connectionBufferSize: connectionBufferSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// Handle upgrades the HTTP request and blocks until the client
// disconnects. Cleanup is deferred so the registry and the presence
// view never leak a dead connection.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	claims, err := g.authenticator.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("Websocket upgrade failed", "error", err)
		return
	}

	conn := newConnection(uuid.NewString(), claims.UserID, socket, g.connectionBufferSize, g.log)
	go conn.writePump()

	g.log.Debug("Client connected",
		"connection_id", conn.id,
		"user_id", conn.userID)

	g.readLoop(conn)
}

// readLoop is the per-connection read pump. The joined flag gates every
// intent except join itself: a connection that never joins is mute.
func (g *Gateway) readLoop(conn *Connection) {
	joined := false
	defer func() {
		if joined {
			g.rooms.Unsubscribe(conn.userID, conn.id)
			g.presence.Leave(conn.userID, conn.id)
		}
		conn.close()
		_ = conn.socket.Close()
		g.log.Debug("Client disconnected",
			"connection_id", conn.id,
			"user_id", conn.userID)
	}()

	conn.socket.SetReadLimit(maxMessageSize)
	_ = conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	conn.socket.SetPongHandler(func(string) error {
		return conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Warn("Unexpected close", "connection_id", conn.id, "error", err)
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			conn.sendError("malformed envelope")
			continue
		}

		if envelope.Event == IntentJoin {
			joined = g.handleJoin(conn, envelope.Data, joined)
			continue
		}

		if !joined {
			conn.sendError("join first")
			continue
		}
		g.dispatch(conn, envelope)
	}
}

// handleJoin binds the connection to its user room. The announced user
// id must match the token identity; anything else is rejected.
func (g *Gateway) handleJoin(conn *Connection, data json.RawMessage, alreadyJoined bool) bool {
	var req joinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.sendError("malformed join request")
		return alreadyJoined
	}
	if req.UserID != conn.userID {
		g.log.Warn("Join identity mismatch",
			"connection_id", conn.id,
			"token_user", conn.userID,
			"claimed_user", req.UserID)
		conn.sendError("join user does not match the authenticated identity")
		return alreadyJoined
	}
	if alreadyJoined {
		return true
	}

	g.rooms.Subscribe(conn.userID, conn.id, conn)
	g.presence.Join(conn.userID, conn.id)
	return true
}

func (g *Gateway) dispatch(conn *Connection, envelope Envelope) {
	switch envelope.Event {
	case IntentTyping:
		g.relayTyping(conn, envelope.Data, true)
	case IntentStopTyping:
		g.relayTyping(conn, envelope.Data, false)
	case IntentCreateMessage:
		var req createMessageRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			conn.sendError("malformed message request")
			return
		}
		if _, err := g.messages.Send(conn.userID, req.RecipientID, req.Content); err != nil {
			conn.sendError(err.Error())
		}
	case IntentMarkRead:
		var req markReadRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			conn.sendError("malformed mark-read request")
			return
		}
		if _, err := g.messages.MarkRead(conn.userID, req.OtherUserID); err != nil {
			conn.sendError(err.Error())
		}
	case IntentToggleReaction:
		var req toggleReactionRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			conn.sendError("malformed reaction request")
			return
		}
		if _, err := g.messages.ToggleReaction(req.MessageID, conn.userID, req.Emoji); err != nil {
			conn.sendError(err.Error())
		}
	default:
		conn.sendError(fmt.Sprintf("unknown event %q", envelope.Event))
	}
}

// relayTyping publishes the ephemeral typing signal. Nothing is
// persisted; a recipient with no live connection simply never sees it.
func (g *Gateway) relayTyping(conn *Connection, data json.RawMessage, started bool) {
	var req typingPayload
	if err := json.Unmarshal(data, &req); err != nil {
		conn.sendError("malformed typing request")
		return
	}
	if req.To == "" {
		conn.sendError("typing target is required")
		return
	}

	if started {
		g.publisher.Publish(event.TypingStarted{From: conn.userID, To: req.To})
		return
	}
	g.publisher.Publish(event.TypingStopped{From: conn.userID, To: req.To})
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	return header
}
