package gateway

import (
	"encoding/json"

	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/domain/event"
)

// Wire event names, shared with the browser client.
const (
	EventPresenceOnline  = "presence:online"
	EventPresenceOffline = "presence:offline"
	EventUserTyping      = "userTyping"
	EventUserStopTyping  = "userStopTyping"
	EventMessageNew      = "message:new"
	EventMessageRead     = "message:read"
	EventMessageReaction = "message:reaction"
	EventError           = "error"
)

// Inbound intents accepted over the socket.
const (
	IntentJoin           = "join"
	IntentTyping         = "typing"
	IntentStopTyping     = "stopTyping"
	IntentCreateMessage  = "message:create"
	IntentMarkRead       = "mark-read"
	IntentToggleReaction = "toggle-reaction"
)

// Envelope is the framing of every websocket message, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type presencePayload struct {
	UserID   string `json:"userId"`
	LastSeen string `json:"lastSeen,omitempty"`
}

type typingPayload struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

type readPayload struct {
	MessageIDs []uuid.UUID `json:"messageIds"`
	ReaderID   string      `json:"readerId"`
}

type reactionPayload struct {
	Message domain.Message `json:"message"`
	ActorID string         `json:"actorId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinRequest struct {
	UserID string `json:"userId"`
}

type createMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

type markReadRequest struct {
	OtherUserID string `json:"otherUserId"`
}

type toggleReactionRequest struct {
	MessageID uuid.UUID `json:"messageId"`
	Emoji     string    `json:"emoji"`
}

// toEnvelope maps a domain event to its wire form. The second return is
// false for events this connection type does not forward.
func toEnvelope(e event.DomainEvent) (outEnvelope, bool) {
	switch evt := e.(type) {
	case event.UserOnline:
		return outEnvelope{Event: EventPresenceOnline, Data: presencePayload{UserID: evt.UserID}}, true
	case event.UserOffline:
		return outEnvelope{
			Event: EventPresenceOffline,
			Data:  presencePayload{UserID: evt.UserID, LastSeen: evt.LastSeen.Format(timeWireFormat)},
		}, true
	case event.TypingStarted:
		return outEnvelope{Event: EventUserTyping, Data: typingPayload{From: evt.From}}, true
	case event.TypingStopped:
		return outEnvelope{Event: EventUserStopTyping, Data: typingPayload{From: evt.From}}, true
	case event.MessageCreated:
		return outEnvelope{Event: EventMessageNew, Data: evt.Message}, true
	case event.ConversationRead:
		return outEnvelope{
			Event: EventMessageRead,
			Data:  readPayload{MessageIDs: evt.MessageIDs, ReaderID: evt.ReaderID},
		}, true
	case event.ReactionUpdated:
		return outEnvelope{
			Event: EventMessageReaction,
			Data:  reactionPayload{Message: evt.Message, ActorID: evt.ActorID},
		}, true
	default:
		return outEnvelope{}, false
	}
}

const timeWireFormat = "2006-01-02T15:04:05.000Z07:00"
