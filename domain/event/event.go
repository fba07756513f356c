// Package event defines the domain events flowing from the core to
// connected clients. Events are published only after the state they
// describe has been persisted.
package event

import (
	"time"

	"github.com/google/uuid"

	"pairchat/domain"
)

// DomainEvent is anything the fan-out worker can deliver.
// Targets lists the user ids whose rooms should receive the event.
// A nil result means broadcast to every connected client.
type DomainEvent interface {
	Targets() []string
}

// UserOnline is broadcast when a user gains their first live connection.
type UserOnline struct {
	UserID string
}

func (e UserOnline) Targets() []string { return nil }

// UserOffline is broadcast when the offline grace period elapses without
// a reconnect. LastSeen is the authoritative offline transition time.
type UserOffline struct {
	UserID   string
	LastSeen time.Time
}

func (e UserOffline) Targets() []string { return nil }

// TypingStarted is the ephemeral typing signal relayed to the recipient.
type TypingStarted struct {
	From string
	To   string
}

func (e TypingStarted) Targets() []string { return []string{e.To} }

type TypingStopped struct {
	From string
	To   string
}

func (e TypingStopped) Targets() []string { return []string{e.To} }

// MessageCreated carries a freshly persisted message. It targets the
// recipient and the sender's other devices.
type MessageCreated struct {
	Message domain.Message
}

func (e MessageCreated) Targets() []string {
	return []string{e.Message.RecipientID, e.Message.SenderID}
}

// ConversationRead notifies the original sender that a batch of their
// messages has been read.
type ConversationRead struct {
	MessageIDs []uuid.UUID
	ReaderID   string
	SenderID   string
}

func (e ConversationRead) Targets() []string { return []string{e.SenderID} }

// ReactionUpdated carries the canonical message after a reaction toggle,
// so every device of both participants converges on the same state.
type ReactionUpdated struct {
	Message domain.Message
	ActorID string
}

func (e ReactionUpdated) Targets() []string {
	return []string{e.Message.Counterparty(e.ActorID), e.ActorID}
}
