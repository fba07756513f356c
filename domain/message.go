// Package domain contains core concepts of the messaging system.
// This file defines Message and Reaction entities and related rules.
// Messages are immutable except for read receipts and reactions.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reaction is a single emoji reaction left by a user on a message.
// At most one reaction exists per (message, user, emoji) triple.
type Reaction struct {
	UserID string `json:"userId"`
	Emoji  string `json:"emoji"`
}

// Message represents one direct message between two users.
// ReadAt is set once (nil -> timestamp, never reverted) and Reactions
// are only mutated through the toggle operation.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Content     string     `json:"content"`
	Lang        string     `json:"lang,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReadAt      *time.Time `json:"readAt"`
	Reactions   []Reaction `json:"reactions"`
}

// Counterparty returns the other participant of the conversation.
func (m Message) Counterparty(userID string) string {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

// HasReaction reports whether userID already reacted with emoji.
func (m Message) HasReaction(userID, emoji string) bool {
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}

// Involves reports whether userID is one of the two participants.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.RecipientID == userID
}
