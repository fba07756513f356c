package e2e

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pairchat/client"
	"pairchat/domain"
	"pairchat/gateway"
)

type testConversationSuite struct {
	BaseSuite
}

func TestConversationSuite(t *testing.T) {
	suite.Run(t, &testConversationSuite{})
}

func (s *testConversationSuite) TestFullConversationFlow() {
	ctx := context.Background()

	// --- STEP 0: TWO FRESH ACTORS ---
	s.Step("Registering and connecting Alice and Bob")
	alice, closeAlice := s.Actor(ctx, "alice")
	defer closeAlice()
	bob, closeBob := s.Actor(ctx, "bob")
	defer closeBob()

	var delivered domain.Message

	s.Run("Step 1: Message reaches both sides with a detected language", func() {
		s.Step("Alice sends a message to Bob")
		s.Require().NoError(alice.Send(bob.UserID(), "Hello Bob, fancy a coffee?"))

		envelope := s.WaitForEvent(bob, gateway.EventMessageNew)
		s.Require().NoError(json.Unmarshal(envelope.Data, &delivered))
		s.Require().Equal(alice.UserID(), delivered.SenderID)
		s.Require().Equal("Hello Bob, fancy a coffee?", delivered.Content)
		s.Require().Equal("en", delivered.Lang)
		s.Require().Nil(delivered.ReadAt)

		// The sender receives their own copy too.
		echo := s.WaitForEvent(alice, gateway.EventMessageNew)
		var own domain.Message
		s.Require().NoError(json.Unmarshal(echo.Data, &own))
		s.Require().Equal(delivered.ID, own.ID)
	})

	s.Run("Step 2: Typing indicator relays to the recipient", func() {
		s.Require().NoError(bob.Typing(alice.UserID()))

		envelope := s.WaitForEvent(alice, gateway.EventUserTyping)
		var payload struct {
			From string `json:"from"`
		}
		s.Require().NoError(json.Unmarshal(envelope.Data, &payload))
		s.Require().Equal(bob.UserID(), payload.From)

		s.Require().NoError(bob.StopTyping(alice.UserID()))
		s.WaitForEvent(alice, gateway.EventUserStopTyping)
	})

	s.Run("Step 3: Read receipt comes back to the sender in one batch", func() {
		s.Require().NoError(bob.MarkRead(alice.UserID()))

		envelope := s.WaitForEvent(alice, gateway.EventMessageRead)
		var payload struct {
			MessageIDs []uuid.UUID `json:"messageIds"`
			ReaderID   string      `json:"readerId"`
		}
		s.Require().NoError(json.Unmarshal(envelope.Data, &payload))
		s.Require().Equal(bob.UserID(), payload.ReaderID)
		s.Require().Contains(payload.MessageIDs, delivered.ID)
	})

	s.Run("Step 4: Reaction toggle converges for both participants", func() {
		s.Require().NoError(bob.ToggleReaction(delivered.ID, "👍"))

		for _, actor := range []*gatewayActor{{"alice", alice}, {"bob", bob}} {
			envelope := s.WaitForEvent(actor.client, gateway.EventMessageReaction)
			var payload struct {
				Message domain.Message `json:"message"`
				ActorID string         `json:"actorId"`
			}
			s.Require().NoError(json.Unmarshal(envelope.Data, &payload))
			s.Require().Equal(bob.UserID(), payload.ActorID)
			s.Require().True(payload.Message.HasReaction(bob.UserID(), "👍"),
				"Reaction missing on %s's copy", actor.name)
		}
	})

	s.Run("Step 5: History endpoint reflects the whole exchange", func() {
		history, err := alice.History(bob.UserID())
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Require().Equal(delivered.ID, history[0].ID)
		s.Require().NotNil(history[0].ReadAt)
		s.Require().True(history[0].HasReaction(bob.UserID(), "👍"))
	})

	s.Run("Step 6: Disconnecting Bob eventually reports him offline", func() {
		closeBob()

		// The offline transition lags by the grace period.
		s.Eventually(func() bool {
			users, err := alice.Users()
			if err != nil {
				return false
			}
			for _, u := range users {
				if u.ID == bob.UserID() {
					return !u.Online && u.LastSeen != nil
				}
			}
			return false
		}, 15*time.Second, 500*time.Millisecond, "Bob never reported offline after disconnect")
	})
}

type gatewayActor struct {
	name   string
	client *client.Client
}
