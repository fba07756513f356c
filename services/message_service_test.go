package services

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/mocks"
	"pairchat/moderation"
)

const testMaxContentLength = 2000

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	events []event.DomainEvent
}

func (p *recordingPublisher) Publish(e event.DomainEvent) {
	p.events = append(p.events, e)
}

func newMessageService(t *testing.T, messages *mocks.MockIMessageRepository,
	users *mocks.MockIUserRepository, publisher *recordingPublisher) *MessageService {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)
	return NewMessageService(messages, users, moderator, publisher, testMaxContentLength, log)
}

func TestMessageService_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	t.Run("should persist then publish when input is valid", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		expected := domain.Message{
			ID:          uuid.New(),
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "Hello there, how are you doing today?",
			Lang:        "en",
			CreatedAt:   time.Now().UTC(),
		}

		mockUsers.EXPECT().GetByID("bob").Return(domain.User{ID: "bob"}, nil).Times(1)
		mockMessages.EXPECT().
			Create("alice", "bob", "Hello there, how are you doing today?", "en").
			Return(expected, nil).
			Times(1)

		message, err := svc.Send("alice", "bob", "Hello there, how are you doing today?")

		req.NoError(err)
		req.Equal(expected, message)
		req.Len(publisher.events, 1)
		created, ok := publisher.events[0].(event.MessageCreated)
		req.True(ok)
		req.Equal(expected, created.Message)
	})

	t.Run("should censor forbidden words before persisting", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		mockUsers.EXPECT().GetByID("bob").Return(domain.User{ID: "bob"}, nil).Times(1)
		// The repository must only ever see the censored content
		mockMessages.EXPECT().
			Create("alice", "bob", "You sneaky ******", gomock.Any()).
			Return(domain.Message{Content: "You sneaky ******"}, nil).
			Times(1)

		message, err := svc.Send("alice", "bob", "You sneaky badger")

		req.NoError(err)
		req.Equal("You sneaky ******", message.Content)
	})

	t.Run("should reject invalid input before touching storage", func(t *testing.T) {
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		tests := []struct {
			name      string
			sender    string
			recipient string
			content   string
			wantErr   error
		}{
			{"empty sender", "", "bob", "hello", errors.ErrEmptyUserID},
			{"empty recipient", "alice", "", "hello", errors.ErrMissingRecipient},
			{"empty content", "alice", "bob", "", errors.ErrEmptyContent},
			{"content too long", "alice", "bob", strings.Repeat("a", testMaxContentLength+1), errors.ErrContentTooLong},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := require.New(t)
				_, err := svc.Send(tt.sender, tt.recipient, tt.content)
				req.ErrorIs(err, tt.wantErr)
				req.Empty(publisher.events)
			})
		}
	})

	t.Run("should fail when recipient does not exist", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		mockUsers.EXPECT().GetByID("ghost").Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, err := svc.Send("alice", "ghost", "anyone there?")

		req.ErrorIs(err, errors.ErrUserNotFound)
		req.Empty(publisher.events)
	})
}

func TestMessageService_MarkRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	t.Run("should publish one batched receipt for the affected ids", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		mockMessages.EXPECT().
			MarkConversationRead("bob", "alice", gomock.Any()).
			Return(ids, nil).
			Times(1)

		got, err := svc.MarkRead("bob", "alice")

		req.NoError(err)
		req.Equal(ids, got)
		req.Len(publisher.events, 1)
		read, ok := publisher.events[0].(event.ConversationRead)
		req.True(ok)
		req.Equal(ids, read.MessageIDs)
		req.Equal("bob", read.ReaderID)
		req.Equal("alice", read.SenderID)
	})

	t.Run("should stay silent when nothing was unread", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		mockMessages.EXPECT().
			MarkConversationRead("bob", "alice", gomock.Any()).
			Return(nil, nil).
			Times(1)

		got, err := svc.MarkRead("bob", "alice")

		req.NoError(err)
		req.Empty(got)
		req.Empty(publisher.events)
	})
}

func TestMessageService_ToggleReaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	mockUsers := mocks.NewMockIUserRepository(ctrl)

	messageID := uuid.New()
	base := domain.Message{ID: messageID, SenderID: "alice", RecipientID: "bob"}

	t.Run("should add the reaction when absent", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		withReaction := base
		withReaction.Reactions = []domain.Reaction{{UserID: "bob", Emoji: "👍"}}

		mockMessages.EXPECT().GetByID(messageID).Return(base, nil).Times(1)
		mockMessages.EXPECT().
			AddReactionIfAbsent(messageID, "bob", "👍").
			Return(withReaction, true, nil).
			Times(1)

		updated, err := svc.ToggleReaction(messageID, "bob", "👍")

		req.NoError(err)
		req.True(updated.HasReaction("bob", "👍"))
		req.Len(publisher.events, 1)
		evt, ok := publisher.events[0].(event.ReactionUpdated)
		req.True(ok)
		req.Equal("bob", evt.ActorID)
	})

	t.Run("should remove the reaction when present", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		withReaction := base
		withReaction.Reactions = []domain.Reaction{{UserID: "bob", Emoji: "👍"}}

		mockMessages.EXPECT().GetByID(messageID).Return(withReaction, nil).Times(1)
		mockMessages.EXPECT().
			RemoveReactionIfPresent(messageID, "bob", "👍").
			Return(base, true, nil).
			Times(1)

		updated, err := svc.ToggleReaction(messageID, "bob", "👍")

		req.NoError(err)
		req.False(updated.HasReaction("bob", "👍"))
		req.Len(publisher.events, 1)
	})

	t.Run("should not publish when the toggle lost the race", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		mockMessages.EXPECT().GetByID(messageID).Return(base, nil).Times(1)
		mockMessages.EXPECT().
			AddReactionIfAbsent(messageID, "bob", "👍").
			Return(base, false, nil).
			Times(1)

		_, err := svc.ToggleReaction(messageID, "bob", "👍")

		req.NoError(err)
		req.Empty(publisher.events)
	})

	t.Run("should reject a user outside the conversation", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		mockMessages.EXPECT().GetByID(messageID).Return(base, nil).Times(1)

		_, err := svc.ToggleReaction(messageID, "mallory", "👍")

		req.ErrorIs(err, errors.ErrUnauthorized)
		req.Empty(publisher.events)
	})

	t.Run("should reject an empty emoji", func(t *testing.T) {
		req := require.New(t)
		publisher := &recordingPublisher{}
		svc := newMessageService(t, mockMessages, mockUsers, publisher)

		_, err := svc.ToggleReaction(messageID, "bob", "")

		req.ErrorIs(err, errors.ErrEmptyEmoji)
	})
}
