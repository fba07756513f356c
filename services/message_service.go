//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/moderation"
	"pairchat/repositories"
)

type IMessageService interface {
	Send(senderID, recipientID, content string) (domain.Message, error)
	History(userID, otherID string) ([]domain.Message, error)
	MarkRead(readerID, otherID string) ([]uuid.UUID, error)
	ToggleReaction(messageID uuid.UUID, userID, emoji string) (domain.Message, error)
}

// MessageService is the write path for conversations. Events are
// published only after the corresponding state is persisted, so a
// delivered event always describes durable data.
type MessageService struct {
	messages         repositories.IMessageRepository
	users            repositories.IUserRepository
	moderator        moderation.Moderator
	publisher        contract.Publisher
	maxContentLength int
	log              *slog.Logger
}

func NewMessageService(messages repositories.IMessageRepository,
	users repositories.IUserRepository, moderator moderation.Moderator,
	publisher contract.Publisher, maxContentLength int, log *slog.Logger) *MessageService {
	return &MessageService{
		messages:         messages,
		users:            users,
		moderator:        moderator,
		publisher:        publisher,
		maxContentLength: maxContentLength,
		log:              log,
	}
}

func (s *MessageService) Send(senderID, recipientID, content string) (domain.Message, error) {
	if senderID == "" {
		return domain.Message{}, errors.ErrEmptyUserID
	}
	if recipientID == "" {
		return domain.Message{}, errors.ErrMissingRecipient
	}
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if len(content) > s.maxContentLength {
		return domain.Message{}, errors.ErrContentTooLong
	}

	// The recipient must exist before anything is written
	if _, err := s.users.GetByID(recipientID); err != nil {
		return domain.Message{}, err
	}

	sanitized, foundWords := s.moderator.Censor(content)
	if len(foundWords) > 0 {
		s.log.Warn("Censored message content",
			"sender", senderID,
			"words", foundWords)
	}

	info := whatlanggo.Detect(sanitized)
	langCode := info.Lang.Iso6391()

	message, err := s.messages.Create(senderID, recipientID, sanitized, langCode)
	if err != nil {
		return domain.Message{}, err
	}

	s.publisher.Publish(event.MessageCreated{Message: message})
	return message, nil
}

func (s *MessageService) History(userID, otherID string) ([]domain.Message, error) {
	if userID == "" || otherID == "" {
		return nil, errors.ErrEmptyUserID
	}
	return s.messages.Conversation(userID, otherID)
}

// MarkRead stamps every unread message sent by otherID to readerID and
// notifies the sender with the affected ids in one batch.
func (s *MessageService) MarkRead(readerID, otherID string) ([]uuid.UUID, error) {
	if readerID == "" || otherID == "" {
		return nil, errors.ErrEmptyUserID
	}

	ids, err := s.messages.MarkConversationRead(readerID, otherID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	// Nothing was unread, nothing to announce
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}

	s.publisher.Publish(event.ConversationRead{
		MessageIDs: ids,
		ReaderID:   readerID,
		SenderID:   otherID,
	})
	return ids, nil
}

// ToggleReaction adds the reaction when absent and removes it when
// present. The conditional repository primitives make concurrent
// toggles of the same (user, emoji) pair converge instead of racing.
func (s *MessageService) ToggleReaction(messageID uuid.UUID, userID, emoji string) (domain.Message, error) {
	if userID == "" {
		return domain.Message{}, errors.ErrEmptyUserID
	}
	if emoji == "" {
		return domain.Message{}, errors.ErrEmptyEmoji
	}

	current, err := s.messages.GetByID(messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if !current.Involves(userID) {
		return domain.Message{}, errors.ErrUnauthorized
	}

	var updated domain.Message
	var changed bool
	if current.HasReaction(userID, emoji) {
		updated, changed, err = s.messages.RemoveReactionIfPresent(messageID, userID, emoji)
	} else {
		updated, changed, err = s.messages.AddReactionIfAbsent(messageID, userID, emoji)
	}
	if err != nil {
		return domain.Message{}, err
	}

	if changed {
		s.publisher.Publish(event.ReactionUpdated{Message: updated, ActorID: userID})
	}
	return updated, nil
}
