//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/errors"
)

// Badger transactions are optimistic; concurrent writers touching the
// same keys fail with ErrConflict and are retried.
const maxTxnAttempts = 5

type IMessageRepository interface {
	Create(senderID, recipientID, content, lang string) (domain.Message, error)
	GetByID(id uuid.UUID) (domain.Message, error)
	Conversation(userID, otherID string) ([]domain.Message, error)
	MarkConversationRead(readerID, otherID string, at time.Time) ([]uuid.UUID, error)
	AddReactionIfAbsent(id uuid.UUID, userID, emoji string) (domain.Message, bool, error)
	RemoveReactionIfPresent(id uuid.UUID, userID, emoji string) (domain.Message, bool, error)
	Count() (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// conversationKey normalizes the participant pair so both directions of
// a conversation share one key prefix.
func conversationKey(userID, otherID string) string {
	if strings.Compare(userID, otherID) > 0 {
		userID, otherID = otherID, userID
	}
	return userID + ":" + otherID
}

// messageKey is formatted as "msg:{pair}:{timestamp_padded}:{uuid}":
//  1. The 19-digit zero padded timestamp gives chronological order under
//     Badger's lexicographical iteration.
//  2. The UUID disconnects collisions if two messages share a nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		conversationKey(m.SenderID, m.RecipientID),
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

func messageIDKey(id uuid.UUID) []byte {
	return []byte("msgid:" + id.String())
}

func (r MessageRepository) Create(senderID, recipientID, content, lang string) (domain.Message, error) {
	message := domain.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Lang:        lang,
		CreatedAt:   time.Now().UTC(),
		ReadAt:      nil,
		Reactions:   []domain.Reaction{},
	}
	data, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, err
	}
	key := messageKey(message)
	err = r.update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), key)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return message, nil
}

func (r MessageRepository) GetByID(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		message, _, err = getMessage(txn, id)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Conversation returns every message exchanged between the pair,
// ordered by creation time ascending. Read-only and restartable.
func (r MessageRepository) Conversation(userID, otherID string) ([]domain.Message, error) {
	prefix := []byte("msg:" + conversationKey(userID, otherID) + ":")
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message domain.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return messages, nil
}

// MarkConversationRead sets ReadAt on every unread message sent by
// otherID to readerID, in one transaction. The selection is a
// point-in-time snapshot; messages created afterwards need another call.
func (r MessageRepository) MarkConversationRead(readerID, otherID string, at time.Time) ([]uuid.UUID, error) {
	prefix := []byte("msg:" + conversationKey(readerID, otherID) + ":")
	var ids []uuid.UUID
	err := r.update(func(txn *badger.Txn) error {
		ids = ids[:0]
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var message domain.Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			}); err != nil {
				return err
			}
			if message.SenderID != otherID || message.RecipientID != readerID || message.ReadAt != nil {
				continue
			}
			message.ReadAt = &at
			data, err := json.Marshal(message)
			if err != nil {
				return err
			}
			if err := txn.Set(item.KeyCopy(nil), data); err != nil {
				return err
			}
			ids = append(ids, message.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return ids, nil
}

// AddReactionIfAbsent appends (userID, emoji) unless the triple already
// exists. Set semantics: concurrent duplicate adds collapse to one entry.
// The boolean reports whether the message changed.
func (r MessageRepository) AddReactionIfAbsent(id uuid.UUID, userID, emoji string) (domain.Message, bool, error) {
	return r.updateReactions(id, func(m *domain.Message) bool {
		if m.HasReaction(userID, emoji) {
			return false
		}
		m.Reactions = append(m.Reactions, domain.Reaction{UserID: userID, Emoji: emoji})
		return true
	})
}

// RemoveReactionIfPresent removes (userID, emoji) if the triple exists.
// Other users' and other emojis' reactions are untouched.
func (r MessageRepository) RemoveReactionIfPresent(id uuid.UUID, userID, emoji string) (domain.Message, bool, error) {
	return r.updateReactions(id, func(m *domain.Message) bool {
		for i, reaction := range m.Reactions {
			if reaction.UserID == userID && reaction.Emoji == emoji {
				m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				return true
			}
		}
		return false
	})
}

// updateReactions runs a conditional read-modify-write on one message.
// The whole decision happens inside the transaction, so two devices
// racing on the same message serialize through Badger's conflict check.
func (r MessageRepository) updateReactions(id uuid.UUID, mutate func(*domain.Message) bool) (domain.Message, bool, error) {
	var message domain.Message
	var changed bool
	err := r.update(func(txn *badger.Txn) error {
		m, key, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		changed = mutate(&m)
		message = m
		if !changed {
			return nil
		}
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrMessageNotFound) {
			return domain.Message{}, false, err
		}
		return domain.Message{}, false, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return message, changed, nil
}

// Count reports the total number of stored messages.
func (r MessageRepository) Count() (int, error) {
	count := 0
	prefix := []byte("msgid:")
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return count, nil
}

// getMessage resolves a message through the id index inside txn.
func getMessage(txn *badger.Txn, id uuid.UUID) (domain.Message, []byte, error) {
	item, err := txn.Get(messageIDKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, nil, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, nil, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Message{}, nil, err
	}
	item, err = txn.Get(key)
	if err != nil {
		return domain.Message{}, nil, err
	}
	var message domain.Message
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &message)
	})
	return message, key, err
}

// update retries optimistic transaction conflicts a bounded number of
// times; any other error is returned as-is.
func (r MessageRepository) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		err = r.db.Update(fn)
		if !stderrors.Is(err, badger.ErrConflict) {
			return err
		}
		r.log.Debug("transaction conflict, retrying", "attempt", attempt+1)
	}
	return err
}
