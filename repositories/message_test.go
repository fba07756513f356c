package repositories

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pairchat/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Conversation_Is_Ordered_And_Bidirectional(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	// Given messages flowing in both directions
	first, err := repository.Create("alice", "bob", "hi", "en")
	req.NoError(err)
	second, err := repository.Create("bob", "alice", "hey", "en")
	req.NoError(err)
	third, err := repository.Create("alice", "bob", "how are you?", "en")
	req.NoError(err)

	// When fetching the conversation from either side
	fromAlice, err := repository.Conversation("alice", "bob")
	req.NoError(err)
	fromBob, err := repository.Conversation("bob", "alice")
	req.NoError(err)

	// Then both see the same history, creation time ascending
	req.Len(fromAlice, 3)
	req.Equal(fromAlice, fromBob)
	req.Equal(first.ID, fromAlice[0].ID)
	req.Equal(second.ID, fromAlice[1].ID)
	req.Equal(third.ID, fromAlice[2].ID)
	req.Nil(fromAlice[0].ReadAt)
	req.Empty(fromAlice[0].Reactions)
}

func Test_Conversation_Does_Not_Leak_Other_Pairs(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	_, err := repository.Create("alice", "bob", "for bob", "en")
	req.NoError(err)
	_, err = repository.Create("alice", "clara", "for clara", "en")
	req.NoError(err)

	messages, err := repository.Conversation("alice", "bob")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("for bob", messages[0].Content)
}

func Test_Mark_Conversation_Read_Batch(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	// Given two unread messages from alice to bob and one the other way
	m1, err := repository.Create("alice", "bob", "one", "en")
	req.NoError(err)
	m2, err := repository.Create("alice", "bob", "two", "en")
	req.NoError(err)
	_, err = repository.Create("bob", "alice", "reply", "en")
	req.NoError(err)

	// When bob marks the conversation read
	at := time.Now().UTC()
	ids, err := repository.MarkConversationRead("bob", "alice", at)
	req.NoError(err)

	// Then only alice's messages to bob are selected
	req.ElementsMatch([]uuid.UUID{m1.ID, m2.ID}, ids)

	messages, err := repository.Conversation("alice", "bob")
	req.NoError(err)
	for _, m := range messages {
		if m.SenderID == "alice" {
			req.NotNil(m.ReadAt)
			req.Equal(at.UnixNano(), m.ReadAt.UnixNano())
		} else {
			req.Nil(m.ReadAt)
		}
	}
}

func Test_Mark_Conversation_Read_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	first, err := repository.Create("alice", "bob", "one", "en")
	req.NoError(err)

	firstAt := time.Now().UTC()
	ids, err := repository.MarkConversationRead("bob", "alice", firstAt)
	req.NoError(err)
	req.Len(ids, 1)

	// A second call with no new messages selects nothing and never
	// reverts or advances the original timestamp
	ids, err = repository.MarkConversationRead("bob", "alice", firstAt.Add(time.Minute))
	req.NoError(err)
	req.Empty(ids)

	messages, err := repository.Conversation("alice", "bob")
	req.NoError(err)
	req.Equal(first.ID, messages[0].ID)
	req.Equal(firstAt.UnixNano(), messages[0].ReadAt.UnixNano())
}

func Test_Reaction_Add_Then_Remove(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	message, err := repository.Create("alice", "bob", "hello", "en")
	req.NoError(err)

	updated, changed, err := repository.AddReactionIfAbsent(message.ID, "bob", "👍")
	req.NoError(err)
	req.True(changed)
	req.Len(updated.Reactions, 1)

	// Adding the same triple again is a no-op
	updated, changed, err = repository.AddReactionIfAbsent(message.ID, "bob", "👍")
	req.NoError(err)
	req.False(changed)
	req.Len(updated.Reactions, 1)

	// A different emoji or user is a separate entry
	updated, changed, err = repository.AddReactionIfAbsent(message.ID, "alice", "👍")
	req.NoError(err)
	req.True(changed)
	req.Len(updated.Reactions, 2)

	// Removing only drops the exact triple
	updated, changed, err = repository.RemoveReactionIfPresent(message.ID, "bob", "👍")
	req.NoError(err)
	req.True(changed)
	req.Len(updated.Reactions, 1)
	req.Equal("alice", updated.Reactions[0].UserID)

	updated, changed, err = repository.RemoveReactionIfPresent(message.ID, "bob", "👍")
	req.NoError(err)
	req.False(changed)
	req.Len(updated.Reactions, 1)
}

func Test_Reaction_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	_, _, err := repository.AddReactionIfAbsent(uuid.New(), "bob", "👍")
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_Concurrent_Reaction_Adds_Collapse_To_One(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	message, err := repository.Create("alice", "bob", "hello", "en")
	req.NoError(err)

	// Two devices of the same user race on the same triple
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = repository.AddReactionIfAbsent(message.ID, "bob", "👍")
		}(i)
	}
	wg.Wait()
	req.NoError(errs[0])
	req.NoError(errs[1])

	// Exactly one reaction exists afterwards, not zero, not two
	final, err := repository.GetByID(message.ID)
	req.NoError(err)
	req.Len(final.Reactions, 1)
}

func Test_Count_Messages(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	count, err := repository.Count()
	req.NoError(err)
	req.Zero(count)

	_, err = repository.Create("alice", "bob", "one", "en")
	req.NoError(err)
	_, err = repository.Create("clara", "dan", "two", "en")
	req.NoError(err)

	count, err = repository.Count()
	req.NoError(err)
	req.Equal(2, count)
}
