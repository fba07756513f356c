package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pairchat/domain/event"
	"pairchat/errors"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (p *recordingPublisher) Publish(e event.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) offlineEvents() []event.UserOffline {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []event.UserOffline
	for _, e := range p.events {
		if off, ok := e.(event.UserOffline); ok {
			out = append(out, off)
		}
	}
	return out
}

type recordingLastSeen struct {
	mu    sync.Mutex
	calls map[string]time.Time
	err   error
}

func (w *recordingLastSeen) UpdateLastSeen(userID string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.calls == nil {
		w.calls = make(map[string]time.Time)
	}
	w.calls[userID] = at
	return w.err
}

func newTestPresence(t *testing.T, grace time.Duration) (*PresenceRegistry, *recordingPublisher, *recordingLastSeen) {
	t.Helper()
	publisher := &recordingPublisher{}
	lastSeen := &recordingLastSeen{}
	return NewPresenceRegistry(testLogger(), publisher, lastSeen, grace), publisher, lastSeen
}

func Test_Join_Marks_Online_And_Broadcasts(t *testing.T) {
	req := require.New(t)
	registry, publisher, _ := newTestPresence(t, time.Second)
	userID := uuid.NewString()

	// Given an unknown user
	req.False(registry.IsOnline(userID))

	// When the user joins with one connection
	registry.Join(userID, uuid.NewString())

	// Then the user is online and everyone is notified
	req.True(registry.IsOnline(userID))
	req.Equal([]event.DomainEvent{event.UserOnline{UserID: userID}}, publisher.events)
}

func Test_Last_Leave_Goes_Offline_After_Grace(t *testing.T) {
	req := require.New(t)
	registry, publisher, lastSeen := newTestPresence(t, 50*time.Millisecond)
	userID := uuid.NewString()
	connectionID := uuid.NewString()

	start := time.Now().UTC()
	registry.Join(userID, connectionID)
	registry.Leave(userID, connectionID)

	// During the grace period nothing has been broadcast yet
	req.False(registry.IsOnline(userID))
	req.Empty(publisher.offlineEvents())

	// When the grace period elapses without a reconnect
	require.Eventually(t, func() bool {
		return len(publisher.offlineEvents()) == 1
	}, time.Second, 10*time.Millisecond)

	// Then exactly one offline event carries a plausible lastSeen,
	// and the timestamp was persisted
	offline := publisher.offlineEvents()[0]
	req.Equal(userID, offline.UserID)
	req.False(offline.LastSeen.Before(start))
	req.False(offline.LastSeen.After(time.Now().UTC()))
	req.Equal(offline.LastSeen, lastSeen.calls[userID])

	snapshot := registry.Snapshot()
	req.False(snapshot[userID].Online)
	req.NotNil(snapshot[userID].LastSeen)
}

func Test_Rejoin_Within_Grace_Suppresses_Offline(t *testing.T) {
	req := require.New(t)
	registry, publisher, _ := newTestPresence(t, 200*time.Millisecond)
	userID := uuid.NewString()

	// Given a user who disconnects and reconnects quickly
	registry.Join(userID, "conn-1")
	registry.Leave(userID, "conn-1")
	time.Sleep(50 * time.Millisecond)
	registry.Join(userID, "conn-2")

	// When well over the grace period passes
	time.Sleep(400 * time.Millisecond)

	// Then no offline was ever broadcast
	req.Empty(publisher.offlineEvents())
	req.True(registry.IsOnline(userID))
}

func Test_Multiple_Connections_Keep_User_Online(t *testing.T) {
	req := require.New(t)
	registry, publisher, _ := newTestPresence(t, 50*time.Millisecond)
	userID := uuid.NewString()

	registry.Join(userID, "laptop")
	registry.Join(userID, "phone")

	registry.Leave(userID, "laptop")
	time.Sleep(150 * time.Millisecond)

	// One device remains: still online, no offline broadcast
	req.True(registry.IsOnline(userID))
	req.Empty(publisher.offlineEvents())

	registry.Leave(userID, "phone")
	require.Eventually(t, func() bool {
		return len(publisher.offlineEvents()) == 1
	}, time.Second, 10*time.Millisecond)
}

func Test_Stray_Leave_Does_Not_Rearm_Offline(t *testing.T) {
	req := require.New(t)
	registry, publisher, _ := newTestPresence(t, 30*time.Millisecond)
	userID := uuid.NewString()

	registry.Join(userID, "conn-1")
	registry.Leave(userID, "conn-1")
	require.Eventually(t, func() bool {
		return len(publisher.offlineEvents()) == 1
	}, time.Second, 10*time.Millisecond)

	// A duplicate leave for the already-closed connection
	registry.Leave(userID, "conn-1")
	time.Sleep(100 * time.Millisecond)

	req.Len(publisher.offlineEvents(), 1)
}

func Test_LastSeen_Persistence_Failure_Does_Not_Block_Broadcast(t *testing.T) {
	req := require.New(t)
	publisher := &recordingPublisher{}
	lastSeen := &recordingLastSeen{err: errors.ErrStorage}
	registry := NewPresenceRegistry(testLogger(), publisher, lastSeen, 30*time.Millisecond)
	userID := uuid.NewString()

	registry.Join(userID, "conn-1")
	registry.Leave(userID, "conn-1")

	require.Eventually(t, func() bool {
		return len(publisher.offlineEvents()) == 1
	}, time.Second, 10*time.Millisecond)
	req.True(registry.Snapshot()[userID].LastSeen != nil)
}

func Test_Snapshot_Presence_Invariant(t *testing.T) {
	req := require.New(t)
	registry, _, _ := newTestPresence(t, 30*time.Millisecond)

	registry.Join("online-user", "conn-1")
	registry.Join("offline-user", "conn-2")
	registry.Leave("offline-user", "conn-2")

	require.Eventually(t, func() bool {
		return registry.Snapshot()["offline-user"].LastSeen != nil
	}, time.Second, 10*time.Millisecond)

	snapshot := registry.Snapshot()
	// Online users never expose a lastSeen; offline users always do
	req.True(snapshot["online-user"].Online)
	req.Nil(snapshot["online-user"].LastSeen)
	req.False(snapshot["offline-user"].Online)
	req.NotNil(snapshot["offline-user"].LastSeen)
}
