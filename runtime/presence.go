// Package runtime owns the live coordination state of the server: which
// users are reachable, which sinks their connections expose, and the
// event pipeline that fans server events out to them.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
)

// LastSeenWriter persists the offline transition time. Failures are
// logged and never block the presence broadcast.
type LastSeenWriter interface {
	UpdateLastSeen(userID string, at time.Time) error
}

// presenceEntry tracks one user's live connections.
// Invariant: lastSeen is non-nil iff conns is empty (once any grace
// period has resolved). graceEpoch invalidates stale timer fires: a
// Join or a newer Leave bumps it, so an already-expired timer callback
// that lost the race becomes a no-op.
type presenceEntry struct {
	conns      map[string]struct{}
	lastSeen   *time.Time
	graceTimer *time.Timer
	graceEpoch uint64
}

// PresenceRegistry is the authoritative user -> live connections map.
// Entries are created lazily on first join and never deleted; an entry
// with an empty connection set is valid offline state.
type PresenceRegistry struct {
	mu        sync.Mutex
	entries   map[string]*presenceEntry
	grace     time.Duration
	publisher contract.Publisher
	lastSeen  LastSeenWriter
	log       *slog.Logger
}

func NewPresenceRegistry(log *slog.Logger, publisher contract.Publisher,
	lastSeen LastSeenWriter, grace time.Duration) *PresenceRegistry {
	return &PresenceRegistry{
		entries:   make(map[string]*presenceEntry),
		grace:     grace,
		publisher: publisher,
		lastSeen:  lastSeen,
		log:       log,
	}
}

// Join adds a connection to the user's live set, cancelling any pending
// offline grace timer. The online broadcast happens on every join, so a
// client joining from a new device refreshes everyone's view.
func (r *PresenceRegistry) Join(userID, connectionID string) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok {
		entry = &presenceEntry{conns: make(map[string]struct{})}
		r.entries[userID] = entry
	}
	entry.conns[connectionID] = struct{}{}
	entry.lastSeen = nil
	entry.graceEpoch++
	if entry.graceTimer != nil {
		entry.graceTimer.Stop()
		entry.graceTimer = nil
	}
	r.mu.Unlock()

	r.publisher.Publish(event.UserOnline{UserID: userID})
}

// Leave removes a connection. When the live set empties the user is not
// reported offline immediately: a grace timer absorbs fast reconnects
// (tab refresh, brief network blip).
func (r *PresenceRegistry) Leave(userID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok {
		return
	}
	if _, live := entry.conns[connectionID]; !live {
		// Stray leave for a connection we no longer track; re-arming
		// the grace timer here could double the offline broadcast.
		return
	}
	delete(entry.conns, connectionID)
	if len(entry.conns) > 0 {
		return
	}

	entry.graceEpoch++
	epoch := entry.graceEpoch
	if entry.graceTimer != nil {
		entry.graceTimer.Stop()
	}
	entry.graceTimer = time.AfterFunc(r.grace, func() {
		r.expire(userID, epoch)
	})
}

// expire is the grace timer callback. It re-checks the live state under
// the lock: the set may have been repopulated, or a newer leave may own
// the pending transition. The epoch guard makes the offline transition
// fire exactly once.
func (r *PresenceRegistry) expire(userID string, epoch uint64) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok || entry.graceEpoch != epoch || len(entry.conns) > 0 {
		r.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	entry.lastSeen = &now
	entry.graceTimer = nil
	r.mu.Unlock()

	// Persistence is best-effort and runs outside the lock.
	if err := r.lastSeen.UpdateLastSeen(userID, now); err != nil {
		r.log.Warn(fmt.Sprintf("Failed to persist lastSeen for %s", userID), "error", err)
	}
	r.publisher.Publish(event.UserOffline{UserID: userID, LastSeen: now})
}

func (r *PresenceRegistry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[userID]
	return ok && len(entry.conns) > 0
}

// Snapshot returns the presence view of every known user, used to
// enrich user listings.
func (r *PresenceRegistry) Snapshot() map[string]domain.Presence {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]domain.Presence, len(r.entries))
	for userID, entry := range r.entries {
		snapshot[userID] = domain.Presence{
			Online:   len(entry.conns) > 0,
			LastSeen: entry.lastSeen,
		}
	}
	return snapshot
}
