package runtime

import (
	"sync"

	"pairchat/contract"
)

type Set map[string]struct{}

// Registry is the room directory: it resolves a user id to the sinks of
// every live connection of that user. Fan-out to a user's room walks
// this map; a user with no connections simply resolves to no sinks.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink // connection id -> sink
	roomMembers map[string]Set                // user id -> connection ids
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		roomMembers: make(map[string]Set),
	}
}

// Subscribe registers a connection's sink under the user's room.
// If the room does not yet exist it is initialized on the fly.
func (r *Registry) Subscribe(userID, connectionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connectionID] = sink

	if _, ok := r.roomMembers[userID]; !ok {
		r.roomMembers[userID] = make(Set)
	}
	r.roomMembers[userID][connectionID] = struct{}{}
}

// Unsubscribe removes a connection from its room. Empty rooms are
// deleted to prevent the map growing over time.
func (r *Registry) Unsubscribe(userID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, connectionID)

	if members, ok := r.roomMembers[userID]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.roomMembers, userID)
		}
	}
}

// SinksFor retrieves all active sinks for one user's room.
// Returns nil if the user has no live connections.
func (r *Registry) SinksFor(userID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[userID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for connectionID := range members {
		if sink, exists := r.sessions[connectionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// AllSinks retrieves every connected sink, used for broadcast events.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}
