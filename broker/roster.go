package broker

import (
	"sync"

	"bookswap/contract"
)

// Roster maps each connected user to their active push sessions. A user
// with several open sessions (two browser tabs, a phone) gets every event
// delivered to each of them.
type Roster struct {
	mu       sync.RWMutex
	sessions map[string]map[string]contract.EventSink // user -> session -> sink
}

func NewRoster() *Roster {
	return &Roster{sessions: make(map[string]map[string]contract.EventSink)}
}

// Subscribe registers an authenticated session's sink under its user.
func (r *Roster) Subscribe(userID, sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; !ok {
		r.sessions[userID] = make(map[string]contract.EventSink)
	}
	r.sessions[userID][sessionID] = sink
}

// Unsubscribe removes a session. No empty per-user maps are left behind.
func (r *Roster) Unsubscribe(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sinks, ok := r.sessions[userID]; ok {
		delete(sinks, sessionID)
		if len(sinks) == 0 {
			delete(r.sessions, userID)
		}
	}
}

// SinksFor returns the active sinks of one user. Nil if none are connected.
func (r *Roster) SinksFor(userID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := r.sessions[userID]
	if len(sinks) == 0 {
		return nil
	}
	active := make([]contract.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		active = append(active, sink)
	}
	return active
}

// AllSinks returns every connected sink, for broadcast events.
func (r *Roster) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []contract.EventSink
	for _, sinks := range r.sessions {
		for _, sink := range sinks {
			active = append(active, sink)
		}
	}
	return active
}
