// Package presence tracks which users currently hold at least one live
// push connection. Counting connections rather than flipping a boolean
// keeps multi-session users online until their last session closes.
package presence

import (
	"fmt"
	"log/slog"
	"sync"

	"bookswap/domain/event"

	"github.com/google/uuid"
)

type Tracker struct {
	mu     sync.Mutex
	counts map[string]int
	events chan<- event.DomainEvent
	log    *slog.Logger
}

func NewTracker(events chan<- event.DomainEvent, log *slog.Logger) *Tracker {
	return &Tracker{
		counts: make(map[string]int),
		events: events,
		log:    log,
	}
}

// Connect records one more session for the user. A PresenceChanged event
// is published only on the 0->1 transition. The publish stays inside the
// critical section so events are enqueued in transition order.
func (t *Tracker) Connect(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[userID]++
	if t.counts[userID] == 1 {
		t.publish(userID, true)
	}
}

// Disconnect records one session closing. A PresenceChanged event is
// published only on the 1->0 transition. Disconnecting an unknown user
// is a no-op.
func (t *Tracker) Disconnect(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count, ok := t.counts[userID]
	if !ok {
		t.log.Warn(fmt.Sprintf("Disconnect for unknown user %s", userID))
		return
	}
	count--
	if count == 0 {
		delete(t.counts, userID)
		t.publish(userID, false)
		return
	}
	t.counts[userID] = count
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[userID] > 0
}

// Snapshot returns the identities of every user with at least one session.
func (t *Tracker) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	online := make([]string, 0, len(t.counts))
	for userID := range t.counts {
		online = append(online, userID)
	}
	return online
}

// publish never blocks a connect/disconnect on a slow broker.
func (t *Tracker) publish(userID string, online bool) {
	evt := event.PresenceChanged{ID: uuid.New(), UserID: userID, Online: online}
	select {
	case t.events <- evt:
	default:
		t.log.Warn(fmt.Sprintf("Event channel full, dropping presence change for %s", userID))
	}
}
