// Package projection builds the client-local view from pushed events.
// It handles deduplication and read state; it never emits events and
// holds no server-side state.
package projection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookswap/domain"
	"bookswap/domain/event"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	KindExchangeCreated NotificationKind = "exchange_created"
	KindStatusUpdate    NotificationKind = "status_update"
)

// Notification is the client-local projection of one domain event.
// Created on receipt, mutated only by the owning client.
type Notification struct {
	EventID   uuid.UUID
	Kind      NotificationKind
	RequestID uuid.UUID
	ItemID    uuid.UUID
	Status    domain.RequestStatus
	Message   string
	At        time.Time
	Read      bool
}

// Inbox is a per-session reconciliation store. Ingestion is idempotent on
// event id, so at-least-once delivery cannot create duplicate
// notifications. Insertion order is preserved.
type Inbox struct {
	mu      sync.Mutex
	seen    map[uuid.UUID]int // event id -> index into entries
	entries []Notification
	online  map[string]bool
}

func NewInbox() *Inbox {
	return &Inbox{
		seen:   make(map[uuid.UUID]int),
		online: make(map[string]bool),
	}
}

func (i *Inbox) Consume(_ context.Context, e event.DomainEvent) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch evt := e.(type) {
	case event.PresenceChanged:
		i.online[evt.UserID] = evt.Online
	case event.ExchangeCreated:
		i.upsert(notificationFromCreated(evt))
	case event.ExchangeAccepted:
		i.upsert(statusNotification(evt.ID, evt.Request, "accepted"))
	case event.ExchangeRejected:
		i.upsert(statusNotification(evt.ID, evt.Request, "rejected"))
	case event.ExchangeCancelled:
		i.upsert(statusNotification(evt.ID, evt.Request, "cancelled"))
	}
	return nil
}

func (i *Inbox) upsert(n Notification) {
	if _, ok := i.seen[n.EventID]; ok {
		return
	}
	i.seen[n.EventID] = len(i.entries)
	i.entries = append(i.entries, n)
}

// Unread returns unread notifications in insertion order.
func (i *Inbox) Unread() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	var unread []Notification
	for _, n := range i.entries {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread
}

// All returns every notification in insertion order.
func (i *Inbox) All() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Notification(nil), i.entries...)
}

// MarkRead flags one notification as read. Returns false for unknown ids.
func (i *Inbox) MarkRead(eventID uuid.UUID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	idx, ok := i.seen[eventID]
	if !ok {
		return false
	}
	i.entries[idx].Read = true
	return true
}

// Clear drops all notifications. Presence state is kept: it reflects who
// is online now, not what was delivered.
func (i *Inbox) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries = nil
	i.seen = make(map[uuid.UUID]int)
}

// IsOnline defaults to offline for users no presence event was seen for.
func (i *Inbox) IsOnline(userID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.online[userID]
}

func notificationFromCreated(evt event.ExchangeCreated) Notification {
	return Notification{
		EventID:   evt.ID,
		Kind:      KindExchangeCreated,
		RequestID: evt.Request.ID,
		ItemID:    evt.Request.ItemID,
		Status:    evt.Request.Status,
		Message:   fmt.Sprintf("New exchange request from %s", evt.Request.RequesterID),
		At:        time.Now().UTC(),
	}
}

func statusNotification(eventID uuid.UUID, request domain.ExchangeRequest, verb string) Notification {
	return Notification{
		EventID:   eventID,
		Kind:      KindStatusUpdate,
		RequestID: request.ID,
		ItemID:    request.ItemID,
		Status:    request.Status,
		Message:   fmt.Sprintf("Exchange request %s was %s", request.ID, verb),
		At:        time.Now().UTC(),
	}
}
