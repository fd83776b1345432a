// Package event defines the domain events pushed to connected clients.
// Events are immutable once emitted. Each carries a unique id used for
// deduplication on the receiving side; delivery order and per-connection
// sequence numbers are the transport's concern, not the event's.
package event

import (
	"bookswap/domain"

	"github.com/google/uuid"
)

type DomainEvent interface {
	EventID() uuid.UUID
}

// Addressed events are delivered only to the users in their audience.
// Events without an audience are broadcast to every connected session.
type Addressed interface {
	DomainEvent
	Audience() []string
}

type ExchangeCreated struct {
	ID      uuid.UUID
	Request domain.ExchangeRequest
}

func (e ExchangeCreated) EventID() uuid.UUID { return e.ID }

func (e ExchangeCreated) Audience() []string {
	return []string{e.Request.OwnerID, e.Request.RequesterID}
}

type ExchangeAccepted struct {
	ID      uuid.UUID
	Request domain.ExchangeRequest
}

func (e ExchangeAccepted) EventID() uuid.UUID { return e.ID }

func (e ExchangeAccepted) Audience() []string {
	return []string{e.Request.OwnerID, e.Request.RequesterID}
}

type ExchangeRejected struct {
	ID      uuid.UUID
	Request domain.ExchangeRequest
	// Auto marks a sibling pending request displaced by an accept
	// rather than an explicit owner decision.
	Auto bool
}

func (e ExchangeRejected) EventID() uuid.UUID { return e.ID }

func (e ExchangeRejected) Audience() []string {
	return []string{e.Request.OwnerID, e.Request.RequesterID}
}

type ExchangeCancelled struct {
	ID      uuid.UUID
	Request domain.ExchangeRequest
}

func (e ExchangeCancelled) EventID() uuid.UUID { return e.ID }

func (e ExchangeCancelled) Audience() []string {
	return []string{e.Request.OwnerID, e.Request.RequesterID}
}

// PresenceChanged is emitted on a user's first connection and after their
// last session closes, never on intermediate session counts.
type PresenceChanged struct {
	ID     uuid.UUID
	UserID string
	Online bool
}

func (e PresenceChanged) EventID() uuid.UUID { return e.ID }
