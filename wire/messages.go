// Package wire defines the push-channel protocol: JSON envelopes exchanged
// over the websocket between the server and connected clients.
package wire

import (
	"encoding/json"
	"time"

	"bookswap/domain"

	"github.com/google/uuid"
)

// Message kinds. The client sends only Authenticate; everything else flows
// server to client.
const (
	KindAuthenticate     = "authenticate"
	KindAuthSuccess      = "auth_success"
	KindAuthError        = "auth_error"
	KindExchangeCreated  = "exchange_created"
	KindStatusUpdate     = "exchange_status_update"
	KindUserOnline       = "user_online"
	KindUserOffline      = "user_offline"
	KindPendingExchanges = "pending_exchanges"
)

// Envelope frames every message. Seq increases monotonically per
// connection for server-to-client messages, so a client can detect
// re-delivery after a transport retry; EventID identifies the underlying
// domain event for deduplication across reconnects of the same session.
type Envelope struct {
	Kind    string          `json:"kind"`
	Seq     uint64          `json:"seq,omitempty"`
	EventID string          `json:"event_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type AuthSuccessPayload struct {
	UserID string `json:"user_id"`
}

type AuthErrorPayload struct {
	Reason string `json:"reason"`
}

// Request mirrors domain.ExchangeRequest on the wire.
type Request struct {
	ID          uuid.UUID `json:"id"`
	ItemID      uuid.UUID `json:"item_id"`
	RequesterID string    `json:"requester_id"`
	OwnerID     string    `json:"owner_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExchangeCreatedPayload struct {
	Request Request `json:"request"`
}

type StatusUpdatePayload struct {
	RequestID uuid.UUID `json:"request_id"`
	ItemID    uuid.UUID `json:"item_id"`
	Status    string    `json:"status"`
	// Auto marks rejections produced by an accept on a sibling request.
	Auto bool `json:"auto,omitempty"`
}

type UserStatusPayload struct {
	UserID string `json:"user_id"`
}

type PendingExchangesPayload struct {
	Requests []Request `json:"requests"`
}

func FromDomain(r domain.ExchangeRequest) Request {
	return Request{
		ID:          r.ID,
		ItemID:      r.ItemID,
		RequesterID: r.RequesterID,
		OwnerID:     r.OwnerID,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
	}
}

func (r Request) ToDomain() domain.ExchangeRequest {
	return domain.ExchangeRequest{
		ID:          r.ID,
		ItemID:      r.ItemID,
		RequesterID: r.RequesterID,
		OwnerID:     r.OwnerID,
		Status:      domain.RequestStatus(r.Status),
		CreatedAt:   r.CreatedAt,
	}
}
