package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected || s == RequestCancelled
}

// ExchangeRequest is a requester's offer to receive an item from its owner.
// It is created pending and mutated exactly once: by the owner (accept,
// reject) or by the requester (cancel), never by both.
type ExchangeRequest struct {
	ID          uuid.UUID     `json:"id"`
	ItemID      uuid.UUID     `json:"item_id"`
	RequesterID string        `json:"requester_id"`
	OwnerID     string        `json:"owner_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

func NewExchangeRequest(itemID uuid.UUID, requesterID, ownerID string) ExchangeRequest {
	return ExchangeRequest{
		ID:          uuid.New(),
		ItemID:      itemID,
		RequesterID: requesterID,
		OwnerID:     ownerID,
		Status:      RequestPending,
		CreatedAt:   time.Now().UTC(),
	}
}
