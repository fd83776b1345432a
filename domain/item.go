// Package domain contains core concepts of the book exchange system.
// This file defines Item entities and their availability states.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemExchanged ItemStatus = "exchanged"
)

// Item is an exchangeable entity (a book). The exchange core only
// reads and writes Status; everything else belongs to the catalog.
type Item struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	Status    ItemStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewItem(ownerID, title, author string) Item {
	return Item{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Author:    author,
		Status:    ItemAvailable,
		CreatedAt: time.Now().UTC(),
	}
}
