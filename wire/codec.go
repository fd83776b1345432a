package wire

import (
	"encoding/json"
	"fmt"

	"bookswap/domain"
	"bookswap/domain/event"

	"github.com/google/uuid"
)

// Encode turns a domain event into its wire envelope. The caller supplies
// the per-connection sequence number.
func Encode(e event.DomainEvent, seq uint64) (Envelope, error) {
	var kind string
	var payload any

	switch evt := e.(type) {
	case event.ExchangeCreated:
		kind = KindExchangeCreated
		payload = ExchangeCreatedPayload{Request: FromDomain(evt.Request)}
	case event.ExchangeAccepted:
		kind = KindStatusUpdate
		payload = StatusUpdatePayload{
			RequestID: evt.Request.ID,
			ItemID:    evt.Request.ItemID,
			Status:    string(evt.Request.Status),
		}
	case event.ExchangeRejected:
		kind = KindStatusUpdate
		payload = StatusUpdatePayload{
			RequestID: evt.Request.ID,
			ItemID:    evt.Request.ItemID,
			Status:    string(evt.Request.Status),
			Auto:      evt.Auto,
		}
	case event.ExchangeCancelled:
		kind = KindStatusUpdate
		payload = StatusUpdatePayload{
			RequestID: evt.Request.ID,
			ItemID:    evt.Request.ItemID,
			Status:    string(evt.Request.Status),
		}
	case event.PresenceChanged:
		if evt.Online {
			kind = KindUserOnline
		} else {
			kind = KindUserOffline
		}
		payload = UserStatusPayload{UserID: evt.UserID}
	default:
		return Envelope{}, fmt.Errorf("unsupported event type %T", e)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Kind:    kind,
		Seq:     seq,
		EventID: e.EventID().String(),
		Payload: raw,
	}, nil
}

// Decode rebuilds the domain event carried by a server-to-client envelope.
// Status updates carry only request id, item and status, so the request
// inside the resulting event holds just those fields.
func Decode(env Envelope) (event.DomainEvent, error) {
	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		return nil, fmt.Errorf("envelope %s has no valid event id: %w", env.Kind, err)
	}

	switch env.Kind {
	case KindExchangeCreated:
		var p ExchangeCreatedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.ExchangeCreated{ID: eventID, Request: p.Request.ToDomain()}, nil

	case KindStatusUpdate:
		var p StatusUpdatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		request := domain.ExchangeRequest{
			ID:     p.RequestID,
			ItemID: p.ItemID,
			Status: domain.RequestStatus(p.Status),
		}
		switch request.Status {
		case domain.RequestAccepted:
			return event.ExchangeAccepted{ID: eventID, Request: request}, nil
		case domain.RequestRejected:
			return event.ExchangeRejected{ID: eventID, Request: request, Auto: p.Auto}, nil
		case domain.RequestCancelled:
			return event.ExchangeCancelled{ID: eventID, Request: request}, nil
		default:
			return nil, fmt.Errorf("status update with unexpected status %q", p.Status)
		}

	case KindUserOnline, KindUserOffline:
		var p UserStatusPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return event.PresenceChanged{
			ID:     eventID,
			UserID: p.UserID,
			Online: env.Kind == KindUserOnline,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported envelope kind %q", env.Kind)
	}
}
