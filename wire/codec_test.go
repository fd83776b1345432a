package wire

import (
	"encoding/json"
	"testing"

	"bookswap/domain"
	"bookswap/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEncode_ExchangeCreated(t *testing.T) {
	req := require.New(t)

	request := domain.NewExchangeRequest(uuid.New(), "U2", "U1")
	evt := event.ExchangeCreated{ID: uuid.New(), Request: request}

	env, err := Encode(evt, 3)
	req.NoError(err)
	req.Equal(KindExchangeCreated, env.Kind)
	req.Equal(uint64(3), env.Seq)
	req.Equal(evt.ID.String(), env.EventID)

	var payload ExchangeCreatedPayload
	req.NoError(json.Unmarshal(env.Payload, &payload))
	req.Equal(request.ID, payload.Request.ID)
	req.Equal("pending", payload.Request.Status)

	decoded, err := Decode(env)
	req.NoError(err)
	created, ok := decoded.(event.ExchangeCreated)
	req.True(ok)
	req.Equal(evt.ID, created.ID)
	req.Equal(request.ID, created.Request.ID)
	req.Equal(request.RequesterID, created.Request.RequesterID)
}

func TestEncode_AutoRejectionKeepsTheFlag(t *testing.T) {
	req := require.New(t)

	request := domain.NewExchangeRequest(uuid.New(), "U3", "U1")
	request.Status = domain.RequestRejected
	evt := event.ExchangeRejected{ID: uuid.New(), Request: request, Auto: true}

	env, err := Encode(evt, 7)
	req.NoError(err)
	req.Equal(KindStatusUpdate, env.Kind)

	decoded, err := Decode(env)
	req.NoError(err)
	rejected, ok := decoded.(event.ExchangeRejected)
	req.True(ok)
	req.True(rejected.Auto)
	req.Equal(domain.RequestRejected, rejected.Request.Status)
}

func TestEncode_StatusUpdateVariants(t *testing.T) {
	request := domain.NewExchangeRequest(uuid.New(), "U2", "U1")

	tests := []struct {
		name   string
		status domain.RequestStatus
		build  func(r domain.ExchangeRequest) event.DomainEvent
	}{
		{
			name:   "accepted",
			status: domain.RequestAccepted,
			build: func(r domain.ExchangeRequest) event.DomainEvent {
				return event.ExchangeAccepted{ID: uuid.New(), Request: r}
			},
		},
		{
			name:   "cancelled",
			status: domain.RequestCancelled,
			build: func(r domain.ExchangeRequest) event.DomainEvent {
				return event.ExchangeCancelled{ID: uuid.New(), Request: r}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			r := request
			r.Status = tt.status
			evt := tt.build(r)

			env, err := Encode(evt, 1)
			req.NoError(err)
			req.Equal(KindStatusUpdate, env.Kind)

			decoded, err := Decode(env)
			req.NoError(err)
			req.Equal(evt.EventID(), decoded.EventID())
			req.IsType(evt, decoded)
		})
	}
}

func TestEncode_PresenceChanged(t *testing.T) {
	req := require.New(t)

	online := event.PresenceChanged{ID: uuid.New(), UserID: "U5", Online: true}
	env, err := Encode(online, 1)
	req.NoError(err)
	req.Equal(KindUserOnline, env.Kind)

	offline := event.PresenceChanged{ID: uuid.New(), UserID: "U5", Online: false}
	env, err = Encode(offline, 2)
	req.NoError(err)
	req.Equal(KindUserOffline, env.Kind)

	decoded, err := Decode(env)
	req.NoError(err)
	presence, ok := decoded.(event.PresenceChanged)
	req.True(ok)
	req.Equal("U5", presence.UserID)
	req.False(presence.Online)
}

func TestDecode_RejectsMalformedEnvelopes(t *testing.T) {
	req := require.New(t)

	// Missing event id
	_, err := Decode(Envelope{Kind: KindUserOnline, Payload: json.RawMessage(`{}`)})
	req.Error(err)

	// Unknown kind
	_, err = Decode(Envelope{Kind: "shrug", EventID: uuid.NewString()})
	req.Error(err)

	// Status update with a non-terminal status
	payload, marshalErr := json.Marshal(StatusUpdatePayload{RequestID: uuid.New(), Status: "pending"})
	req.NoError(marshalErr)
	_, err = Decode(Envelope{Kind: KindStatusUpdate, EventID: uuid.NewString(), Payload: payload})
	req.Error(err)
}

func TestRequest_DomainRoundTrip(t *testing.T) {
	req := require.New(t)

	original := domain.NewExchangeRequest(uuid.New(), "U2", "U1")
	req.Equal(original, FromDomain(original).ToDomain())
}
