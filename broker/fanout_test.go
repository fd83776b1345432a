package broker

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"bookswap/domain"
	"bookswap/domain/event"
	"bookswap/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	received []event.DomainEvent
	fail     bool
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	if s.fail {
		return errors.ErrConnection
	}
	s.received = append(s.received, e)
	return nil
}

func newTestFanout(roster *Roster, events <-chan event.DomainEvent) *Fanout {
	return NewFanout(slog.Default(), roster, events, time.Second)
}

func exchangeCreated(requesterID, ownerID string) event.ExchangeCreated {
	request := domain.NewExchangeRequest(uuid.New(), requesterID, ownerID)
	return event.ExchangeCreated{ID: uuid.New(), Request: request}
}

func TestDeliver_AddressedEventReachesBothParties(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()
	fanout := newTestFanout(roster, nil)

	// Given the owner, the requester and a bystander are connected
	owner := &recordingSink{}
	requester := &recordingSink{}
	bystander := &recordingSink{}
	roster.Subscribe("owner", "s1", owner)
	roster.Subscribe("requester", "s2", requester)
	roster.Subscribe("bystander", "s3", bystander)

	// When an exchange event is delivered
	evt := exchangeCreated("requester", "owner")
	fanout.Deliver(context.Background(), evt)

	// Then only the two parties receive it
	req.Len(owner.received, 1)
	req.Len(requester.received, 1)
	req.Empty(bystander.received)
	req.Equal(evt.ID, owner.received[0].EventID())
}

func TestDeliver_AddressedEventReachesEverySessionOfAUser(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()
	fanout := newTestFanout(roster, nil)

	tab := &recordingSink{}
	phone := &recordingSink{}
	roster.Subscribe("owner", "s1", tab)
	roster.Subscribe("owner", "s2", phone)

	fanout.Deliver(context.Background(), exchangeCreated("requester", "owner"))

	req.Len(tab.received, 1)
	req.Len(phone.received, 1)
}

func TestDeliver_SelfAddressedAudienceIsDeduplicated(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()
	fanout := newTestFanout(roster, nil)

	sink := &recordingSink{}
	roster.Subscribe("U1", "s1", sink)

	// An event whose audience names the same user twice
	request := domain.NewExchangeRequest(uuid.New(), "U1", "U1")
	fanout.Deliver(context.Background(), event.ExchangeCancelled{ID: uuid.New(), Request: request})

	req.Len(sink.received, 1)
}

func TestDeliver_DisconnectedAudienceIsSkipped(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()
	fanout := newTestFanout(roster, nil)

	requester := &recordingSink{}
	roster.Subscribe("requester", "s1", requester)

	// The owner is offline; nothing is buffered for them
	fanout.Deliver(context.Background(), exchangeCreated("requester", "owner"))

	req.Len(requester.received, 1)
}

func TestDeliver_PresenceChangeIsBroadcast(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()
	fanout := newTestFanout(roster, nil)

	first := &recordingSink{}
	second := &recordingSink{}
	roster.Subscribe("U1", "s1", first)
	roster.Subscribe("U2", "s2", second)

	evt := event.PresenceChanged{ID: uuid.New(), UserID: "U3", Online: true}
	fanout.Deliver(context.Background(), evt)

	req.Len(first.received, 1)
	req.Len(second.received, 1)
}

func TestDeliver_FailingSinkDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()
	fanout := newTestFanout(roster, nil)

	broken := &recordingSink{fail: true}
	healthy := &recordingSink{}
	roster.Subscribe("owner", "s1", broken)
	roster.Subscribe("requester", "s2", healthy)

	fanout.Deliver(context.Background(), exchangeCreated("requester", "owner"))

	req.Len(healthy.received, 1)
}

func TestRun_DrainsChannelUntilContextDone(t *testing.T) {
	req := require.New(t)
	roster := NewRoster()
	sink := &recordingSink{}
	roster.Subscribe("owner", "s1", sink)

	events := make(chan event.DomainEvent, 4)
	fanout := newTestFanout(roster, events)

	first := exchangeCreated("requester", "owner")
	second := exchangeCreated("requester", "owner")
	events <- first
	events <- second
	close(events)

	// Run returns once the channel is closed; events were seen in order
	req.NoError(fanout.Run(context.Background()))
	req.Len(sink.received, 2)
	req.Equal(first.ID, sink.received[0].EventID())
	req.Equal(second.ID, sink.received[1].EventID())
}
