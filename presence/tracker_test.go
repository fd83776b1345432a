package presence

import (
	"log/slog"
	"sync"
	"testing"

	"bookswap/domain/event"

	"github.com/stretchr/testify/require"
)

func drain(events chan event.DomainEvent) []event.PresenceChanged {
	var drained []event.PresenceChanged
	for {
		select {
		case e := <-events:
			drained = append(drained, e.(event.PresenceChanged))
		default:
			return drained
		}
	}
}

func TestTracker_FirstConnectionEmitsOnline(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 8)
	tracker := NewTracker(events, slog.Default())

	// Given no sessions
	req.False(tracker.IsOnline("U4"))

	// When the first session connects
	tracker.Connect("U4")

	// Then the user is online and exactly one event was published
	req.True(tracker.IsOnline("U4"))
	emitted := drain(events)
	req.Len(emitted, 1)
	req.Equal("U4", emitted[0].UserID)
	req.True(emitted[0].Online)
}

// Scenario: two sessions, one disconnect keeps the user online; the second
// disconnect emits exactly one offline event.
func TestTracker_MultiSessionOfflineOnlyOnLastDisconnect(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 8)
	tracker := NewTracker(events, slog.Default())

	tracker.Connect("U4")
	tracker.Connect("U4")

	// The second connection emits nothing
	emitted := drain(events)
	req.Len(emitted, 1)

	// When one of the two sessions disconnects
	tracker.Disconnect("U4")
	req.True(tracker.IsOnline("U4"))
	req.Empty(drain(events))

	// When the last session disconnects
	tracker.Disconnect("U4")
	req.False(tracker.IsOnline("U4"))

	emitted = drain(events)
	req.Len(emitted, 1)
	req.Equal("U4", emitted[0].UserID)
	req.False(emitted[0].Online)
}

func TestTracker_DisconnectUnknownUserIsNoop(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 8)
	tracker := NewTracker(events, slog.Default())

	tracker.Disconnect("ghost")

	req.False(tracker.IsOnline("ghost"))
	req.Empty(drain(events))
}

// Events must hit the channel in transition order: an online event
// enqueued after a racing offline one would leave subscribers showing the
// user offline while IsOnline reports true.
func TestTracker_EventOrderMatchesTransitions(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 4096)
	tracker := NewTracker(events, slog.Default())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 250 {
				tracker.Connect("U1")
				tracker.Disconnect("U1")
			}
		}()
	}
	wg.Wait()

	// Transitions strictly alternate 0->1 and 1->0, so the published
	// sequence must alternate online/offline starting online
	emitted := drain(events)
	req.NotEmpty(emitted)
	req.Zero(len(emitted) % 2)
	for i, e := range emitted {
		req.Equal(i%2 == 0, e.Online)
	}
	req.False(tracker.IsOnline("U1"))
}

func TestTracker_Snapshot(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 8)
	tracker := NewTracker(events, slog.Default())

	tracker.Connect("U1")
	tracker.Connect("U2")
	tracker.Connect("U2")
	tracker.Disconnect("U1")

	online := tracker.Snapshot()
	req.Len(online, 1)
	req.Contains(online, "U2")
}
