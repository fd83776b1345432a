// Package exchange owns the lifecycle of exchange requests: pending until
// accepted, rejected, or cancelled, all terminal. Every mutation of a given
// item's request set runs under that item's lock, so competing accepts are
// serialized and the accept fan-out (auto-reject of sibling pending
// requests) is atomic with respect to concurrent commands.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"bookswap/domain"
	"bookswap/domain/event"
	"bookswap/errors"

	"github.com/google/uuid"
)

type Service interface {
	CreateRequest(ctx context.Context, itemID uuid.UUID, requesterID string) (*domain.ExchangeRequest, error)
	Accept(ctx context.Context, requestID uuid.UUID, actorID string) (*domain.ExchangeRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID, actorID string) (*domain.ExchangeRequest, error)
	Cancel(ctx context.Context, requestID uuid.UUID, actorID string) (*domain.ExchangeRequest, error)
	ListMyRequests(ctx context.Context, userID string) ([]domain.ExchangeRequest, error)
	ListMyOffers(ctx context.Context, userID string) ([]domain.ExchangeRequest, error)
	PendingOffers(ctx context.Context, userID string) ([]domain.ExchangeRequest, error)
}

// Repository is the storage collaborator. CommitExchange must apply all
// given writes in one transaction: a half-applied accept (item exchanged
// but siblings still pending) is an invariant breach, not a recoverable
// state.
type Repository interface {
	GetItem(ctx context.Context, id uuid.UUID) (domain.Item, error)
	GetRequest(ctx context.Context, id uuid.UUID) (domain.ExchangeRequest, error)
	PendingByItem(ctx context.Context, itemID uuid.UUID) ([]domain.ExchangeRequest, error)
	ByRequester(ctx context.Context, userID string) ([]domain.ExchangeRequest, error)
	ByOwner(ctx context.Context, userID string) ([]domain.ExchangeRequest, error)
	CommitExchange(ctx context.Context, item *domain.Item, requests ...domain.ExchangeRequest) error
}

type Machine struct {
	repo   Repository
	events chan<- event.DomainEvent
	log    *slog.Logger

	mu        sync.Mutex
	itemLocks map[uuid.UUID]*sync.Mutex
}

func NewMachine(repo Repository, events chan<- event.DomainEvent, log *slog.Logger) *Machine {
	return &Machine{
		repo:      repo,
		events:    events,
		log:       log,
		itemLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockItem acquires the single point of serialization for an item.
// Operations on different items proceed in parallel.
func (m *Machine) lockItem(itemID uuid.UUID) func() {
	m.mu.Lock()
	lock, ok := m.itemLocks[itemID]
	if !ok {
		lock = &sync.Mutex{}
		m.itemLocks[itemID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (m *Machine) CreateRequest(ctx context.Context, itemID uuid.UUID, requesterID string) (*domain.ExchangeRequest, error) {
	unlock := m.lockItem(itemID)
	defer unlock()

	item, err := m.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == requesterID {
		return nil, errors.ErrSelfExchange
	}
	if item.Status != domain.ItemAvailable {
		return nil, errors.ErrItemUnavailable
	}

	pending, err := m.repo.PendingByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	for _, p := range pending {
		if p.RequesterID == requesterID {
			return nil, errors.ErrDuplicateRequest
		}
	}

	request := domain.NewExchangeRequest(itemID, requesterID, item.OwnerID)
	if err := m.repo.CommitExchange(ctx, nil, request); err != nil {
		return nil, err
	}

	m.publish(event.ExchangeCreated{ID: uuid.New(), Request: request})
	return &request, nil
}

// Accept transitions the request to accepted, marks the item exchanged and
// auto-rejects every other pending request on the same item, all in one
// transaction. At most one accept per item can ever succeed.
func (m *Machine) Accept(ctx context.Context, requestID uuid.UUID, actorID string) (*domain.ExchangeRequest, error) {
	request, unlock, err := m.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if request.OwnerID != actorID {
		return nil, errors.ErrUnauthorized
	}
	if request.Status != domain.RequestPending {
		return nil, errors.ErrInvalidTransition
	}

	item, err := m.repo.GetItem(ctx, request.ItemID)
	if err != nil {
		return nil, err
	}

	pending, err := m.repo.PendingByItem(ctx, request.ItemID)
	if err != nil {
		return nil, err
	}
	var displaced []domain.ExchangeRequest
	for _, p := range pending {
		if p.ID == request.ID {
			continue
		}
		p.Status = domain.RequestRejected
		displaced = append(displaced, p)
	}

	request.Status = domain.RequestAccepted
	item.Status = domain.ItemExchanged
	if err := m.repo.CommitExchange(ctx, &item, append([]domain.ExchangeRequest{request}, displaced...)...); err != nil {
		return nil, err
	}

	m.publish(event.ExchangeAccepted{ID: uuid.New(), Request: request})
	for _, d := range displaced {
		m.publish(event.ExchangeRejected{ID: uuid.New(), Request: d, Auto: true})
	}
	return &request, nil
}

func (m *Machine) Reject(ctx context.Context, requestID uuid.UUID, actorID string) (*domain.ExchangeRequest, error) {
	request, unlock, err := m.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if request.OwnerID != actorID {
		return nil, errors.ErrUnauthorized
	}
	if request.Status != domain.RequestPending {
		return nil, errors.ErrInvalidTransition
	}

	request.Status = domain.RequestRejected
	if err := m.repo.CommitExchange(ctx, nil, request); err != nil {
		return nil, err
	}

	m.publish(event.ExchangeRejected{ID: uuid.New(), Request: request})
	return &request, nil
}

func (m *Machine) Cancel(ctx context.Context, requestID uuid.UUID, actorID string) (*domain.ExchangeRequest, error) {
	request, unlock, err := m.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if request.RequesterID != actorID {
		return nil, errors.ErrUnauthorized
	}
	if request.Status != domain.RequestPending {
		return nil, errors.ErrInvalidTransition
	}

	request.Status = domain.RequestCancelled
	if err := m.repo.CommitExchange(ctx, nil, request); err != nil {
		return nil, err
	}

	m.publish(event.ExchangeCancelled{ID: uuid.New(), Request: request})
	return &request, nil
}

func (m *Machine) ListMyRequests(ctx context.Context, userID string) ([]domain.ExchangeRequest, error) {
	return m.repo.ByRequester(ctx, userID)
}

func (m *Machine) ListMyOffers(ctx context.Context, userID string) ([]domain.ExchangeRequest, error) {
	return m.repo.ByOwner(ctx, userID)
}

// PendingOffers is the snapshot pushed to an owner right after the push
// channel handshake succeeds.
func (m *Machine) PendingOffers(ctx context.Context, userID string) ([]domain.ExchangeRequest, error) {
	offers, err := m.repo.ByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	var pending []domain.ExchangeRequest
	for _, offer := range offers {
		if offer.Status == domain.RequestPending {
			pending = append(pending, offer)
		}
	}
	return pending, nil
}

// lockRequest resolves the request's item and takes its lock, then
// re-reads the request under the lock. The first read may race with a
// concurrent transition; the re-read cannot, and ItemID never changes.
func (m *Machine) lockRequest(ctx context.Context, requestID uuid.UUID) (domain.ExchangeRequest, func(), error) {
	request, err := m.repo.GetRequest(ctx, requestID)
	if err != nil {
		return domain.ExchangeRequest{}, nil, err
	}

	unlock := m.lockItem(request.ItemID)
	request, err = m.repo.GetRequest(ctx, requestID)
	if err != nil {
		unlock()
		return domain.ExchangeRequest{}, nil, err
	}
	return request, unlock, nil
}

// publish is fire-and-forget: a full broker channel must not fail the
// command that produced the event.
func (m *Machine) publish(e event.DomainEvent) {
	select {
	case m.events <- e:
	default:
		m.log.Warn(fmt.Sprintf("Event channel full, dropping %T", e))
	}
}
