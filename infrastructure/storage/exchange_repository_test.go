package storage

import (
	"context"
	"testing"

	"bookswap/domain"
	"bookswap/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func TestExchangeRepository_GetRequestNotFound(t *testing.T) {
	req := require.New(t)
	repo := NewExchangeRepository(openTestDB(t))

	_, err := repo.GetRequest(context.Background(), uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestExchangeRepository_CommitAndRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewExchangeRepository(openTestDB(t))

	// Given a stored item and one pending request against it
	item := domain.NewItem("U1", "Dune", "Frank Herbert")
	request := domain.NewExchangeRequest(item.ID, "U2", "U1")
	req.NoError(repo.CommitExchange(ctx, &item, request))

	// Then both read back intact
	storedItem, err := repo.GetItem(ctx, item.ID)
	req.NoError(err)
	req.Equal(item.ID, storedItem.ID)
	req.Equal(domain.ItemAvailable, storedItem.Status)

	storedRequest, err := repo.GetRequest(ctx, request.ID)
	req.NoError(err)
	req.Equal(request.ID, storedRequest.ID)
	req.Equal(domain.RequestPending, storedRequest.Status)
}

// An accept writes the item flip, the winning request and every rejected
// sibling in one transaction.
func TestExchangeRepository_CommitExchangeIsAtomicAcrossRequests(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewExchangeRepository(openTestDB(t))

	item := domain.NewItem("U1", "Dune", "Frank Herbert")
	winner := domain.NewExchangeRequest(item.ID, "U2", "U1")
	loser := domain.NewExchangeRequest(item.ID, "U3", "U1")
	req.NoError(repo.CommitExchange(ctx, &item, winner, loser))

	item.Status = domain.ItemExchanged
	winner.Status = domain.RequestAccepted
	loser.Status = domain.RequestRejected
	req.NoError(repo.CommitExchange(ctx, &item, winner, loser))

	storedItem, err := repo.GetItem(ctx, item.ID)
	req.NoError(err)
	req.Equal(domain.ItemExchanged, storedItem.Status)

	storedWinner, err := repo.GetRequest(ctx, winner.ID)
	req.NoError(err)
	req.Equal(domain.RequestAccepted, storedWinner.Status)

	storedLoser, err := repo.GetRequest(ctx, loser.ID)
	req.NoError(err)
	req.Equal(domain.RequestRejected, storedLoser.Status)
}

func TestExchangeRepository_PendingByItemFiltersTerminal(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewExchangeRepository(openTestDB(t))

	item := domain.NewItem("U1", "Dune", "Frank Herbert")
	pending := domain.NewExchangeRequest(item.ID, "U2", "U1")
	rejected := domain.NewExchangeRequest(item.ID, "U3", "U1")
	rejected.Status = domain.RequestRejected
	otherItem := domain.NewItem("U1", "Solaris", "Stanislaw Lem")
	unrelated := domain.NewExchangeRequest(otherItem.ID, "U4", "U1")
	req.NoError(repo.CommitExchange(ctx, &item, pending, rejected))
	req.NoError(repo.CommitExchange(ctx, &otherItem, unrelated))

	got, err := repo.PendingByItem(ctx, item.ID)
	req.NoError(err)
	req.Len(got, 1)
	req.Equal(pending.ID, got[0].ID)
}

func TestExchangeRepository_OwnerAndRequesterIndexes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewExchangeRepository(openTestDB(t))

	item := domain.NewItem("U1", "Dune", "Frank Herbert")
	first := domain.NewExchangeRequest(item.ID, "U2", "U1")
	second := domain.NewExchangeRequest(item.ID, "U3", "U1")
	req.NoError(repo.CommitExchange(ctx, &item, first, second))

	byOwner, err := repo.ByOwner(ctx, "U1")
	req.NoError(err)
	req.Len(byOwner, 2)

	byRequester, err := repo.ByRequester(ctx, "U2")
	req.NoError(err)
	req.Len(byRequester, 1)
	req.Equal(first.ID, byRequester[0].ID)

	none, err := repo.ByRequester(ctx, "U9")
	req.NoError(err)
	req.Empty(none)
}

func TestItemRepository_CreateGetList(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewItemRepository(openTestDB(t))

	item := domain.NewItem("U1", "Dune", "Frank Herbert")
	req.NoError(repo.CreateItem(ctx, item))

	stored, err := repo.GetItem(ctx, item.ID)
	req.NoError(err)
	req.Equal(item.Title, stored.Title)

	_, err = repo.GetItem(ctx, uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)

	items, err := repo.ListItems(ctx)
	req.NoError(err)
	req.Len(items, 1)
}
