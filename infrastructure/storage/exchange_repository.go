package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"bookswap/domain"
	"bookswap/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout:
//
//	req:{request_id}                   full request (JSON)
//	idx:item:{item_id}:{request_id}    request id
//	idx:owner:{user_id}:{request_id}   request id
//	idx:requester:{user_id}:{request_id} request id
//
// Index keys are written with the request and never move: a request's
// item, owner and requester are immutable, only its status changes.
type ExchangeRepository struct {
	db *badger.DB
}

func NewExchangeRepository(db *badger.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func requestKey(id uuid.UUID) []byte {
	return []byte("req:" + id.String())
}

func (r *ExchangeRepository) GetRequest(_ context.Context, id uuid.UUID) (domain.ExchangeRequest, error) {
	var request domain.ExchangeRequest
	err := r.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, requestKey(id), &request)
	})
	return request, err
}

func (r *ExchangeRepository) GetItem(_ context.Context, id uuid.UUID) (domain.Item, error) {
	var item domain.Item
	err := r.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, itemKey(id), &item)
	})
	return item, err
}

func (r *ExchangeRepository) PendingByItem(_ context.Context, itemID uuid.UUID) ([]domain.ExchangeRequest, error) {
	requests, err := r.scanIndex("idx:item:" + itemID.String() + ":")
	if err != nil {
		return nil, err
	}
	var pending []domain.ExchangeRequest
	for _, request := range requests {
		if request.Status == domain.RequestPending {
			pending = append(pending, request)
		}
	}
	return pending, nil
}

func (r *ExchangeRepository) ByRequester(_ context.Context, userID string) ([]domain.ExchangeRequest, error) {
	return r.scanIndex("idx:requester:" + userID + ":")
}

func (r *ExchangeRepository) ByOwner(_ context.Context, userID string) ([]domain.ExchangeRequest, error) {
	return r.scanIndex("idx:owner:" + userID + ":")
}

// CommitExchange applies the item update (when non-nil) and every request
// write in one badger transaction. This is the single transactional
// boundary of the state machine: an accept either lands with its item
// update and all auto-rejected siblings, or not at all.
func (r *ExchangeRepository) CommitExchange(_ context.Context, item *domain.Item, requests ...domain.ExchangeRequest) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if item != nil {
			if err := writeJSON(txn, itemKey(item.ID), item); err != nil {
				return err
			}
		}
		for _, request := range requests {
			if err := writeJSON(txn, requestKey(request.ID), request); err != nil {
				return err
			}
			idBytes := []byte(request.ID.String())
			indexKeys := [][]byte{
				[]byte(fmt.Sprintf("idx:item:%s:%s", request.ItemID, request.ID)),
				[]byte(fmt.Sprintf("idx:owner:%s:%s", request.OwnerID, request.ID)),
				[]byte(fmt.Sprintf("idx:requester:%s:%s", request.RequesterID, request.ID)),
			}
			for _, key := range indexKeys {
				if err := txn.Set(key, idBytes); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// scanIndex walks one index prefix and resolves each id to its request
// within the same read transaction.
func (r *ExchangeRepository) scanIndex(prefix string) ([]domain.ExchangeRequest, error) {
	var requests []domain.ExchangeRequest
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			var request domain.ExchangeRequest
			if err := readJSON(txn, []byte("req:"+id), &request); err != nil {
				return err
			}
			requests = append(requests, request)
		}
		return nil
	})
	return requests, err
}

func readJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

func writeJSON(txn *badger.Txn, key []byte, src any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}
