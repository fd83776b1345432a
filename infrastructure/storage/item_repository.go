package storage

import (
	"context"
	"encoding/json"

	"bookswap/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IItemRepository interface {
	CreateItem(ctx context.Context, item domain.Item) error
	GetItem(ctx context.Context, id uuid.UUID) (domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
}

type ItemRepository struct {
	db *badger.DB
}

func NewItemRepository(db *badger.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func itemKey(id uuid.UUID) []byte {
	return []byte("item:" + id.String())
}

func (r *ItemRepository) CreateItem(_ context.Context, item domain.Item) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return writeJSON(txn, itemKey(item.ID), item)
	})
}

func (r *ItemRepository) GetItem(_ context.Context, id uuid.UUID) (domain.Item, error) {
	var item domain.Item
	err := r.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, itemKey(id), &item)
	})
	return item, err
}

func (r *ItemRepository) ListItems(_ context.Context) ([]domain.Item, error) {
	var items []domain.Item
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("item:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var item domain.Item
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}
