package storage

import (
	"context"
	"time"

	"bookswap/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, email, username, hashedPassword string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// User is the repository-level representation of an account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists the account keyed by email and returns the new id.
// The existence check and the write share one transaction, so two
// concurrent registrations of the same email cannot both succeed.
func (r *UserRepository) CreateUser(_ context.Context, email, username, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		key := []byte("user:" + email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return writeJSON(txn, key, user)
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (User, error) {
	var user User
	err := r.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, []byte("user:"+email), &user)
	})
	return user, err
}
