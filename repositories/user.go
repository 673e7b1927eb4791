//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/errors"
)

const userSequenceBandwidth = 16

type IUserRepository interface {
	Create(username, email, passwordHash string) (domain.Identity, error)
	GetByUsername(username string) (User, error)
	Close() error
}

// User is the repository-level representation of an account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository is the credential store. Usernames and emails are both
// unique; the email secondary key only points back at the username.
type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte("seq:user"), userSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("user id sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq}, nil
}

type userRecord struct {
	ID           int64     `cbor:"id"`
	Username     string    `cbor:"username"`
	Email        string    `cbor:"email"`
	PasswordHash string    `cbor:"password_hash"`
	CreatedAt    time.Time `cbor:"created_at"`
}

// Create persists a new account and returns its durable identity. Username
// and email uniqueness are both checked inside one transaction.
func (u *UserRepository) Create(username, email, passwordHash string) (domain.Identity, error) {
	next, err := u.seq.Next()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("next user id: %w", err)
	}
	record := userRecord{
		ID:           int64(next) + 1,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	value, err := cbor.Marshal(record)
	if err != nil {
		return domain.Identity{}, err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrEmailAlreadyTaken
		}
		if err := txn.Set(userKey(username), value); err != nil {
			return err
		}
		return txn.Set(emailKey(email), []byte(username))
	})
	if err != nil {
		return domain.Identity{}, err
	}

	return domain.Identity{ID: record.ID, Username: username, Email: email}, nil
}

// GetByUsername loads an account; a missing key surfaces as
// badger.ErrKeyNotFound for the service layer to map.
func (u *UserRepository) GetByUsername(username string) (User, error) {
	var record userRecord
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return cbor.Unmarshal(value, &record)
		})
	})
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           record.ID,
		Username:     record.Username,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func (u *UserRepository) Close() error {
	return u.seq.Release()
}

func userKey(username string) []byte {
	return []byte("user:" + username)
}

func emailKey(email string) []byte {
	return []byte("email:" + email)
}
