//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/errors"
)

type IUserRepository interface {
	Create(username, email, hashedPassword string) (domain.User, error)
	GetByEmail(email string) (domain.User, string, error)
	GetByID(id string) (domain.User, error)
	List() ([]domain.User, error)
	UpdateLastSeen(userID string, at time.Time) error
	Count() (int, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

// storedUser is the on-disk shape. The password hash never leaves the
// repository except through GetByEmail for credential checks.
type storedUser struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastSeen     *time.Time `json:"lastSeen"`
}

func userIDKey(id string) []byte { return []byte("user:id:" + id) }

func userEmailKey(email string) []byte { return []byte("user:email:" + email) }

// Create persists a new user under two keys: the record itself by id,
// and an email index used for login and uniqueness.
func (u UserRepository) Create(username, email, hashedPassword string) (domain.User, error) {
	stored := storedUser{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return domain.User{}, err
	}
	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userEmailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userEmailKey(email), []byte(stored.ID)); err != nil {
			return err
		}
		return txn.Set(userIDKey(stored.ID), data)
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return toDomainUser(stored), nil
}

// GetByEmail returns the user and their password hash.
func (u UserRepository) GetByEmail(email string) (domain.User, string, error) {
	var stored storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(userIDKey(string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, "", errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return toDomainUser(stored), stored.PasswordHash, nil
}

func (u UserRepository) GetByID(id string) (domain.User, error) {
	var stored storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return toDomainUser(stored), nil
}

// List returns every registered user, without password hashes.
func (u UserRepository) List() ([]domain.User, error) {
	prefix := []byte("user:id:")
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored storedUser
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			})
			if err != nil {
				return err
			}
			users = append(users, toDomainUser(stored))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return users, nil
}

// UpdateLastSeen records the offline transition time on the user record.
// Callers treat failures as best-effort; the presence registry stays
// authoritative for live queries.
func (u UserRepository) UpdateLastSeen(userID string, at time.Time) error {
	err := u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(userID))
		if err != nil {
			return err
		}
		var stored storedUser
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}
		stored.LastSeen = &at
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set(userIDKey(userID), data)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

func (u UserRepository) Count() (int, error) {
	count := 0
	prefix := []byte("user:id:")
	err := u.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return count, nil
}

func toDomainUser(stored storedUser) domain.User {
	return domain.User{
		ID:        stored.ID,
		Username:  stored.Username,
		Email:     stored.Email,
		CreatedAt: stored.CreatedAt,
		LastSeen:  stored.LastSeen,
	}
}
