//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package storage

import (
	"context"
	"messenger/contract"
	"messenger/domain"
	"messenger/errors"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.IDirectory = (*UserRepository)(nil)

type IUserRepository interface {
	contract.IDirectory
	Save(ctx context.Context, user domain.User) error
}

// UserRepository is the Directory: a read-mostly store of user identities.
// Accounts are created elsewhere; Save only exists for seeding.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Save upserts a user and keeps the name index pointing at it.
// A display name already held by another user is ErrNameTaken.
func (u *UserRepository) Save(_ context.Context, user domain.User) error {
	if strings.TrimSpace(user.DisplayName) == "" {
		return errors.ErrInvalidName
	}
	return update(u.db, func(txn *badger.Txn) error {
		owner, found, err := nameOwner(txn, user.DisplayName)
		if err != nil {
			return err
		}
		if found && owner != user.ID {
			return errors.ErrNameTaken
		}

		var previous diskUser
		err = getJSON(txn, userKey(user.ID), &previous)
		switch {
		case err == nil && previous.Name != user.DisplayName:
			if err := releaseName(txn, previous.Name, user.ID); err != nil {
				return err
			}
		case err != nil && !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := setJSON(txn, userKey(user.ID), toDiskUser(user)); err != nil {
			return err
		}
		return txn.Set(usernameKey(user.DisplayName), []byte(strconv.FormatInt(int64(user.ID), 10)))
	})
}

// releaseName drops the index entry for name only while it still points at id.
func releaseName(txn *badger.Txn, name string, id domain.UserID) error {
	owner, found, err := nameOwner(txn, name)
	if err != nil || !found || owner != id {
		return err
	}
	return txn.Delete(usernameKey(name))
}

func nameOwner(txn *badger.Txn, name string) (domain.UserID, bool, error) {
	item, err := txn.Get(usernameKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false, err
	}
	return domain.UserID(id), true, nil
}

func (u *UserRepository) Lookup(_ context.Context, id domain.UserID) (domain.User, error) {
	var user diskUser
	err := view(u.db, func(txn *badger.Txn) error {
		return lookup(txn, id, &user)
	})
	if err != nil {
		return domain.User{}, err
	}
	return fromDiskUser(user), nil
}

func (u *UserRepository) LookupByName(_ context.Context, name string) (domain.User, error) {
	var user diskUser
	err := view(u.db, func(txn *badger.Txn) error {
		id, found, err := nameOwner(txn, name)
		if err != nil {
			return err
		}
		if !found {
			return errors.ErrUserNotFound
		}
		return lookup(txn, id, &user)
	})
	if err != nil {
		return domain.User{}, err
	}
	return fromDiskUser(user), nil
}

func lookup(txn *badger.Txn, id domain.UserID, user *diskUser) error {
	err := getJSON(txn, userKey(id), user)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}
