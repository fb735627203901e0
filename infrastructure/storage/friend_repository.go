//go:generate go run go.uber.org/mock/mockgen -source=friend_repository.go -destination=../../mocks/mock_friend_repository.go -package=mocks
package storage

import (
	"context"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IFriendRepository interface {
	CreatePending(ctx context.Context, userID, friendID domain.UserID) (domain.FriendEdge, error)
	AcceptPending(ctx context.Context, userID, friendID domain.UserID) (domain.FriendEdge, error)
	EdgesOf(ctx context.Context, userID domain.UserID) ([]domain.FriendEdge, error)
}

// FriendRepository stores friend edges. A pending edge is also indexed under
// its unordered pair, which is what keeps it unique.
type FriendRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
	now func() time.Time
}

func NewFriendRepository(db *badger.DB, log *slog.Logger) (*FriendRepository, error) {
	seq, err := db.GetSequence([]byte(seqFriends), sequenceBandwidth)
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	return &FriendRepository{db: db, log: log, seq: seq, now: time.Now}, nil
}

func (f *FriendRepository) Close() error {
	return f.seq.Release()
}

// CreatePending records userID asking friendID. It fails with
// ErrDuplicatePending while any pending edge exists for the pair, whichever
// side asked first. Accepted edges are not looked at.
func (f *FriendRepository) CreatePending(_ context.Context, userID, friendID domain.UserID) (domain.FriendEdge, error) {
	var edge domain.FriendEdge
	err := update(f.db, func(txn *badger.Txn) error {
		pending, err := exists(txn, friendPendingKey(userID, friendID))
		if err != nil {
			return err
		}
		if pending {
			return errors.ErrDuplicatePending
		}
		id, err := nextID(f.seq)
		if err != nil {
			return err
		}
		edge = domain.FriendEdge{
			ID:        domain.FriendEdgeID(id),
			UserID:    userID,
			FriendID:  friendID,
			CreatedAt: f.now().UTC(),
		}
		if err := setJSON(txn, friendEdgeKey(edge.ID), toDiskFriendEdge(edge)); err != nil {
			return err
		}
		if err := txn.Set(friendPendingKey(userID, friendID), []byte(strconv.FormatUint(id, 10))); err != nil {
			return err
		}
		if err := txn.Set(friendUserKey(userID, edge.ID), nil); err != nil {
			return err
		}
		return txn.Set(friendUserKey(friendID, edge.ID), nil)
	})
	if err != nil {
		return domain.FriendEdge{}, err
	}
	f.log.Debug("Friend request created", "edge", edge.ID, "from", userID, "to", friendID)
	return edge, nil
}

// AcceptPending flips the pending edge friendID -> userID to accepted.
// Only the target of a request can accept it.
func (f *FriendRepository) AcceptPending(_ context.Context, userID, friendID domain.UserID) (domain.FriendEdge, error) {
	var edge domain.FriendEdge
	err := update(f.db, func(txn *badger.Txn) error {
		item, err := txn.Get(friendPendingKey(userID, friendID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return err
		}
		var disk diskFriendEdge
		if err := getJSON(txn, friendEdgeKey(domain.FriendEdgeID(id)), &disk); err != nil {
			return err
		}
		edge = fromDiskFriendEdge(disk)
		if edge.UserID != friendID || edge.FriendID != userID {
			return errors.ErrRequestNotFound
		}
		edge.Accepted = true
		if err := setJSON(txn, friendEdgeKey(edge.ID), toDiskFriendEdge(edge)); err != nil {
			return err
		}
		return txn.Delete(friendPendingKey(userID, friendID))
	})
	if err != nil {
		return domain.FriendEdge{}, err
	}
	return edge, nil
}

// EdgesOf returns every edge touching userID, pending or accepted, oldest first.
func (f *FriendRepository) EdgesOf(_ context.Context, userID domain.UserID) ([]domain.FriendEdge, error) {
	var edges []domain.FriendEdge
	err := view(f.db, func(txn *badger.Txn) error {
		var ids []domain.FriendEdgeID
		err := scan(txn, friendUserPrefix(userID), false, 0, func(key, _ []byte) error {
			id, err := lastSegment(key)
			if err != nil {
				return err
			}
			ids = append(ids, domain.FriendEdgeID(id))
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			var disk diskFriendEdge
			if err := getJSON(txn, friendEdgeKey(id), &disk); err != nil {
				return err
			}
			edges = append(edges, fromDiskFriendEdge(disk))
		}
		return nil
	})
	return edges, err
}
