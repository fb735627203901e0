//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreDirect(ctx context.Context, senderID, receiverID domain.UserID, body domain.Body) (domain.DirectMessage, error)
	StoreGroup(ctx context.Context, groupID domain.GroupID, senderID domain.UserID, body domain.Body) (domain.GroupMessage, error)
	History(ctx context.Context, a, b domain.UserID, limit int) ([]domain.DirectMessage, error)
	GroupHistory(ctx context.Context, groupID domain.GroupID, limit int) ([]domain.GroupMessage, error)
	LastPerPeer(ctx context.Context, userID domain.UserID) ([]domain.DirectMessage, error)
}

// MessageRepository is the append-only message log.
// Direct and group messages share one id sequence.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(seqMessages), sequenceBandwidth)
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	return &MessageRepository{db: db, log: log, seq: seq, now: time.Now}, nil
}

// Close hands the unused part of the leased id range back to badger.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

// stamp assigns the id and the server timestamp of a new message.
// Both are taken under one lock so that a higher id never gets an older time.
func (m *MessageRepository) stamp() (domain.MessageID, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := nextID(m.seq)
	if err != nil {
		return 0, time.Time{}, err
	}
	at := m.now().UTC()
	if at.Before(m.last) {
		at = m.last
	}
	m.last = at
	return domain.MessageID(id), at, nil
}

// StoreDirect persists a direct message and indexes the pair from both sides.
// The message, and both peer entries, land in one transaction.
func (m *MessageRepository) StoreDirect(_ context.Context, senderID, receiverID domain.UserID, body domain.Body) (domain.DirectMessage, error) {
	if err := body.Validate(); err != nil {
		return domain.DirectMessage{}, err
	}
	id, at, err := m.stamp()
	if err != nil {
		return domain.DirectMessage{}, err
	}
	msg := domain.DirectMessage{ID: id, SenderID: senderID, ReceiverID: receiverID, Body: body.Normalize(), SentAt: at}
	err = update(m.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, directKey(msg), toDiskDirectMessage(msg)); err != nil {
			return err
		}
		if err := txn.Set(peerKey(senderID, receiverID), nil); err != nil {
			return err
		}
		return txn.Set(peerKey(receiverID, senderID), nil)
	})
	if err != nil {
		return domain.DirectMessage{}, err
	}
	m.log.Debug("Direct message stored", "id", msg.ID, "sender", senderID, "receiver", receiverID)
	return msg, nil
}

// StoreGroup persists a group message. Group existence and the sender's
// membership are read in the same transaction as the write, so a racing kick
// either commits first and the send fails, or commits after and conflicts.
func (m *MessageRepository) StoreGroup(_ context.Context, groupID domain.GroupID, senderID domain.UserID, body domain.Body) (domain.GroupMessage, error) {
	if err := body.Validate(); err != nil {
		return domain.GroupMessage{}, err
	}
	id, at, err := m.stamp()
	if err != nil {
		return domain.GroupMessage{}, err
	}
	msg := domain.GroupMessage{ID: id, GroupID: groupID, SenderID: senderID, Body: body.Normalize(), SentAt: at}
	err = update(m.db, func(txn *badger.Txn) error {
		if err := mustExist(txn, groupKey(groupID), errors.ErrGroupNotFound); err != nil {
			return err
		}
		if err := mustExist(txn, memberKey(groupID, senderID), errors.ErrNotAMember); err != nil {
			return err
		}
		return setJSON(txn, groupMessageKey(msg), toDiskGroupMessage(msg))
	})
	if err != nil {
		return domain.GroupMessage{}, err
	}
	m.log.Debug("Group message stored", "id", msg.ID, "group", groupID, "sender", senderID)
	return msg, nil
}

// History returns the conversation between a and b in (SentAt, ID) order.
// A positive limit keeps only the newest limit messages.
func (m *MessageRepository) History(_ context.Context, a, b domain.UserID, limit int) ([]domain.DirectMessage, error) {
	var messages []diskDirectMessage
	err := view(m.db, func(txn *badger.Txn) error {
		return scan(txn, directPrefix(a, b), limit > 0, limit, func(_, val []byte) error {
			var msg diskDirectMessage
			if err := json.Unmarshal(val, &msg); err != nil {
				return err
			}
			messages = append(messages, msg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		messages = lo.Reverse(messages)
	}
	return fromDiskDirectMessages(messages), nil
}

// GroupHistory is History for a group; an unknown group is ErrGroupNotFound.
func (m *MessageRepository) GroupHistory(_ context.Context, groupID domain.GroupID, limit int) ([]domain.GroupMessage, error) {
	var messages []diskGroupMessage
	err := view(m.db, func(txn *badger.Txn) error {
		if err := mustExist(txn, groupKey(groupID), errors.ErrGroupNotFound); err != nil {
			return err
		}
		return scan(txn, groupMessagePrefix(groupID), limit > 0, limit, func(_, val []byte) error {
			var msg diskGroupMessage
			if err := json.Unmarshal(val, &msg); err != nil {
				return err
			}
			messages = append(messages, msg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		messages = lo.Reverse(messages)
	}
	return fromDiskGroupMessages(messages), nil
}

// LastPerPeer returns, for every user that exchanged at least one message
// with userID, the newest message of that conversation. Everything is read
// from a single snapshot.
func (m *MessageRepository) LastPerPeer(_ context.Context, userID domain.UserID) ([]domain.DirectMessage, error) {
	var messages []diskDirectMessage
	err := view(m.db, func(txn *badger.Txn) error {
		var peers []domain.UserID
		err := scan(txn, peerPrefix(userID), false, 0, func(key, _ []byte) error {
			peerID, err := lastSegment(key)
			if err != nil {
				return err
			}
			peers = append(peers, domain.UserID(peerID))
			return nil
		})
		if err != nil {
			return err
		}
		for _, peerID := range peers {
			err := scan(txn, directPrefix(userID, peerID), true, 1, func(_, val []byte) error {
				var msg diskDirectMessage
				if err := json.Unmarshal(val, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fromDiskDirectMessages(messages), nil
}

func mustExist(txn *badger.Txn, key []byte, missing error) error {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return missing
	}
	return err
}
