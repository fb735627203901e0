package storage

import (
	"encoding/json"
	"messenger/domain"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// Values are JSON documents. The disk structs are kept apart from the domain
// types so that renaming a domain field never silently changes the stored format.

type diskUser struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

type diskFile struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type diskDirectMessage struct {
	ID         uint64    `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Text       *string   `json:"text,omitempty"`
	File       *diskFile `json:"file,omitempty"`
	SentAt     int64     `json:"sent_at"`
}

type diskGroupMessage struct {
	ID       uint64    `json:"id"`
	GroupID  int64     `json:"group_id"`
	SenderID int64     `json:"sender_id"`
	Text     *string   `json:"text,omitempty"`
	File     *diskFile `json:"file,omitempty"`
	SentAt   int64     `json:"sent_at"`
}

type diskGroup struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LeaderID  int64  `json:"leader_id"`
	CreatedAt int64  `json:"created_at"`
}

type diskMembership struct {
	GroupID  int64  `json:"group_id"`
	UserID   int64  `json:"user_id"`
	Role     string `json:"role"`
	JoinedAt int64  `json:"joined_at"`
}

type diskFriendEdge struct {
	ID        uint64 `json:"id"`
	UserID    int64  `json:"user_id"`
	FriendID  int64  `json:"friend_id"`
	Accepted  bool   `json:"accepted"`
	CreatedAt int64  `json:"created_at"`
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// getJSON reads key inside txn and decodes it into v.
// badger.ErrKeyNotFound is returned untouched so callers can map it.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func fromNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func toDiskFile(f *domain.FileRef) *diskFile {
	if f == nil {
		return nil
	}
	return &diskFile{URL: f.URL, Kind: string(f.Kind), Name: f.OriginalName}
}

func fromDiskFile(f *diskFile) *domain.FileRef {
	if f == nil {
		return nil
	}
	return &domain.FileRef{URL: f.URL, Kind: domain.FileKind(f.Kind), OriginalName: f.Name}
}

func toDiskUser(u domain.User) diskUser {
	return diskUser{ID: int64(u.ID), Name: u.DisplayName, Avatar: u.AvatarHandle}
}

func fromDiskUser(u diskUser) domain.User {
	return domain.User{ID: domain.UserID(u.ID), DisplayName: u.Name, AvatarHandle: u.Avatar}
}

func toDiskDirectMessage(m domain.DirectMessage) diskDirectMessage {
	return diskDirectMessage{
		ID:         uint64(m.ID),
		SenderID:   int64(m.SenderID),
		ReceiverID: int64(m.ReceiverID),
		Text:       m.Text,
		File:       toDiskFile(m.File),
		SentAt:     m.SentAt.UnixNano(),
	}
}

func fromDiskDirectMessage(m diskDirectMessage) domain.DirectMessage {
	return domain.DirectMessage{
		ID:         domain.MessageID(m.ID),
		SenderID:   domain.UserID(m.SenderID),
		ReceiverID: domain.UserID(m.ReceiverID),
		Body:       domain.Body{Text: m.Text, File: fromDiskFile(m.File)},
		SentAt:     fromNano(m.SentAt),
	}
}

func toDiskGroupMessage(m domain.GroupMessage) diskGroupMessage {
	return diskGroupMessage{
		ID:       uint64(m.ID),
		GroupID:  int64(m.GroupID),
		SenderID: int64(m.SenderID),
		Text:     m.Text,
		File:     toDiskFile(m.File),
		SentAt:   m.SentAt.UnixNano(),
	}
}

func fromDiskGroupMessage(m diskGroupMessage) domain.GroupMessage {
	return domain.GroupMessage{
		ID:       domain.MessageID(m.ID),
		GroupID:  domain.GroupID(m.GroupID),
		SenderID: domain.UserID(m.SenderID),
		Body:     domain.Body{Text: m.Text, File: fromDiskFile(m.File)},
		SentAt:   fromNano(m.SentAt),
	}
}

func toDiskGroup(g domain.Group) diskGroup {
	return diskGroup{ID: int64(g.ID), Name: g.Name, LeaderID: int64(g.LeaderID), CreatedAt: g.CreatedAt.UnixNano()}
}

func fromDiskGroup(g diskGroup) domain.Group {
	return domain.Group{
		ID:        domain.GroupID(g.ID),
		Name:      g.Name,
		LeaderID:  domain.UserID(g.LeaderID),
		CreatedAt: fromNano(g.CreatedAt),
	}
}

func toDiskMembership(m domain.Membership) diskMembership {
	return diskMembership{
		GroupID:  int64(m.GroupID),
		UserID:   int64(m.UserID),
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt.UnixNano(),
	}
}

func fromDiskMembership(m diskMembership) (domain.Membership, error) {
	role, err := domain.ParseRole(m.Role)
	if err != nil {
		return domain.Membership{}, err
	}
	return domain.Membership{
		GroupID:  domain.GroupID(m.GroupID),
		UserID:   domain.UserID(m.UserID),
		Role:     role,
		JoinedAt: fromNano(m.JoinedAt),
	}, nil
}

func toDiskFriendEdge(e domain.FriendEdge) diskFriendEdge {
	return diskFriendEdge{
		ID:        uint64(e.ID),
		UserID:    int64(e.UserID),
		FriendID:  int64(e.FriendID),
		Accepted:  e.Accepted,
		CreatedAt: e.CreatedAt.UnixNano(),
	}
}

func fromDiskFriendEdge(e diskFriendEdge) domain.FriendEdge {
	return domain.FriendEdge{
		ID:        domain.FriendEdgeID(e.ID),
		UserID:    domain.UserID(e.UserID),
		FriendID:  domain.UserID(e.FriendID),
		Accepted:  e.Accepted,
		CreatedAt: fromNano(e.CreatedAt),
	}
}

func fromDiskDirectMessages(ms []diskDirectMessage) []domain.DirectMessage {
	return lo.Map(ms, func(item diskDirectMessage, _ int) domain.DirectMessage {
		return fromDiskDirectMessage(item)
	})
}

func fromDiskGroupMessages(ms []diskGroupMessage) []domain.GroupMessage {
	return lo.Map(ms, func(item diskGroupMessage, _ int) domain.GroupMessage {
		return fromDiskGroupMessage(item)
	})
}
