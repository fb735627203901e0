package services

import (
	"context"
	"log/slog"
	"messenger/contract"
	"messenger/domain"
	"messenger/infrastructure/storage"
)

type IMessageStore interface {
	AppendDirect(ctx context.Context, senderID, receiverID domain.UserID, body domain.Body) (domain.DirectMessage, error)
	AppendGroup(ctx context.Context, groupID domain.GroupID, senderID domain.UserID, body domain.Body) (domain.GroupMessage, error)
	History(ctx context.Context, a, b domain.UserID) ([]domain.DirectMessage, error)
	GroupHistory(ctx context.Context, groupID domain.GroupID) ([]domain.GroupMessage, error)
}

// MessageStore validates and appends messages to the log. An append either
// stores exactly one message or nothing.
type MessageStore struct {
	log          *slog.Logger
	directory    contract.IDirectory
	repo         storage.IMessageRepository
	historyLimit int
}

// NewMessageStore builds the store. A historyLimit of 0 returns whole
// conversations; otherwise only the newest historyLimit messages.
func NewMessageStore(log *slog.Logger, directory contract.IDirectory, repo storage.IMessageRepository, historyLimit int) *MessageStore {
	return &MessageStore{log: log, directory: directory, repo: repo, historyLimit: historyLimit}
}

func (m *MessageStore) AppendDirect(ctx context.Context, senderID, receiverID domain.UserID, body domain.Body) (domain.DirectMessage, error) {
	if err := body.Validate(); err != nil {
		return domain.DirectMessage{}, err
	}
	if _, err := m.directory.Lookup(ctx, senderID); err != nil {
		return domain.DirectMessage{}, err
	}
	if _, err := m.directory.Lookup(ctx, receiverID); err != nil {
		return domain.DirectMessage{}, err
	}
	return m.repo.StoreDirect(ctx, senderID, receiverID, body)
}

// AppendGroup checks group and membership inside the write transaction.
func (m *MessageStore) AppendGroup(ctx context.Context, groupID domain.GroupID, senderID domain.UserID, body domain.Body) (domain.GroupMessage, error) {
	if err := body.Validate(); err != nil {
		return domain.GroupMessage{}, err
	}
	return m.repo.StoreGroup(ctx, groupID, senderID, body)
}

func (m *MessageStore) History(ctx context.Context, a, b domain.UserID) ([]domain.DirectMessage, error) {
	if _, err := m.directory.Lookup(ctx, a); err != nil {
		return nil, err
	}
	if _, err := m.directory.Lookup(ctx, b); err != nil {
		return nil, err
	}
	return m.repo.History(ctx, a, b, m.historyLimit)
}

func (m *MessageStore) GroupHistory(ctx context.Context, groupID domain.GroupID) ([]domain.GroupMessage, error) {
	return m.repo.GroupHistory(ctx, groupID, m.historyLimit)
}
