package services

import (
	"context"
	"messenger/contract"
	"messenger/domain"
	"messenger/infrastructure/storage"
	"sort"
)

type IConversationIndex interface {
	PeersOf(ctx context.Context, userID domain.UserID) ([]domain.PeerSummary, error)
	GroupsOf(ctx context.Context, userID domain.UserID) ([]domain.GroupSummary, error)
}

// ConversationIndex derives conversation lists at query time, so it is never
// staler than the last append.
type ConversationIndex struct {
	directory contract.IDirectory
	messages  storage.IMessageRepository
	groups    storage.IGroupRepository
}

func NewConversationIndex(directory contract.IDirectory, messages storage.IMessageRepository, groups storage.IGroupRepository) *ConversationIndex {
	return &ConversationIndex{directory: directory, messages: messages, groups: groups}
}

// PeersOf returns one summary per user that exchanged at least one direct
// message with userID, most recent conversation first.
func (c *ConversationIndex) PeersOf(ctx context.Context, userID domain.UserID) ([]domain.PeerSummary, error) {
	if _, err := c.directory.Lookup(ctx, userID); err != nil {
		return nil, err
	}
	last, err := c.messages.LastPerPeer(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.PeerSummary, 0, len(last))
	for _, msg := range last {
		peer, err := c.directory.Lookup(ctx, msg.Peer(userID))
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.PeerSummary{
			PeerID:        peer.ID,
			PeerName:      peer.DisplayName,
			PeerAvatar:    peer.AvatarHandle,
			LastMessageID: msg.ID,
			LastText:      msg.Text,
			LastFile:      msg.File,
			LastSentAt:    msg.SentAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return domain.Before(summaries[j].LastSentAt, summaries[j].LastMessageID, summaries[i].LastSentAt, summaries[i].LastMessageID)
	})
	return summaries, nil
}

// GroupsOf lists userID's groups, most recently created first.
func (c *ConversationIndex) GroupsOf(ctx context.Context, userID domain.UserID) ([]domain.GroupSummary, error) {
	if _, err := c.directory.Lookup(ctx, userID); err != nil {
		return nil, err
	}
	return c.groups.GroupsOf(ctx, userID)
}
