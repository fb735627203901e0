package services

import (
	"context"
	"log/slog"
	"messenger/contract"
	"messenger/domain"
	"messenger/errors"
	"messenger/infrastructure/storage"
	"messenger/runtime"
)

type IFriendGraph interface {
	RequestFriend(ctx context.Context, userID, friendID domain.UserID) (domain.FriendEdge, error)
	RequestFriendByName(ctx context.Context, username, friendName string) (domain.FriendEdge, error)
	AcceptFriend(ctx context.Context, userID, friendID domain.UserID) (domain.FriendEdge, error)
	ListFriends(ctx context.Context, userID domain.UserID) ([]domain.User, error)
	ListOutgoingPending(ctx context.Context, userID domain.UserID) ([]domain.PendingRequest, error)
	ListIncomingPending(ctx context.Context, userID domain.UserID) ([]domain.PendingRequest, error)
}

// FriendGraph tracks friendships and pending requests. Writes on one
// unordered pair are serialized.
type FriendGraph struct {
	log       *slog.Logger
	directory contract.IDirectory
	repo      storage.IFriendRepository
	pairs     *runtime.KeyedMutex[[2]domain.UserID]
}

func NewFriendGraph(log *slog.Logger, directory contract.IDirectory, repo storage.IFriendRepository) *FriendGraph {
	return &FriendGraph{
		log:       log,
		directory: directory,
		repo:      repo,
		pairs:     runtime.NewKeyedMutex[[2]domain.UserID](),
	}
}

func (f *FriendGraph) lockPair(a, b domain.UserID) func() {
	lo, hi := domain.PairKey(a, b)
	return f.pairs.Lock([2]domain.UserID{lo, hi})
}

func (f *FriendGraph) RequestFriend(ctx context.Context, userID, friendID domain.UserID) (domain.FriendEdge, error) {
	if userID == friendID {
		return domain.FriendEdge{}, errors.ErrSelfReference
	}
	if _, err := f.directory.Lookup(ctx, userID); err != nil {
		return domain.FriendEdge{}, err
	}
	if _, err := f.directory.Lookup(ctx, friendID); err != nil {
		return domain.FriendEdge{}, err
	}

	unlock := f.lockPair(userID, friendID)
	defer unlock()
	edge, err := f.repo.CreatePending(ctx, userID, friendID)
	if err != nil {
		return domain.FriendEdge{}, err
	}
	f.log.Info("Friend request sent", "from", userID, "to", friendID)
	return edge, nil
}

// RequestFriendByName is RequestFriend addressed by display names.
func (f *FriendGraph) RequestFriendByName(ctx context.Context, username, friendName string) (domain.FriendEdge, error) {
	user, err := f.directory.LookupByName(ctx, username)
	if err != nil {
		return domain.FriendEdge{}, err
	}
	friend, err := f.directory.LookupByName(ctx, friendName)
	if err != nil {
		return domain.FriendEdge{}, err
	}
	return f.RequestFriend(ctx, user.ID, friend.ID)
}

// AcceptFriend accepts the request friendID sent to userID.
func (f *FriendGraph) AcceptFriend(ctx context.Context, userID, friendID domain.UserID) (domain.FriendEdge, error) {
	unlock := f.lockPair(userID, friendID)
	defer unlock()
	edge, err := f.repo.AcceptPending(ctx, userID, friendID)
	if err != nil {
		return domain.FriendEdge{}, err
	}
	f.log.Info("Friend request accepted", "by", userID, "from", friendID)
	return edge, nil
}

func (f *FriendGraph) ListFriends(ctx context.Context, userID domain.UserID) ([]domain.User, error) {
	edges, err := f.edgesOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	var friends []domain.User
	for _, edge := range edges {
		if !edge.Accepted {
			continue
		}
		friend, err := f.directory.Lookup(ctx, edge.Other(userID))
		if err != nil {
			return nil, err
		}
		friends = append(friends, friend)
	}
	return friends, nil
}

// ListOutgoingPending lists the requests userID sent that are still pending.
func (f *FriendGraph) ListOutgoingPending(ctx context.Context, userID domain.UserID) ([]domain.PendingRequest, error) {
	return f.pending(ctx, userID, func(edge domain.FriendEdge) bool { return edge.UserID == userID })
}

// ListIncomingPending lists the pending requests addressed to userID.
func (f *FriendGraph) ListIncomingPending(ctx context.Context, userID domain.UserID) ([]domain.PendingRequest, error) {
	return f.pending(ctx, userID, func(edge domain.FriendEdge) bool { return edge.FriendID == userID })
}

func (f *FriendGraph) pending(ctx context.Context, userID domain.UserID, keep func(domain.FriendEdge) bool) ([]domain.PendingRequest, error) {
	edges, err := f.edgesOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	var requests []domain.PendingRequest
	for _, edge := range edges {
		if edge.Accepted || !keep(edge) {
			continue
		}
		peer, err := f.directory.Lookup(ctx, edge.Other(userID))
		if err != nil {
			return nil, err
		}
		requests = append(requests, domain.PendingRequest{ID: edge.ID, Peer: peer, CreatedAt: edge.CreatedAt})
	}
	return requests, nil
}

func (f *FriendGraph) edgesOf(ctx context.Context, userID domain.UserID) ([]domain.FriendEdge, error) {
	if _, err := f.directory.Lookup(ctx, userID); err != nil {
		return nil, err
	}
	return f.repo.EdgesOf(ctx, userID)
}
