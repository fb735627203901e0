package domain

import "time"

type FriendEdgeID uint64

// FriendEdge is directed while pending (UserID asked FriendID) and symmetric
// once accepted.
type FriendEdge struct {
	ID        FriendEdgeID
	UserID    UserID
	FriendID  UserID
	Accepted  bool
	CreatedAt time.Time
}

func (e FriendEdge) Touches(userID UserID) bool {
	return e.UserID == userID || e.FriendID == userID
}

func (e FriendEdge) Other(userID UserID) UserID {
	if e.UserID == userID {
		return e.FriendID
	}
	return e.UserID
}

// PairKey orders two user ids so that (a, b) and (b, a) share one key.
func PairKey(a, b UserID) (UserID, UserID) {
	if a < b {
		return a, b
	}
	return b, a
}

// PendingRequest is a pending edge seen from one side, with the other party resolved.
type PendingRequest struct {
	ID        FriendEdgeID
	Peer      User
	CreatedAt time.Time
}
