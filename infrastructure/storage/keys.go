package storage

import (
	"fmt"
	"messenger/domain"
	"strconv"
	"strings"
	"time"
)

// Keyspace. Every numeric segment is zero padded so that lexicographic order
// is numeric order and prefix scans come back sorted.
//
//	user:{id}                                 -> diskUser
//	username:{name}                           -> id
//	dm:{lo}:{hi}:{sentAt}:{id}                -> diskDirectMessage
//	peer:{user}:{peer}                        -> empty
//	group:{id}                                -> diskGroup
//	member:{group}:{user}                     -> diskMembership
//	ugroup:{user}:{group}                     -> empty
//	gm:{group}:{sentAt}:{id}                  -> diskGroupMessage
//	friend:edge:{id}                          -> diskFriendEdge
//	friend:pending:{lo}:{hi}                  -> edge id
//	friend:user:{user}:{id}                   -> empty
//	seq:{name}                                -> badger sequence
const (
	prefixUser          = "user:"
	prefixUsername      = "username:"
	prefixDirect        = "dm:"
	prefixPeer          = "peer:"
	prefixGroup         = "group:"
	prefixMember        = "member:"
	prefixUserGroup     = "ugroup:"
	prefixGroupMessage  = "gm:"
	prefixFriendEdge    = "friend:edge:"
	prefixFriendPending = "friend:pending:"
	prefixFriendUser    = "friend:user:"

	seqMessages = "seq:messages"
	seqGroups   = "seq:groups"
	seqFriends  = "seq:friends"

	// reverseSeekSuffix sorts after every digit, so seeking it in reverse
	// mode lands on the newest key of a prefix.
	reverseSeekSuffix = "~"
)

func pad(n int64) string {
	return fmt.Sprintf("%020d", n)
}

func padU(n uint64) string {
	return fmt.Sprintf("%020d", n)
}

func padTime(t time.Time) string {
	return fmt.Sprintf("%019d", t.UnixNano())
}

func userKey(id domain.UserID) []byte {
	return []byte(prefixUser + pad(int64(id)))
}

func usernameKey(name string) []byte {
	return []byte(prefixUsername + name)
}

func directPrefix(a, b domain.UserID) string {
	lo, hi := domain.PairKey(a, b)
	return prefixDirect + pad(int64(lo)) + ":" + pad(int64(hi)) + ":"
}

func directKey(m domain.DirectMessage) []byte {
	return []byte(directPrefix(m.SenderID, m.ReceiverID) + padTime(m.SentAt) + ":" + padU(uint64(m.ID)))
}

func peerPrefix(userID domain.UserID) string {
	return prefixPeer + pad(int64(userID)) + ":"
}

func peerKey(userID, peerID domain.UserID) []byte {
	return []byte(peerPrefix(userID) + pad(int64(peerID)))
}

func groupKey(id domain.GroupID) []byte {
	return []byte(prefixGroup + pad(int64(id)))
}

func memberPrefix(groupID domain.GroupID) string {
	return prefixMember + pad(int64(groupID)) + ":"
}

func memberKey(groupID domain.GroupID, userID domain.UserID) []byte {
	return []byte(memberPrefix(groupID) + pad(int64(userID)))
}

func userGroupPrefix(userID domain.UserID) string {
	return prefixUserGroup + pad(int64(userID)) + ":"
}

func userGroupKey(userID domain.UserID, groupID domain.GroupID) []byte {
	return []byte(userGroupPrefix(userID) + pad(int64(groupID)))
}

func groupMessagePrefix(groupID domain.GroupID) string {
	return prefixGroupMessage + pad(int64(groupID)) + ":"
}

func groupMessageKey(m domain.GroupMessage) []byte {
	return []byte(groupMessagePrefix(m.GroupID) + padTime(m.SentAt) + ":" + padU(uint64(m.ID)))
}

func friendEdgeKey(id domain.FriendEdgeID) []byte {
	return []byte(prefixFriendEdge + padU(uint64(id)))
}

func friendPendingKey(a, b domain.UserID) []byte {
	lo, hi := domain.PairKey(a, b)
	return []byte(prefixFriendPending + pad(int64(lo)) + ":" + pad(int64(hi)))
}

func friendUserPrefix(userID domain.UserID) string {
	return prefixFriendUser + pad(int64(userID)) + ":"
}

func friendUserKey(userID domain.UserID, id domain.FriendEdgeID) []byte {
	return []byte(friendUserPrefix(userID) + padU(uint64(id)))
}

// lastSegment parses the trailing numeric segment of an index key.
func lastSegment(key []byte) (int64, error) {
	s := string(key)
	idx := strings.LastIndexByte(s, ':')
	return strconv.ParseInt(s[idx+1:], 10, 64)
}
