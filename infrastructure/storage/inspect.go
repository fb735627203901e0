package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/samber/lo"
)

// InspectMapper renders one keyspace entry for the badger inspector.
// Unknown or index-only keys fall back to the sdk default row.
func InspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	row.Key = key
	row.Scores = "-"

	switch {
	case strings.HasPrefix(key, prefixUsername):
		row.Type = "USERNAME"
		row.Namespace = "directory"
		row.EntityID = string(val)
		row.Detail = strings.TrimPrefix(key, prefixUsername)
	case strings.HasPrefix(key, prefixUser):
		var u diskUser
		if decodeRow(&row, val, &u) {
			row.Type = "USER"
			row.Namespace = "directory"
			row.EntityID = strconv.FormatInt(u.ID, 10)
			row.Detail = u.Name
		}
	case strings.HasPrefix(key, prefixDirect):
		var m diskDirectMessage
		if decodeRow(&row, val, &m) {
			row.Type = "DM"
			row.Namespace = fmt.Sprintf("%d->%d", m.SenderID, m.ReceiverID)
			row.EntityID = strconv.FormatUint(m.ID, 10)
			row.Timestamp = clock(m.SentAt)
			row.Detail = bodyDetail(m.Text, m.File)
		}
	case strings.HasPrefix(key, prefixGroupMessage):
		var m diskGroupMessage
		if decodeRow(&row, val, &m) {
			row.Type = "GROUP_MSG"
			row.Namespace = "group:" + strconv.FormatInt(m.GroupID, 10)
			row.EntityID = strconv.FormatUint(m.ID, 10)
			row.Timestamp = clock(m.SentAt)
			row.Detail = bodyDetail(m.Text, m.File)
		}
	case strings.HasPrefix(key, prefixGroup):
		var g diskGroup
		if decodeRow(&row, val, &g) {
			row.Type = "GROUP"
			row.Namespace = "leader:" + strconv.FormatInt(g.LeaderID, 10)
			row.EntityID = strconv.FormatInt(g.ID, 10)
			row.Timestamp = clock(g.CreatedAt)
			row.Detail = g.Name
		}
	case strings.HasPrefix(key, prefixMember):
		var m diskMembership
		if decodeRow(&row, val, &m) {
			row.Type = "MEMBER"
			row.Namespace = "group:" + strconv.FormatInt(m.GroupID, 10)
			row.EntityID = strconv.FormatInt(m.UserID, 10)
			row.Timestamp = clock(m.JoinedAt)
			row.Detail = m.Role
		}
	case strings.HasPrefix(key, prefixFriendEdge):
		var e diskFriendEdge
		if decodeRow(&row, val, &e) {
			row.Type = "FRIEND"
			row.Namespace = fmt.Sprintf("%d->%d", e.UserID, e.FriendID)
			row.EntityID = strconv.FormatUint(e.ID, 10)
			row.Timestamp = clock(e.CreatedAt)
			row.Detail = lo.Ternary(e.Accepted, "accepted", "pending")
		}
	case strings.HasPrefix(key, prefixFriendPending):
		row.Type = "PENDING"
		row.Namespace = "friend"
		row.EntityID = string(val)
	case strings.HasPrefix(key, prefixPeer), strings.HasPrefix(key, prefixUserGroup), strings.HasPrefix(key, prefixFriendUser):
		row.Type = "INDEX"
		row.Detail = "-"
	}
	return row
}

// Inspect walks every key under prefix and hands the mapped rows to fn.
func Inspect(db *badger.DB, prefix string, fn func(row database.InspectRow)) error {
	return db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix, false, 0, func(key, val []byte) error {
			fn(InspectMapper(string(key), val))
			return nil
		})
	})
}

func decodeRow(row *database.InspectRow, val []byte, v any) bool {
	if err := json.Unmarshal(val, v); err != nil {
		row.Type = "CORRUPT"
		row.Detail = "Error: unmarshal failed"
		return false
	}
	return true
}

func clock(nano int64) string {
	return time.Unix(0, nano).UTC().Format("15:04:05")
}

func bodyDetail(text *string, file *diskFile) string {
	if file != nil {
		return fmt.Sprintf("[%s] %s", file.Kind, file.Name)
	}
	return lo.FromPtr(text)
}
