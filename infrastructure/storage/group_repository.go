//go:generate go run go.uber.org/mock/mockgen -source=group_repository.go -destination=../../mocks/mock_group_repository.go -package=mocks
package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IGroupRepository interface {
	Create(ctx context.Context, creatorID domain.UserID, name string) (domain.Group, error)
	Get(ctx context.Context, groupID domain.GroupID) (domain.Group, error)
	IsMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (bool, error)
	AddMember(ctx context.Context, groupID domain.GroupID, inviterID, inviteeID domain.UserID) (domain.Group, error)
	Leave(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (domain.Group, error)
	Kick(ctx context.Context, groupID domain.GroupID, adminID, targetID domain.UserID) (domain.Group, error)
	TransferLeadership(ctx context.Context, groupID domain.GroupID, leaderID, successorID domain.UserID) (domain.Group, error)
	Members(ctx context.Context, groupID domain.GroupID) ([]domain.Membership, error)
	GroupsOf(ctx context.Context, userID domain.UserID) ([]domain.GroupSummary, error)
}

// GroupRepository keeps groups and memberships. Every mutation reads the
// state it checks and writes its result in the same transaction, so the
// leader membership can never be removed by a racing writer.
type GroupRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
	now func() time.Time
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) (*GroupRepository, error) {
	seq, err := db.GetSequence([]byte(seqGroups), sequenceBandwidth)
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	return &GroupRepository{db: db, log: log, seq: seq, now: time.Now}, nil
}

func (g *GroupRepository) Close() error {
	return g.seq.Release()
}

// Create writes the group and its leader membership together; a group is
// never visible without its leader.
func (g *GroupRepository) Create(_ context.Context, creatorID domain.UserID, name string) (domain.Group, error) {
	id, err := nextID(g.seq)
	if err != nil {
		return domain.Group{}, err
	}
	at := g.now().UTC()
	group := domain.Group{ID: domain.GroupID(id), Name: name, LeaderID: creatorID, CreatedAt: at}
	leader := domain.Membership{GroupID: group.ID, UserID: creatorID, Role: domain.RoleLeader, JoinedAt: at}
	err = update(g.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, groupKey(group.ID), toDiskGroup(group)); err != nil {
			return err
		}
		return putMember(txn, leader)
	})
	if err != nil {
		return domain.Group{}, err
	}
	g.log.Debug("Group created", "group", group.ID, "leader", creatorID)
	return group, nil
}

func (g *GroupRepository) Get(_ context.Context, groupID domain.GroupID) (domain.Group, error) {
	var group domain.Group
	err := view(g.db, func(txn *badger.Txn) error {
		var err error
		group, err = readGroup(txn, groupID)
		return err
	})
	return group, err
}

func (g *GroupRepository) IsMember(_ context.Context, groupID domain.GroupID, userID domain.UserID) (bool, error) {
	var member bool
	err := view(g.db, func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(groupID, userID))
		switch {
		case err == nil:
			member = true
		case errors.Is(err, badger.ErrKeyNotFound):
			member = false
		default:
			return err
		}
		return nil
	})
	return member, err
}

// AddMember lets a current member bring someone in as a plain Member.
func (g *GroupRepository) AddMember(_ context.Context, groupID domain.GroupID, inviterID, inviteeID domain.UserID) (domain.Group, error) {
	var group domain.Group
	err := update(g.db, func(txn *badger.Txn) error {
		var err error
		if group, err = readGroup(txn, groupID); err != nil {
			return err
		}
		if err := mustExist(txn, memberKey(groupID, inviterID), errors.ErrNotAMember); err != nil {
			return err
		}
		present, err := exists(txn, memberKey(groupID, inviteeID))
		if err != nil {
			return err
		}
		if present {
			return errors.ErrAlreadyMember
		}
		return putMember(txn, domain.Membership{
			GroupID:  groupID,
			UserID:   inviteeID,
			Role:     domain.RoleMember,
			JoinedAt: g.now().UTC(),
		})
	})
	return group, err
}

func (g *GroupRepository) Leave(_ context.Context, groupID domain.GroupID, userID domain.UserID) (domain.Group, error) {
	var group domain.Group
	err := update(g.db, func(txn *badger.Txn) error {
		var err error
		if group, err = readGroup(txn, groupID); err != nil {
			return err
		}
		if userID == group.LeaderID {
			return errors.ErrLeaderCannotLeave
		}
		if err := mustExist(txn, memberKey(groupID, userID), errors.ErrNotAMember); err != nil {
			return err
		}
		return deleteMember(txn, groupID, userID)
	})
	return group, err
}

// Kick is reserved to the leader, who cannot target themself.
func (g *GroupRepository) Kick(_ context.Context, groupID domain.GroupID, adminID, targetID domain.UserID) (domain.Group, error) {
	var group domain.Group
	err := update(g.db, func(txn *badger.Txn) error {
		var err error
		if group, err = readGroup(txn, groupID); err != nil {
			return err
		}
		if adminID != group.LeaderID {
			return errors.ErrForbidden
		}
		if adminID == targetID {
			return errors.ErrSelfKick
		}
		if err := mustExist(txn, memberKey(groupID, targetID), errors.ErrNotAMember); err != nil {
			return err
		}
		return deleteMember(txn, groupID, targetID)
	})
	return group, err
}

// TransferLeadership swaps the Leader and Member roles of the current leader
// and successorID and repoints the group, all in one commit.
func (g *GroupRepository) TransferLeadership(_ context.Context, groupID domain.GroupID, leaderID, successorID domain.UserID) (domain.Group, error) {
	var group domain.Group
	err := update(g.db, func(txn *badger.Txn) error {
		var err error
		if group, err = readGroup(txn, groupID); err != nil {
			return err
		}
		if leaderID != group.LeaderID {
			return errors.ErrForbidden
		}
		if leaderID == successorID {
			return errors.ErrSelfReference
		}
		previous, err := readMember(txn, groupID, leaderID)
		if err != nil {
			return err
		}
		successor, err := readMember(txn, groupID, successorID)
		if err != nil {
			return err
		}
		previous.Role, successor.Role = domain.RoleMember, domain.RoleLeader
		group.LeaderID = successorID
		if err := setJSON(txn, groupKey(groupID), toDiskGroup(group)); err != nil {
			return err
		}
		if err := putMember(txn, previous); err != nil {
			return err
		}
		return putMember(txn, successor)
	})
	return group, err
}

// Members lists a group's memberships by join time, ties broken by user id.
func (g *GroupRepository) Members(_ context.Context, groupID domain.GroupID) ([]domain.Membership, error) {
	var members []domain.Membership
	err := view(g.db, func(txn *badger.Txn) error {
		if _, err := readGroup(txn, groupID); err != nil {
			return err
		}
		return scan(txn, memberPrefix(groupID), false, 0, func(_, val []byte) error {
			var disk diskMembership
			if err := json.Unmarshal(val, &disk); err != nil {
				return err
			}
			member, err := fromDiskMembership(disk)
			if err != nil {
				return err
			}
			members = append(members, member)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

// GroupsOf lists the groups userID belongs to, newest group first.
func (g *GroupRepository) GroupsOf(_ context.Context, userID domain.UserID) ([]domain.GroupSummary, error) {
	var summaries []domain.GroupSummary
	var createdAt = map[domain.GroupID]time.Time{}
	err := view(g.db, func(txn *badger.Txn) error {
		var ids []domain.GroupID
		err := scan(txn, userGroupPrefix(userID), false, 0, func(key, _ []byte) error {
			id, err := lastSegment(key)
			if err != nil {
				return err
			}
			ids = append(ids, domain.GroupID(id))
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			group, err := readGroup(txn, id)
			if err != nil {
				return err
			}
			member, err := readMember(txn, id, userID)
			if err != nil {
				return err
			}
			createdAt[id] = group.CreatedAt
			summaries = append(summaries, domain.GroupSummary{
				GroupID:  group.ID,
				Name:     group.Name,
				LeaderID: group.LeaderID,
				Role:     member.Role,
				JoinedAt: member.JoinedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := createdAt[summaries[i].GroupID], createdAt[summaries[j].GroupID]
		if !a.Equal(b) {
			return a.After(b)
		}
		return summaries[i].GroupID > summaries[j].GroupID
	})
	return summaries, nil
}

func readGroup(txn *badger.Txn, groupID domain.GroupID) (domain.Group, error) {
	var disk diskGroup
	err := getJSON(txn, groupKey(groupID), &disk)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	return fromDiskGroup(disk), nil
}

func readMember(txn *badger.Txn, groupID domain.GroupID, userID domain.UserID) (domain.Membership, error) {
	var disk diskMembership
	err := getJSON(txn, memberKey(groupID, userID), &disk)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Membership{}, errors.ErrNotAMember
	}
	if err != nil {
		return domain.Membership{}, err
	}
	return fromDiskMembership(disk)
}

func putMember(txn *badger.Txn, m domain.Membership) error {
	if err := setJSON(txn, memberKey(m.GroupID, m.UserID), toDiskMembership(m)); err != nil {
		return err
	}
	return txn.Set(userGroupKey(m.UserID, m.GroupID), nil)
}

func deleteMember(txn *badger.Txn, groupID domain.GroupID, userID domain.UserID) error {
	if err := txn.Delete(memberKey(groupID, userID)); err != nil {
		return err
	}
	return txn.Delete(userGroupKey(userID, groupID))
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
