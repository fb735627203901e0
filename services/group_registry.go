package services

import (
	"context"
	"log/slog"
	"messenger/contract"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/errors"
	"messenger/infrastructure/storage"
	"messenger/runtime"
	"strings"
)

var _ contract.IMembership = (*GroupRegistry)(nil)

type IGroupRegistry interface {
	Create(ctx context.Context, creatorID domain.UserID, name string) (domain.Group, error)
	Invite(ctx context.Context, groupID domain.GroupID, inviterID, inviteeID domain.UserID) error
	Leave(ctx context.Context, groupID domain.GroupID, userID domain.UserID) error
	Kick(ctx context.Context, groupID domain.GroupID, adminID, targetID domain.UserID) error
	TransferLeadership(ctx context.Context, groupID domain.GroupID, leaderID, successorID domain.UserID) (domain.Group, error)
	IsMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (bool, error)
	MembersOf(ctx context.Context, groupID domain.GroupID) ([]domain.GroupMember, error)
	Group(ctx context.Context, groupID domain.GroupID) (domain.Group, error)
}

// GroupRegistry owns groups, leadership and membership. Mutations on one
// group are linearized; notifications are emitted once the change is stored.
type GroupRegistry struct {
	log       *slog.Logger
	directory contract.IDirectory
	repo      storage.IGroupRepository
	emitter   contract.IEmitter
	groups    *runtime.KeyedMutex[domain.GroupID]
}

func NewGroupRegistry(log *slog.Logger, directory contract.IDirectory, repo storage.IGroupRepository, emitter contract.IEmitter) *GroupRegistry {
	return &GroupRegistry{
		log:       log,
		directory: directory,
		repo:      repo,
		emitter:   emitter,
		groups:    runtime.NewKeyedMutex[domain.GroupID](),
	}
}

func (g *GroupRegistry) Create(ctx context.Context, creatorID domain.UserID, name string) (domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Group{}, errors.ErrInvalidName
	}
	if _, err := g.directory.Lookup(ctx, creatorID); err != nil {
		return domain.Group{}, err
	}
	group, err := g.repo.Create(ctx, creatorID, name)
	if err != nil {
		return domain.Group{}, err
	}
	g.log.Info("Group created", "group", group.ID, "name", group.Name, "leader", creatorID)
	return group, nil
}

// Invite adds inviteeID as a Member and notifies them.
// An unknown group is reported before unknown users.
func (g *GroupRegistry) Invite(ctx context.Context, groupID domain.GroupID, inviterID, inviteeID domain.UserID) error {
	if _, err := g.repo.Get(ctx, groupID); err != nil {
		return err
	}
	inviter, err := g.directory.Lookup(ctx, inviterID)
	if err != nil {
		return err
	}
	if _, err := g.directory.Lookup(ctx, inviteeID); err != nil {
		return err
	}

	unlock := g.groups.Lock(groupID)
	defer unlock()
	group, err := g.repo.AddMember(ctx, groupID, inviterID, inviteeID)
	if err != nil {
		return err
	}
	g.log.Info("Member invited", "group", groupID, "inviter", inviterID, "invitee", inviteeID)
	g.emitter.Emit(event.ToUsers(event.GroupInvitation{
		GroupID:     int64(group.ID),
		GroupName:   group.Name,
		InviterName: inviter.DisplayName,
	}, inviteeID))
	return nil
}

// Leave removes userID from the group. The leader must transfer first.
func (g *GroupRegistry) Leave(ctx context.Context, groupID domain.GroupID, userID domain.UserID) error {
	unlock := g.groups.Lock(groupID)
	defer unlock()
	if _, err := g.repo.Leave(ctx, groupID, userID); err != nil {
		return err
	}
	g.log.Info("Member left", "group", groupID, "user", userID)
	g.emitter.Emit(event.ToGroup(event.MemberLeft{GroupID: int64(groupID), UserID: int64(userID)}, groupID))
	return nil
}

// Kick lets the leader remove another member.
func (g *GroupRegistry) Kick(ctx context.Context, groupID domain.GroupID, adminID, targetID domain.UserID) error {
	unlock := g.groups.Lock(groupID)
	defer unlock()
	group, err := g.repo.Kick(ctx, groupID, adminID, targetID)
	if err != nil {
		return err
	}
	g.log.Info("Member kicked", "group", groupID, "by", adminID, "user", targetID)
	g.emitter.Emit(event.ToUsers(event.KickedFromGroup{GroupID: int64(group.ID), GroupName: group.Name}, targetID))
	g.emitter.Emit(event.ToGroup(event.MemberKicked{GroupID: int64(groupID), UserID: int64(targetID)}, groupID))
	return nil
}

// TransferLeadership hands the Leader role to successorID, a current member.
// Only the current leader may call it.
func (g *GroupRegistry) TransferLeadership(ctx context.Context, groupID domain.GroupID, leaderID, successorID domain.UserID) (domain.Group, error) {
	unlock := g.groups.Lock(groupID)
	defer unlock()
	group, err := g.repo.TransferLeadership(ctx, groupID, leaderID, successorID)
	if err != nil {
		return domain.Group{}, err
	}
	g.log.Info("Leadership transferred", "group", groupID, "from", leaderID, "to", successorID)
	g.emitter.Emit(event.ToGroup(event.LeadershipTransferred{
		GroupID:          int64(groupID),
		PreviousLeaderID: int64(leaderID),
		LeaderID:         int64(successorID),
	}, groupID))
	return group, nil
}

func (g *GroupRegistry) IsMember(ctx context.Context, groupID domain.GroupID, userID domain.UserID) (bool, error) {
	return g.repo.IsMember(ctx, groupID, userID)
}

// MembersOf lists members by join time with their directory records.
func (g *GroupRegistry) MembersOf(ctx context.Context, groupID domain.GroupID) ([]domain.GroupMember, error) {
	memberships, err := g.repo.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members := make([]domain.GroupMember, 0, len(memberships))
	for _, m := range memberships {
		user, err := g.directory.Lookup(ctx, m.UserID)
		if err != nil {
			return nil, err
		}
		members = append(members, domain.GroupMember{User: user, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return members, nil
}

func (g *GroupRegistry) Group(ctx context.Context, groupID domain.GroupID) (domain.Group, error) {
	return g.repo.Get(ctx, groupID)
}
