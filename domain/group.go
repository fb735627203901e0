package domain

import (
	"messenger/errors"
	"time"
)

type GroupID int64

type Role string

const (
	RoleLeader Role = "Leader"
	RoleMember Role = "Member"
)

// ParseRole maps stored or incoming role strings onto the closed enumeration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleLeader:
		return RoleLeader, nil
	case RoleMember:
		return RoleMember, nil
	}
	return "", errors.ErrInvalidRole
}

type Group struct {
	ID        GroupID
	Name      string
	LeaderID  UserID
	CreatedAt time.Time
}

type Membership struct {
	GroupID  GroupID
	UserID   UserID
	Role     Role
	JoinedAt time.Time
}

// GroupSummary is one line of a user's group list.
type GroupSummary struct {
	GroupID  GroupID
	Name     string
	LeaderID UserID
	Role     Role
	JoinedAt time.Time
}

// GroupMember is a membership with the member's directory record resolved.
type GroupMember struct {
	User     User
	Role     Role
	JoinedAt time.Time
}
