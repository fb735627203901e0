package event

import (
	"messenger/domain"
	"time"
)

// DomainEvent is anything pushed to a live connection.
type DomainEvent interface {
	Name() string
}

const (
	NameReceiveMessage        = "ReceiveMessage"
	NameReceiveGroupMessage   = "ReceiveGroupMessage"
	NameGroupInvitation       = "GroupInvitation"
	NameMemberLeft            = "MemberLeft"
	NameMemberKicked          = "MemberKicked"
	NameKickedFromGroup       = "KickedFromGroup"
	NameLeadershipTransferred = "LeadershipTransferred"
)

type FilePayload struct {
	URL          string `json:"url"`
	Kind         string `json:"kind"`
	OriginalName string `json:"originalName"`
}

func ToFilePayload(f *domain.FileRef) *FilePayload {
	if f == nil {
		return nil
	}
	return &FilePayload{URL: f.URL, Kind: string(f.Kind), OriginalName: f.OriginalName}
}

type ReceiveMessage struct {
	ID           uint64       `json:"id"`
	SenderID     int64        `json:"senderId"`
	SenderName   string       `json:"senderName"`
	SenderAvatar *string      `json:"senderAvatar,omitempty"`
	ReceiverID   int64        `json:"receiverId"`
	Text         *string      `json:"text,omitempty"`
	FileRef      *FilePayload `json:"fileRef,omitempty"`
	SentAt       time.Time    `json:"sentAt"`
}

func (ReceiveMessage) Name() string { return NameReceiveMessage }

type ReceiveGroupMessage struct {
	GroupID    int64        `json:"groupId"`
	ID         uint64       `json:"id"`
	SenderID   int64        `json:"senderId"`
	SenderName string       `json:"senderName"`
	Text       *string      `json:"text,omitempty"`
	FileRef    *FilePayload `json:"fileRef,omitempty"`
	SentAt     time.Time    `json:"sentAt"`
}

func (ReceiveGroupMessage) Name() string { return NameReceiveGroupMessage }

type GroupInvitation struct {
	GroupID     int64  `json:"groupId"`
	GroupName   string `json:"groupName"`
	InviterName string `json:"inviterName"`
}

func (GroupInvitation) Name() string { return NameGroupInvitation }

type MemberLeft struct {
	GroupID int64 `json:"groupId"`
	UserID  int64 `json:"userId"`
}

func (MemberLeft) Name() string { return NameMemberLeft }

type MemberKicked struct {
	GroupID int64 `json:"groupId"`
	UserID  int64 `json:"userId"`
}

func (MemberKicked) Name() string { return NameMemberKicked }

type KickedFromGroup struct {
	GroupID   int64  `json:"groupId"`
	GroupName string `json:"groupName"`
}

func (KickedFromGroup) Name() string { return NameKickedFromGroup }

type LeadershipTransferred struct {
	GroupID          int64 `json:"groupId"`
	PreviousLeaderID int64 `json:"previousLeaderId"`
	LeaderID         int64 `json:"leaderId"`
}

func (LeadershipTransferred) Name() string { return NameLeadershipTransferred }
