package httpapi

import (
	"messenger/domain"
	"messenger/domain/event"
	"strings"
	"time"

	"github.com/samber/lo"
)

type sendDirectRequest struct {
	SenderID   int64   `json:"senderId" validate:"required,gt=0"`
	ReceiverID int64   `json:"receiverId" validate:"required,gt=0"`
	Message    *string `json:"message" validate:"omitempty,max=4000"`
	FileURL    *string `json:"fileUrl" validate:"omitempty,max=2048"`
	FileType   *string `json:"fileType"`
	FileName   *string `json:"fileName" validate:"omitempty,max=255"`
}

type sendGroupRequest struct {
	GroupChatID int64   `json:"groupChatId" validate:"required,gt=0"`
	SenderID    int64   `json:"senderId" validate:"required,gt=0"`
	Message     *string `json:"message" validate:"omitempty,max=4000"`
	FileURL     *string `json:"fileUrl" validate:"omitempty,max=2048"`
	FileType    *string `json:"fileType"`
	FileName    *string `json:"fileName" validate:"omitempty,max=255"`
}

// Name is checked by the group registry so a blank name keeps its own error code.
type createGroupRequest struct {
	CreatorID int64  `json:"creatorId" validate:"required,gt=0"`
	Name      string `json:"name" validate:"max=100"`
}

type inviteRequest struct {
	GroupChatID   int64 `json:"groupChatId" validate:"required,gt=0"`
	InviterID     int64 `json:"inviterId" validate:"required,gt=0"`
	InvitedUserID int64 `json:"invitedUserId" validate:"required,gt=0"`
}

type leaveRequest struct {
	GroupChatID int64 `json:"groupChatId" validate:"required,gt=0"`
	UserID      int64 `json:"userId" validate:"required,gt=0"`
}

type kickRequest struct {
	GroupChatID int64 `json:"groupChatId" validate:"required,gt=0"`
	AdminID     int64 `json:"adminId" validate:"required,gt=0"`
	MemberID    int64 `json:"memberId" validate:"required,gt=0"`
}

type transferRequest struct {
	GroupChatID int64 `json:"groupChatId" validate:"required,gt=0"`
	LeaderID    int64 `json:"leaderId" validate:"required,gt=0"`
	NewLeaderID int64 `json:"newLeaderId" validate:"required,gt=0"`
}

type friendRequestRequest struct {
	Username       string `validate:"required,max=100"`
	FriendUsername string `validate:"required,max=100"`
}

type acceptFriendRequest struct {
	UserID   int64 `validate:"required,gt=0"`
	FriendID int64 `validate:"required,gt=0"`
}

// toBody maps the optional text and file fields of a send request.
// A file reference without a kind is left for the domain to reject.
func toBody(message, fileURL, fileType, fileName *string) domain.Body {
	body := domain.Body{Text: message}
	if url := strings.TrimSpace(lo.FromPtr(fileURL)); url != "" {
		body.File = &domain.FileRef{
			URL:          url,
			Kind:         domain.FileKind(strings.ToLower(strings.TrimSpace(lo.FromPtr(fileType)))),
			OriginalName: lo.FromPtr(fileName),
		}
	}
	return body
}

type deliveryResponse struct {
	MessageID uint64             `json:"messageId"`
	SentAt    time.Time          `json:"sentAt"`
	FileRef   *event.FilePayload `json:"fileRef,omitempty"`
}

type messageResponse struct {
	ID         uint64             `json:"id"`
	SenderID   int64              `json:"senderId"`
	ReceiverID int64              `json:"receiverId"`
	Text       *string            `json:"text,omitempty"`
	FileRef    *event.FilePayload `json:"fileRef,omitempty"`
	SentAt     time.Time          `json:"sentAt"`
}

type groupMessageResponse struct {
	ID       uint64             `json:"id"`
	GroupID  int64              `json:"groupId"`
	SenderID int64              `json:"senderId"`
	Text     *string            `json:"text,omitempty"`
	FileRef  *event.FilePayload `json:"fileRef,omitempty"`
	SentAt   time.Time          `json:"sentAt"`
}

type peerResponse struct {
	PeerID        int64              `json:"peerId"`
	PeerName      string             `json:"peerName"`
	PeerAvatar    *string            `json:"peerAvatar,omitempty"`
	LastMessageID uint64             `json:"lastMessageId"`
	LastText      *string            `json:"lastText,omitempty"`
	LastFile      *event.FilePayload `json:"lastFile,omitempty"`
	LastSentAt    time.Time          `json:"lastSentAt"`
}

type groupResponse struct {
	GroupID   int64     `json:"groupId"`
	Name      string    `json:"groupName"`
	LeaderID  int64     `json:"leaderId"`
	CreatedAt time.Time `json:"createdAt"`
}

type groupSummaryResponse struct {
	GroupID  int64     `json:"groupId"`
	Name     string    `json:"groupName"`
	LeaderID int64     `json:"leaderId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type memberResponse struct {
	UserID   int64     `json:"userId"`
	Name     string    `json:"name"`
	Avatar   *string   `json:"avatar,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type userResponse struct {
	UserID int64   `json:"userId"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

type pendingResponse struct {
	ID        uint64    `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type friendEdgeResponse struct {
	ID        uint64    `json:"id"`
	UserID    int64     `json:"userId"`
	FriendID  int64     `json:"friendId"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"createdAt"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func toDeliveryResponse(r domain.DeliveryResult, file *domain.FileRef) deliveryResponse {
	return deliveryResponse{MessageID: uint64(r.MessageID), SentAt: r.SentAt, FileRef: event.ToFilePayload(file)}
}

func toMessageResponses(ms []domain.DirectMessage) []messageResponse {
	return lo.Map(ms, func(m domain.DirectMessage, _ int) messageResponse {
		return messageResponse{
			ID:         uint64(m.ID),
			SenderID:   int64(m.SenderID),
			ReceiverID: int64(m.ReceiverID),
			Text:       m.Text,
			FileRef:    event.ToFilePayload(m.File),
			SentAt:     m.SentAt,
		}
	})
}

func toGroupMessageResponses(ms []domain.GroupMessage) []groupMessageResponse {
	return lo.Map(ms, func(m domain.GroupMessage, _ int) groupMessageResponse {
		return groupMessageResponse{
			ID:       uint64(m.ID),
			GroupID:  int64(m.GroupID),
			SenderID: int64(m.SenderID),
			Text:     m.Text,
			FileRef:  event.ToFilePayload(m.File),
			SentAt:   m.SentAt,
		}
	})
}

func toPeerResponses(ps []domain.PeerSummary) []peerResponse {
	return lo.Map(ps, func(p domain.PeerSummary, _ int) peerResponse {
		return peerResponse{
			PeerID:        int64(p.PeerID),
			PeerName:      p.PeerName,
			PeerAvatar:    p.PeerAvatar,
			LastMessageID: uint64(p.LastMessageID),
			LastText:      p.LastText,
			LastFile:      event.ToFilePayload(p.LastFile),
			LastSentAt:    p.LastSentAt,
		}
	})
}

func toGroupResponse(g domain.Group) groupResponse {
	return groupResponse{GroupID: int64(g.ID), Name: g.Name, LeaderID: int64(g.LeaderID), CreatedAt: g.CreatedAt}
}

func toGroupSummaryResponses(gs []domain.GroupSummary) []groupSummaryResponse {
	return lo.Map(gs, func(g domain.GroupSummary, _ int) groupSummaryResponse {
		return groupSummaryResponse{
			GroupID:  int64(g.GroupID),
			Name:     g.Name,
			LeaderID: int64(g.LeaderID),
			Role:     string(g.Role),
			JoinedAt: g.JoinedAt,
		}
	})
}

func toMemberResponses(ms []domain.GroupMember) []memberResponse {
	return lo.Map(ms, func(m domain.GroupMember, _ int) memberResponse {
		return memberResponse{
			UserID:   int64(m.User.ID),
			Name:     m.User.DisplayName,
			Avatar:   m.User.AvatarHandle,
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt,
		}
	})
}

func toUserResponses(us []domain.User) []userResponse {
	return lo.Map(us, func(u domain.User, _ int) userResponse {
		return userResponse{UserID: int64(u.ID), Name: u.DisplayName, Avatar: u.AvatarHandle}
	})
}

func toPendingResponses(ps []domain.PendingRequest) []pendingResponse {
	return lo.Map(ps, func(p domain.PendingRequest, _ int) pendingResponse {
		return pendingResponse{
			ID:        uint64(p.ID),
			UserID:    int64(p.Peer.ID),
			Name:      p.Peer.DisplayName,
			Avatar:    p.Peer.AvatarHandle,
			CreatedAt: p.CreatedAt,
		}
	})
}

func toFriendEdgeResponse(e domain.FriendEdge) friendEdgeResponse {
	return friendEdgeResponse{
		ID:        uint64(e.ID),
		UserID:    int64(e.UserID),
		FriendID:  int64(e.FriendID),
		Accepted:  e.Accepted,
		CreatedAt: e.CreatedAt,
	}
}
