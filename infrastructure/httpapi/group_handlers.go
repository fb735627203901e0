package httpapi

import (
	"fmt"
	"messenger/auth"
	"messenger/domain"
	"messenger/errors"
	"messenger/infrastructure/blob"
	"net/http"
)

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	creatorID := domain.UserID(req.CreatorID)
	if err := auth.RequireCaller(r.Context(), creatorID); err != nil {
		WriteError(w, err)
		return
	}
	group, err := s.Groups.Create(r.Context(), creatorID, req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Server) invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	inviterID := domain.UserID(req.InviterID)
	if err := auth.RequireCaller(r.Context(), inviterID); err != nil {
		WriteError(w, err)
		return
	}
	if err := s.Groups.Invite(r.Context(), domain.GroupID(req.GroupChatID), inviterID, domain.UserID(req.InvitedUserID)); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "member added"})
}

func (s *Server) leave(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	userID := domain.UserID(req.UserID)
	if err := auth.RequireCaller(r.Context(), userID); err != nil {
		WriteError(w, err)
		return
	}
	if err := s.Groups.Leave(r.Context(), domain.GroupID(req.GroupChatID), userID); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "left group"})
}

func (s *Server) kick(w http.ResponseWriter, r *http.Request) {
	var req kickRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	adminID := domain.UserID(req.AdminID)
	if err := auth.RequireCaller(r.Context(), adminID); err != nil {
		WriteError(w, err)
		return
	}
	if err := s.Groups.Kick(r.Context(), domain.GroupID(req.GroupChatID), adminID, domain.UserID(req.MemberID)); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "member kicked"})
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	leaderID := domain.UserID(req.LeaderID)
	if err := auth.RequireCaller(r.Context(), leaderID); err != nil {
		WriteError(w, err)
		return
	}
	group, err := s.Groups.TransferLeadership(r.Context(), domain.GroupID(req.GroupChatID), leaderID, domain.UserID(req.NewLeaderID))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) sendGroup(w http.ResponseWriter, r *http.Request) {
	var req sendGroupRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	senderID := domain.UserID(req.SenderID)
	if err := auth.RequireCaller(r.Context(), senderID); err != nil {
		WriteError(w, err)
		return
	}
	body := toBody(req.Message, req.FileURL, req.FileType, req.FileName)
	result, err := s.Dispatcher.SendGroup(r.Context(), domain.GroupID(req.GroupChatID), senderID, body)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryResponse(result, body.File))
}

func (s *Server) uploadGroup(w http.ResponseWriter, r *http.Request) {
	senderID := domain.UserID(formIntBeforeFile(w, r, s.MaxUploadBytes, "senderId"))
	groupID := domain.GroupID(formInt(r, "groupChatId"))
	if senderID <= 0 || groupID <= 0 {
		WriteError(w, fmt.Errorf("%w: groupChatId and senderId are required", errors.ErrInvalidRequest))
		return
	}
	if err := auth.RequireCaller(r.Context(), senderID); err != nil {
		WriteError(w, err)
		return
	}
	if err := s.requireMember(r, groupID, senderID); err != nil {
		WriteError(w, err)
		return
	}
	ref, err := s.storeUpload(r, blob.ScopeGroup)
	if err != nil {
		WriteError(w, err)
		return
	}
	result, err := s.Dispatcher.SendGroup(r.Context(), groupID, senderID, domain.FileBody(ref))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryResponse(result, &ref))
}

func (s *Server) members(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathGroup(r, "groupId")
	if err != nil {
		WriteError(w, err)
		return
	}
	members, err := s.Groups.MembersOf(r.Context(), groupID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponses(members))
}

// groupMessages is readable by current members only.
func (s *Server) groupMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathGroup(r, "groupId")
	if err != nil {
		WriteError(w, err)
		return
	}
	caller, ok := auth.UserIDFrom(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}
	if err := s.requireMember(r, groupID, caller); err != nil {
		WriteError(w, err)
		return
	}
	history, err := s.Messages.GroupHistory(r.Context(), groupID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupMessageResponses(history))
}

func (s *Server) userGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := s.callerPath(r, "userId")
	if err != nil {
		WriteError(w, err)
		return
	}
	groups, err := s.Conversations.GroupsOf(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupSummaryResponses(groups))
}

// requireMember reports an unknown group before a missing membership.
func (s *Server) requireMember(r *http.Request, groupID domain.GroupID, userID domain.UserID) error {
	if _, err := s.Groups.Group(r.Context(), groupID); err != nil {
		return err
	}
	member, err := s.Groups.IsMember(r.Context(), groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrNotAMember
	}
	return nil
}
