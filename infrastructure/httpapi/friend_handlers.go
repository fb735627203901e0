package httpapi

import (
	"messenger/auth"
	"messenger/domain"
	"net/http"
)

// requestFriend keeps the original query parameters: username, friendUsername.
func (s *Server) requestFriend(w http.ResponseWriter, r *http.Request) {
	req := friendRequestRequest{Username: r.FormValue("username"), FriendUsername: r.FormValue("friendUsername")}
	if err := check(req); err != nil {
		WriteError(w, err)
		return
	}
	user, err := s.Directory.LookupByName(r.Context(), req.Username)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := auth.RequireCaller(r.Context(), user.ID); err != nil {
		WriteError(w, err)
		return
	}
	edge, err := s.Friends.RequestFriendByName(r.Context(), req.Username, req.FriendUsername)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFriendEdgeResponse(edge))
}

// acceptFriend: userId accepts the request friendId sent them.
func (s *Server) acceptFriend(w http.ResponseWriter, r *http.Request) {
	req := acceptFriendRequest{UserID: formInt(r, "userId"), FriendID: formInt(r, "friendId")}
	if err := check(req); err != nil {
		WriteError(w, err)
		return
	}
	userID := domain.UserID(req.UserID)
	if err := auth.RequireCaller(r.Context(), userID); err != nil {
		WriteError(w, err)
		return
	}
	edge, err := s.Friends.AcceptFriend(r.Context(), userID, domain.UserID(req.FriendID))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFriendEdgeResponse(edge))
}

func (s *Server) friends(w http.ResponseWriter, r *http.Request) {
	userID, err := s.callerPath(r, "userId")
	if err != nil {
		WriteError(w, err)
		return
	}
	friends, err := s.Friends.ListFriends(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponses(friends))
}

func (s *Server) outgoingPending(w http.ResponseWriter, r *http.Request) {
	userID, err := s.callerPath(r, "userId")
	if err != nil {
		WriteError(w, err)
		return
	}
	pending, err := s.Friends.ListOutgoingPending(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPendingResponses(pending))
}

func (s *Server) incomingPending(w http.ResponseWriter, r *http.Request) {
	userID, err := s.callerPath(r, "userId")
	if err != nil {
		WriteError(w, err)
		return
	}
	pending, err := s.Friends.ListIncomingPending(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPendingResponses(pending))
}
