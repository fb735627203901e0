package httpapi

import (
	"fmt"
	"messenger/auth"
	"messenger/domain"
	"messenger/errors"
	"messenger/infrastructure/blob"
	"net/http"
)

// multipartOverhead leaves room for the form fields around the file part.
const multipartOverhead = 1 << 20

func (s *Server) sendDirect(w http.ResponseWriter, r *http.Request) {
	var req sendDirectRequest
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
	result, err := s.Dispatcher.SendDirect(r.Context(), senderID, domain.UserID(req.ReceiverID), body)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryResponse(result, body.File))
}

// uploadDirect stores the file, then sends it as a direct message.
func (s *Server) uploadDirect(w http.ResponseWriter, r *http.Request) {
	senderID := domain.UserID(formIntBeforeFile(w, r, s.MaxUploadBytes, "senderId"))
	receiverID := domain.UserID(formInt(r, "receiverId"))
	if senderID <= 0 || receiverID <= 0 {
		WriteError(w, fmt.Errorf("%w: senderId and receiverId are required", errors.ErrInvalidRequest))
		return
	}
	if err := auth.RequireCaller(r.Context(), senderID); err != nil {
		WriteError(w, err)
		return
	}
	// No orphan blob for a conversation that cannot exist
	if _, err := s.Directory.Lookup(r.Context(), receiverID); err != nil {
		WriteError(w, err)
		return
	}
	ref, err := s.storeUpload(r, blob.ScopeDirect)
	if err != nil {
		WriteError(w, err)
		return
	}
	result, err := s.Dispatcher.SendDirect(r.Context(), senderID, receiverID, domain.FileBody(ref))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryResponse(result, &ref))
}

func (s *Server) conversation(w http.ResponseWriter, r *http.Request) {
	a, err := pathUser(r, "a")
	if err != nil {
		WriteError(w, err)
		return
	}
	b, err := pathUser(r, "b")
	if err != nil {
		WriteError(w, err)
		return
	}
	// Only a participant reads a conversation
	if auth.RequireCaller(r.Context(), a) != nil {
		if err := auth.RequireCaller(r.Context(), b); err != nil {
			WriteError(w, err)
			return
		}
	}
	history, err := s.Messages.History(r.Context(), a, b)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponses(history))
}

func (s *Server) conversations(w http.ResponseWriter, r *http.Request) {
	userID, err := s.callerPath(r, "userId")
	if err != nil {
		WriteError(w, err)
		return
	}
	peers, err := s.Conversations.PeersOf(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeerResponses(peers))
}

// callerPath reads a user id from the path and requires it to be the caller.
func (s *Server) callerPath(r *http.Request, name string) (domain.UserID, error) {
	userID, err := pathUser(r, name)
	if err != nil {
		return 0, err
	}
	if err := auth.RequireCaller(r.Context(), userID); err != nil {
		return 0, err
	}
	return userID, nil
}

// formIntBeforeFile bounds the request body, parses the multipart form and
// returns the named integer field. Parse failures surface later as a missing field.
func formIntBeforeFile(w http.ResponseWriter, r *http.Request, maxBytes int64, name string) int64 {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	_ = r.ParseMultipartForm(multipartOverhead)
	return formInt(r, name)
}

func (s *Server) storeUpload(r *http.Request, scope blob.Scope) (domain.FileRef, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("%w: no file uploaded", errors.ErrInvalidRequest)
	}
	defer file.Close()
	if header.Size > s.MaxUploadBytes {
		return domain.FileRef{}, errors.ErrFileTooLarge
	}
	return s.Blobs.Put(r.Context(), scope, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
}
