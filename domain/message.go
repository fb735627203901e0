package domain

import (
	"messenger/errors"
	"strings"
	"time"
)

type MessageID uint64

type FileKind string

const (
	FileImage FileKind = "image"
	FileVideo FileKind = "video"
	FileAudio FileKind = "audio"
)

// ParseFileKind rejects anything outside the three accepted kinds.
func ParseFileKind(s string) (FileKind, error) {
	switch FileKind(strings.ToLower(strings.TrimSpace(s))) {
	case FileImage:
		return FileImage, nil
	case FileVideo:
		return FileVideo, nil
	case FileAudio:
		return FileAudio, nil
	}
	return "", errors.ErrInvalidFileKind
}

// FileRef is the already resolved handle returned by the blob store.
type FileRef struct {
	URL          string
	Kind         FileKind
	OriginalName string
}

// Body is the payload of a message. At least one of Text or File must be set.
type Body struct {
	Text *string
	File *FileRef
}

func TextBody(text string) Body {
	return Body{Text: &text}
}

func FileBody(file FileRef) Body {
	return Body{File: &file}
}

// Validate only enforces presence. Whitespace is content, the empty string is not.
func (b Body) Validate() error {
	if !b.HasText() && b.File == nil {
		return errors.ErrEmptyMessage
	}
	if b.File != nil {
		if _, err := ParseFileKind(string(b.File.Kind)); err != nil {
			return err
		}
	}
	return nil
}

func (b Body) HasText() bool {
	return b.Text != nil && *b.Text != ""
}

// Normalize drops an empty text so a file message is stored without one.
func (b Body) Normalize() Body {
	if !b.HasText() {
		b.Text = nil
	}
	return b
}

// DirectMessage is immutable once stored.
type DirectMessage struct {
	ID         MessageID
	SenderID   UserID
	ReceiverID UserID
	Body
	SentAt time.Time
}

// Peer returns the other party of the conversation from userID's point of view.
func (m DirectMessage) Peer(userID UserID) UserID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// GroupMessage has no recipient list: recipients are the members at delivery time.
type GroupMessage struct {
	ID       MessageID
	GroupID  GroupID
	SenderID UserID
	Body
	SentAt time.Time
}

// Before is the total order used by every history listing: timestamp, then id.
func Before(atA time.Time, idA MessageID, atB time.Time, idB MessageID) bool {
	if !atA.Equal(atB) {
		return atA.Before(atB)
	}
	return idA < idB
}
