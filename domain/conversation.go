package domain

import "time"

// PeerSummary is one line of a user's conversation list.
type PeerSummary struct {
	PeerID        UserID
	PeerName      string
	PeerAvatar    *string
	LastMessageID MessageID
	LastText      *string
	LastFile      *FileRef
	LastSentAt    time.Time
}

// DeliveryResult is what a sender gets back once the message is durable.
type DeliveryResult struct {
	MessageID MessageID
	SentAt    time.Time
}
