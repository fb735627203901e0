// Package projection builds local timelines from pushed events.
// Handles ordering and deduplication per conversation.
// Does not emit events or talk to the server.
package projection

import (
	"cmp"
	"messenger/domain"
	"messenger/domain/event"
	"slices"
	"sync"
	"time"
)

// Conversation names a direct peer or a group, never both.
type Conversation struct {
	PeerID  int64
	GroupID int64
}

func (c Conversation) IsGroup() bool { return c.GroupID != 0 }

type Message struct {
	ID         uint64
	SenderID   int64
	SenderName string
	Text       *string
	File       *event.FilePayload
	SentAt     time.Time
}

// Timeline holds what one user has seen, as a client would keep it.
// Direct and group messages are numbered separately, so they are deduplicated separately.
type Timeline struct {
	Owner domain.UserID

	mu            sync.Mutex
	conversations map[Conversation][]Message
	seen          map[seenKey]struct{}
}

type seenKey struct {
	group bool
	id    uint64
}

func NewTimeline(owner domain.UserID) *Timeline {
	return &Timeline{
		Owner:         owner,
		conversations: make(map[Conversation][]Message),
		seen:          make(map[seenKey]struct{}),
	}
}

// Consume folds e into the timeline and reports whether it added a message.
// Redelivered messages and events that carry no message are ignored.
func (t *Timeline) Consume(e event.DomainEvent) bool {
	switch evt := e.(type) {
	case event.ReceiveMessage:
		peer := evt.SenderID
		if peer == int64(t.Owner) {
			peer = evt.ReceiverID
		}
		return t.add(Conversation{PeerID: peer}, false, Message{
			ID:         evt.ID,
			SenderID:   evt.SenderID,
			SenderName: evt.SenderName,
			Text:       evt.Text,
			File:       evt.FileRef,
			SentAt:     evt.SentAt,
		})
	case event.ReceiveGroupMessage:
		return t.add(Conversation{GroupID: evt.GroupID}, true, Message{
			ID:         evt.ID,
			SenderID:   evt.SenderID,
			SenderName: evt.SenderName,
			Text:       evt.Text,
			File:       evt.FileRef,
			SentAt:     evt.SentAt,
		})
	}
	return false
}

func (t *Timeline) add(c Conversation, group bool, m Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := seenKey{group: group, id: m.ID}
	if _, ok := t.seen[key]; ok {
		return false
	}
	t.seen[key] = struct{}{}

	// Ordered by send time, ties broken by id
	messages := t.conversations[c]
	i, _ := slices.BinarySearchFunc(messages, m, compareMessages)
	t.conversations[c] = slices.Insert(messages, i, m)
	return true
}

func compareMessages(a, b Message) int {
	if c := a.SentAt.Compare(b.SentAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Messages returns a copy of one conversation, oldest first.
func (t *Timeline) Messages(c Conversation) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.conversations[c])
}

// Conversations lists known conversations, most recent activity first.
func (t *Timeline) Conversations() []Conversation {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]Conversation, 0, len(t.conversations))
	for c := range t.conversations {
		keys = append(keys, c)
	}
	slices.SortFunc(keys, func(a, b Conversation) int {
		return compareMessages(t.last(b), t.last(a))
	})
	return keys
}

func (t *Timeline) last(c Conversation) Message {
	messages := t.conversations[c]
	return messages[len(messages)-1]
}
