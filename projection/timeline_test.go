package projection

import (
	"messenger/domain/event"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestTimeline_Consume_Direct_Messages(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(2)
	now := time.Now()

	// Given two messages arriving out of order, one of them twice
	late := event.ReceiveMessage{ID: 2, SenderID: 1, SenderName: "Alice", ReceiverID: 2, Text: lo.ToPtr("second"), SentAt: now.Add(time.Second)}
	early := event.ReceiveMessage{ID: 1, SenderID: 2, SenderName: "Bob", ReceiverID: 1, Text: lo.ToPtr("first"), SentAt: now}

	req.True(timeline.Consume(late))
	req.True(timeline.Consume(early))
	req.False(timeline.Consume(late))

	// Then both sides of the conversation land under the peer, in send order
	messages := timeline.Messages(Conversation{PeerID: 1})
	req.Len(messages, 2)
	req.Equal("first", lo.FromPtr(messages[0].Text))
	req.Equal("second", lo.FromPtr(messages[1].Text))
}

func TestTimeline_Group_And_Direct_Ids_Do_Not_Collide(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(2)
	now := time.Now()

	req.True(timeline.Consume(event.ReceiveMessage{ID: 1, SenderID: 1, ReceiverID: 2, SentAt: now}))
	req.True(timeline.Consume(event.ReceiveGroupMessage{ID: 1, GroupID: 9, SenderID: 3, SentAt: now.Add(time.Minute)}))

	req.Equal([]Conversation{{GroupID: 9}, {PeerID: 1}}, timeline.Conversations())
	req.True(timeline.Conversations()[0].IsGroup())
}

func TestTimeline_Ignores_Membership_Events(t *testing.T) {
	timeline := NewTimeline(2)

	require.False(t, timeline.Consume(event.MemberLeft{GroupID: 9, UserID: 3}))
	require.Empty(t, timeline.Conversations())
}
