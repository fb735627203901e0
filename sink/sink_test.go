package sink

import (
	"context"
	"messenger/domain/event"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannelSink_Waits_For_Deadline_When_Full(t *testing.T) {
	req := require.New(t)
	s := NewChannelSink(1)

	// Given a sink whose buffer is already full
	req.NoError(s.Consume(context.Background(), event.MemberLeft{GroupID: 1, UserID: 2}))
	req.Equal(1, s.Pending())

	// When another event arrives with a short deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Consume(ctx, event.MemberLeft{GroupID: 1, UserID: 3})

	// Then the push fails and the buffered event is untouched
	req.ErrorIs(err, context.DeadlineExceeded)
	req.Equal(event.MemberLeft{GroupID: 1, UserID: 2}, <-s.Events())
}

func TestTimeline_Keeps_Arrival_Order(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()
	ctx := context.Background()

	req.NoError(timeline.Consume(ctx, event.KickedFromGroup{GroupID: 1}))
	req.NoError(timeline.Consume(ctx, event.MemberKicked{GroupID: 1, UserID: 3}))

	req.Equal([]string{event.NameKickedFromGroup, event.NameMemberKicked}, timeline.Names())
}
