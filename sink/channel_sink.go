package sink

import (
	"context"
	"messenger/contract"
	"messenger/domain/event"
)

// ChannelSink buffers events for one live connection.
// The transport owning the connection drains Events.
type ChannelSink struct {
	events chan event.DomainEvent
}

var _ contract.EventSink = (*ChannelSink)(nil)

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fanout.
// A full buffer waits for the caller's deadline, then the event is lost for this connection.
func (s *ChannelSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Events() <-chan event.DomainEvent {
	return s.events
}

func (s *ChannelSink) Pending() int {
	return len(s.events)
}
