package sink

import (
	"context"
	"messenger/domain/event"
	"sync"

	"github.com/samber/lo"
)

// Timeline keeps every event it receives, in arrival order.
type Timeline struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	return nil
}

func (t *Timeline) Events() []event.DomainEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]event.DomainEvent(nil), t.events...)
}

func (t *Timeline) Names() []string {
	return lo.Map(t.Events(), func(e event.DomainEvent, _ int) string { return e.Name() })
}
