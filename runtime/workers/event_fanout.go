package workers

import (
	"context"
	"log/slog"
	"messenger/contract"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/observability"
	"sync"
	"time"

	"github.com/samber/lo"
)

// EventFanout pushes deliveries to live connections.
//
// Delivery is best effort: no retry, no queue for offline users, no ordering
// across workers. A slow or broken sink only costs its own timeout.
//
// Group deliveries are filtered by membership at push time, so a connection
// still subscribed to a group its user has left gets nothing.
type EventFanout struct {
	log         *slog.Logger
	deliveries  <-chan event.Delivery
	sessions    contract.ISessionRegistry
	membership  contract.IMembership
	sinkTimeout time.Duration
	stats       *observability.DeliveryStats
}

func NewEventFanout(log *slog.Logger, deliveries <-chan event.Delivery,
	sessions contract.ISessionRegistry, membership contract.IMembership,
	sinkTimeout time.Duration, stats *observability.DeliveryStats) *EventFanout {
	return &EventFanout{
		log:         log,
		deliveries:  deliveries,
		sessions:    sessions,
		membership:  membership,
		sinkTimeout: sinkTimeout,
		stats:       stats,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case d, ok := <-w.deliveries:
			if !ok {
				return nil
			}
			w.Fanout(ctx, d)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout pushes one delivery to every connection of its audience and waits
// for all pushes, each bounded by the sink timeout.
func (w *EventFanout) Fanout(ctx context.Context, d event.Delivery) {
	connections := w.audience(ctx, d)
	var wg sync.WaitGroup
	for _, connectionID := range connections {
		sink, ok := w.sessions.Sink(connectionID)
		if !ok {
			// Disconnected since the audience was resolved
			continue
		}
		wg.Add(1)
		go func(connectionID string, sink contract.EventSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			defer cancel()
			if err := sink.Consume(sinkCtx, d.Event); err != nil {
				w.stats.IncrPushFailed()
				w.log.Warn("Push failed", "connection", connectionID, "event", d.Event.Name(), "error", err)
				return
			}
			w.stats.IncrPushed()
		}(connectionID, sink)
	}
	wg.Wait()
}

func (w *EventFanout) audience(ctx context.Context, d event.Delivery) []string {
	var connections []string
	for _, userID := range d.Users {
		connections = append(connections, w.sessions.ConnectionsOf(userID)...)
	}
	if d.Group != nil {
		connections = append(connections, w.groupAudience(ctx, *d.Group)...)
	}
	return lo.Uniq(connections)
}

// groupAudience keeps the subscribers whose user is a member right now.
// A failed membership check excludes the connection.
func (w *EventFanout) groupAudience(ctx context.Context, groupID domain.GroupID) []string {
	members := make(map[domain.UserID]bool)
	var connections []string
	for _, connectionID := range w.sessions.SubscribersOf(groupID) {
		userID, ok := w.sessions.UserOf(connectionID)
		if !ok {
			continue
		}
		member, checked := members[userID]
		if !checked {
			var err error
			member, err = w.membership.IsMember(ctx, groupID, userID)
			if err != nil {
				w.log.Warn("Membership check failed, skipping", "group", groupID, "user", userID, "error", err)
				member = false
			}
			members[userID] = member
		}
		if !member {
			w.stats.IncrFilteredMember()
			continue
		}
		connections = append(connections, connectionID)
	}
	return connections
}
