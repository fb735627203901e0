//go:generate go run go.uber.org/mock/mockgen -source=dispatcher.go -destination=../mocks/mock_dispatcher.go -package=mocks

// Package runtime owns live delivery: the session registry, the dispatcher
// that turns durable writes into deliveries, and the fan-out workers.
// It holds no business rules.
package runtime

import (
	"context"
	"log/slog"
	"messenger/contract"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/observability"
	"messenger/runtime/workers"
	"time"
)

var (
	_ contract.IEmitter = (*Dispatcher)(nil)
	_ IDispatcher       = (*Dispatcher)(nil)
)

// IDispatcher is the send path exposed to transports.
type IDispatcher interface {
	SendDirect(ctx context.Context, senderID, receiverID domain.UserID, body domain.Body) (domain.DeliveryResult, error)
	SendGroup(ctx context.Context, groupID domain.GroupID, senderID domain.UserID, body domain.Body) (domain.DeliveryResult, error)
}

// IMessageStore is the durable half of a send.
type IMessageStore interface {
	AppendDirect(ctx context.Context, senderID, receiverID domain.UserID, body domain.Body) (domain.DirectMessage, error)
	AppendGroup(ctx context.Context, groupID domain.GroupID, senderID domain.UserID, body domain.Body) (domain.GroupMessage, error)
}

// Dispatcher persists a message first, then hands a delivery to the fan-out
// workers. A send never fails because of delivery.
type Dispatcher struct {
	log         *slog.Logger
	numWorkers  int
	supervisor  contract.ISupervisor
	sessions    contract.ISessionRegistry
	membership  contract.IMembership
	directory   contract.IDirectory
	store       IMessageStore
	deliveries  chan event.Delivery
	sinkTimeout time.Duration
	stats       *observability.DeliveryStats
}

func NewDispatcher(log *slog.Logger, supervisor contract.ISupervisor,
	sessions contract.ISessionRegistry, membership contract.IMembership,
	directory contract.IDirectory, store IMessageStore, stats *observability.DeliveryStats,
	numWorkers, bufferSize int, sinkTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		log:         log,
		numWorkers:  numWorkers,
		supervisor:  supervisor,
		sessions:    sessions,
		membership:  membership,
		directory:   directory,
		store:       store,
		deliveries:  make(chan event.Delivery, bufferSize),
		sinkTimeout: sinkTimeout,
		stats:       stats,
	}
}

// SendDirect stores the message, then pushes ReceiveMessage to every live
// connection of both parties, the sender's other devices included.
func (d *Dispatcher) SendDirect(ctx context.Context, senderID, receiverID domain.UserID, body domain.Body) (domain.DeliveryResult, error) {
	msg, err := d.store.AppendDirect(ctx, senderID, receiverID, body)
	if err != nil {
		return domain.DeliveryResult{}, err
	}
	d.stats.IncrPersisted()

	sender := d.sender(ctx, senderID)
	d.Emit(event.ToUsers(event.ReceiveMessage{
		ID:           uint64(msg.ID),
		SenderID:     int64(msg.SenderID),
		SenderName:   sender.DisplayName,
		SenderAvatar: sender.AvatarHandle,
		ReceiverID:   int64(msg.ReceiverID),
		Text:         msg.Text,
		FileRef:      event.ToFilePayload(msg.File),
		SentAt:       msg.SentAt,
	}, senderID, receiverID))
	return domain.DeliveryResult{MessageID: msg.ID, SentAt: msg.SentAt}, nil
}

// SendGroup stores the message, then pushes ReceiveGroupMessage to the
// group's subscribers that are still members when the push happens.
func (d *Dispatcher) SendGroup(ctx context.Context, groupID domain.GroupID, senderID domain.UserID, body domain.Body) (domain.DeliveryResult, error) {
	msg, err := d.store.AppendGroup(ctx, groupID, senderID, body)
	if err != nil {
		return domain.DeliveryResult{}, err
	}
	d.stats.IncrPersisted()

	sender := d.sender(ctx, senderID)
	d.Emit(event.ToGroup(event.ReceiveGroupMessage{
		GroupID:    int64(msg.GroupID),
		ID:         uint64(msg.ID),
		SenderID:   int64(msg.SenderID),
		SenderName: sender.DisplayName,
		Text:       msg.Text,
		FileRef:    event.ToFilePayload(msg.File),
		SentAt:     msg.SentAt,
	}, groupID))
	return domain.DeliveryResult{MessageID: msg.ID, SentAt: msg.SentAt}, nil
}

// sender resolves the display fields of an event. The message is already
// stored at this point, so a failed lookup only degrades the payload.
func (d *Dispatcher) sender(ctx context.Context, userID domain.UserID) domain.User {
	user, err := d.directory.Lookup(ctx, userID)
	if err != nil {
		d.log.Warn("Sender lookup failed after append", "user", userID, "error", err)
		return domain.User{ID: userID}
	}
	return user
}

// Emit queues a delivery without blocking. When the queue is full the
// delivery is dropped and counted.
func (d *Dispatcher) Emit(delivery event.Delivery) {
	select {
	case d.deliveries <- delivery:
		d.stats.IncrEmitted()
	default:
		d.stats.IncrDropped()
		d.log.Warn("Delivery queue full, dropping event", "event", delivery.Event.Name())
	}
}

// Start registers the fan-out workers and blocks while the supervisor runs them.
func (d *Dispatcher) Start(ctx context.Context) error {
	for i := 0; i < d.numWorkers; i++ {
		d.supervisor.Add(workers.NewEventFanout(d.log, d.deliveries, d.sessions, d.membership, d.sinkTimeout, d.stats))
	}
	d.log.Info("Starting dispatcher", "workers", d.numWorkers)
	d.supervisor.Run(ctx)
	return nil
}

func (d *Dispatcher) Stop() {
	d.log.Info("Requesting dispatcher shutdown")
	d.supervisor.Stop()
}

func (d *Dispatcher) QueueSize() int     { return len(d.deliveries) }
func (d *Dispatcher) QueueCapacity() int { return cap(d.deliveries) }
