package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"messenger/auth"
	"messenger/contract"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/errors"
	"messenger/runtime"
	"messenger/sink"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
)

const (
	EventsServiceName        = "messenger.v1.Events"
	SendDirectFullMethodName = "/messenger.v1.Events/SendDirect"
	SendGroupFullMethodName  = "/messenger.v1.Events/SendGroup"
	SubscribeFullMethodName  = "/messenger.v1.Events/Subscribe"
)

type SendDirectRequest struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId"`
	Message    string `json:"message"`
}

type SendGroupRequest struct {
	GroupID  int64  `json:"groupChatId"`
	SenderID int64  `json:"senderId"`
	Message  string `json:"message"`
}

type DeliveryReply struct {
	MessageID uint64    `json:"messageId"`
	SentAt    time.Time `json:"sentAt"`
}

// SubscribeRequest opens a push stream; listed groups are subscribed at once.
type SubscribeRequest struct {
	GroupIDs []int64 `json:"groupIds,omitempty"`
}

// PushedEvent is one message of the Subscribe stream. Data holds the event
// in the same JSON shape the websocket uses.
type PushedEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode returns the typed event carried by p.
func (p *PushedEvent) Decode() (event.DomainEvent, error) {
	switch p.Event {
	case event.NameReceiveMessage:
		return decodeAs[event.ReceiveMessage](p.Data)
	case event.NameReceiveGroupMessage:
		return decodeAs[event.ReceiveGroupMessage](p.Data)
	case event.NameGroupInvitation:
		return decodeAs[event.GroupInvitation](p.Data)
	case event.NameMemberLeft:
		return decodeAs[event.MemberLeft](p.Data)
	case event.NameMemberKicked:
		return decodeAs[event.MemberKicked](p.Data)
	case event.NameKickedFromGroup:
		return decodeAs[event.KickedFromGroup](p.Data)
	case event.NameLeadershipTransferred:
		return decodeAs[event.LeadershipTransferred](p.Data)
	case Subscribed{}.Name():
		return decodeAs[Subscribed](p.Data)
	}
	return nil, fmt.Errorf("unknown event %q", p.Event)
}

func decodeAs[T event.DomainEvent](data json.RawMessage) (event.DomainEvent, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Subscribed is always the first event of a stream.
type Subscribed struct {
	ConnectionID string  `json:"connectionId"`
	GroupIDs     []int64 `json:"groupIds"`
}

func (Subscribed) Name() string { return "subscribed" }

type eventsService interface {
	SendDirect(ctx context.Context, req *SendDirectRequest) (*DeliveryReply, error)
	SendGroup(ctx context.Context, req *SendGroupRequest) (*DeliveryReply, error)
	Subscribe(req *SubscribeRequest, stream grpc.ServerStream) error
}

// EventsServer is the gRPC twin of the websocket gateway: a text send path
// and a server stream registered as one more live connection.
type EventsServer struct {
	log                  *slog.Logger
	sessions             contract.ISessionRegistry
	dispatcher           runtime.IDispatcher
	connectionBufferSize int
}

var _ eventsService = (*EventsServer)(nil)

func NewEventsServer(log *slog.Logger, sessions contract.ISessionRegistry,
	dispatcher runtime.IDispatcher, connectionBufferSize int) *EventsServer {
	return &EventsServer{log: log, sessions: sessions, dispatcher: dispatcher, connectionBufferSize: connectionBufferSize}
}

func (s *EventsServer) SendDirect(ctx context.Context, req *SendDirectRequest) (*DeliveryReply, error) {
	senderID := domain.UserID(req.SenderID)
	if err := auth.RequireCaller(ctx, senderID); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	result, err := s.dispatcher.SendDirect(ctx, senderID, domain.UserID(req.ReceiverID), domain.TextBody(req.Message))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return toDeliveryReply(result), nil
}

func (s *EventsServer) SendGroup(ctx context.Context, req *SendGroupRequest) (*DeliveryReply, error) {
	senderID := domain.UserID(req.SenderID)
	if err := auth.RequireCaller(ctx, senderID); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	result, err := s.dispatcher.SendGroup(ctx, domain.GroupID(req.GroupID), senderID, domain.TextBody(req.Message))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return toDeliveryReply(result), nil
}

// Subscribe blocks until the client goes away. Group delivery still checks
// membership at push time, so subscribing to a foreign group yields nothing.
func (s *EventsServer) Subscribe(req *SubscribeRequest, stream grpc.ServerStream) error {
	userID, ok := auth.UserIDFrom(stream.Context())
	if !ok {
		return errors.MapToGRPCError(errors.ErrUnauthenticated)
	}
	connectionID := uuid.NewString()
	events := sink.NewChannelSink(s.connectionBufferSize)
	s.sessions.Connect(connectionID, userID, events)
	defer s.sessions.Disconnect(connectionID)

	for _, groupID := range req.GroupIDs {
		s.sessions.Subscribe(connectionID, domain.GroupID(groupID))
	}
	if err := send(stream, Subscribed{ConnectionID: connectionID, GroupIDs: req.GroupIDs}); err != nil {
		return err
	}
	s.log.Debug("gRPC subscriber connected", "user_id", userID, "connection_id", connectionID)

	for {
		select {
		case <-stream.Context().Done():
			s.log.Debug("gRPC subscriber disconnected", "user_id", userID, "connection_id", connectionID)
			return nil
		case e := <-events.Events():
			if err := send(stream, e); err != nil {
				s.log.Error("failed to push event to stream",
					"user_id", userID,
					"connection_id", connectionID,
					"error", err)
				return err
			}
		}
	}
}

func send(stream grpc.ServerStream, e interface{ Name() string }) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return stream.SendMsg(&PushedEvent{Event: e.Name(), Data: data})
}

func toDeliveryReply(r domain.DeliveryResult) *DeliveryReply {
	return &DeliveryReply{MessageID: uint64(r.MessageID), SentAt: r.SentAt}
}

func sendDirectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendDirectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(eventsService).SendDirect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SendDirectFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(eventsService).SendDirect(ctx, req.(*SendDirectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sendGroupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendGroupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(eventsService).SendGroup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SendGroupFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(eventsService).SendGroup(ctx, req.(*SendGroupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(eventsService).Subscribe(in, stream)
}

// eventsServiceDesc is written by hand: messages are JSON, there is no .proto.
var eventsServiceDesc = grpc.ServiceDesc{
	ServiceName: EventsServiceName,
	HandlerType: (*eventsService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendDirect", Handler: sendDirectHandler},
		{MethodName: "SendGroup", Handler: sendGroupHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "messenger/events",
}

// EventsClient calls the Events service with the JSON codec.
type EventsClient struct {
	cc grpc.ClientConnInterface
}

func NewEventsClient(cc grpc.ClientConnInterface) *EventsClient {
	return &EventsClient{cc: cc}
}

func (c *EventsClient) SendDirect(ctx context.Context, in *SendDirectRequest, opts ...grpc.CallOption) (*DeliveryReply, error) {
	out := new(DeliveryReply)
	if err := c.cc.Invoke(ctx, SendDirectFullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EventsClient) SendGroup(ctx context.Context, in *SendGroupRequest, opts ...grpc.CallOption) (*DeliveryReply, error) {
	out := new(DeliveryReply)
	if err := c.cc.Invoke(ctx, SendGroupFullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe opens the push stream. Cancel ctx to close it.
func (c *EventsClient) Subscribe(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &eventsServiceDesc.Streams[0], SubscribeFullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}

type EventStream struct {
	stream grpc.ClientStream
}

func (s *EventStream) Recv() (*PushedEvent, error) {
	out := new(PushedEvent)
	if err := s.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}
