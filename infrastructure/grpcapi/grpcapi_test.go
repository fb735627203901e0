package grpcapi_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"messenger/auth"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/infrastructure/grpcapi"
	"messenger/infrastructure/storage"
	"messenger/observability"
	"messenger/runtime"
	"messenger/runtime/workers"
	"messenger/services"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type harness struct {
	conn     *grpc.ClientConn
	client   *grpcapi.EventsClient
	issuer   *auth.TokenIssuer
	groups   *services.GroupRegistry
	sessions *runtime.SessionRegistry
}

func newHarness(t *testing.T) harness {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	ctx := context.Background()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	directory := storage.NewUserRepository(db)
	for _, u := range []domain.User{{ID: 1, DisplayName: "alice"}, {ID: 2, DisplayName: "bob"}, {ID: 3, DisplayName: "carol"}} {
		req.NoError(directory.Save(ctx, u))
	}
	messageRepo, err := storage.NewMessageRepository(db, log)
	req.NoError(err)
	groupRepo, err := storage.NewGroupRepository(db, log)
	req.NoError(err)

	sessions := runtime.NewSessionRegistry()
	messages := services.NewMessageStore(log, directory, messageRepo, 0)
	dispatcher := runtime.NewDispatcher(log, workers.NewSupervisor(log, 0), sessions, groupRepo,
		directory, messages, observability.NewDeliveryStats(), 2, 16, time.Second)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = dispatcher.Start(runCtx)
		close(done)
	}()

	issuer := auth.NewTokenIssuer("test-secret")
	server := grpcapi.NewServer(log, issuer, sessions, dispatcher, 16)
	listener := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop(time.Second)
		cancel()
		<-done
	})
	return harness{
		conn:     conn,
		client:   grpcapi.NewEventsClient(conn),
		issuer:   issuer,
		groups:   services.NewGroupRegistry(log, directory, groupRepo, dispatcher),
		sessions: sessions,
	}
}

func (h harness) as(t *testing.T, ctx context.Context, userID domain.UserID) context.Context {
	token, err := h.issuer.GenerateToken(userID, nil, time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

// subscribe opens a stream and consumes the leading subscribed event.
func (h harness) subscribe(t *testing.T, ctx context.Context, userID domain.UserID, groups ...int64) *grpcapi.EventStream {
	req := require.New(t)
	stream, err := h.client.Subscribe(h.as(t, ctx, userID), &grpcapi.SubscribeRequest{GroupIDs: groups})
	req.NoError(err)
	first, err := stream.Recv()
	req.NoError(err)
	req.Equal("subscribed", first.Event)
	return stream
}

func TestServer_Health_Needs_No_Token(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	resp, err := grpc_health_v1.NewHealthClient(h.conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: grpcapi.EventsServiceName})

	req.NoError(err)
	req.Equal(grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}

func TestServer_SendDirect_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("should require a token", func(t *testing.T) {
		_, err := h.client.SendDirect(ctx, &grpcapi.SendDirectRequest{SenderID: 1, ReceiverID: 2, Message: "hi"})
		require.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("should refuse to send as someone else", func(t *testing.T) {
		_, err := h.client.SendDirect(h.as(t, ctx, 3), &grpcapi.SendDirectRequest{SenderID: 1, ReceiverID: 2, Message: "hi"})
		require.Equal(t, codes.PermissionDenied, status.Code(err))
		require.Contains(t, status.Convert(err).Message(), "NOT_CALLER")
	})

	t.Run("should map domain errors", func(t *testing.T) {
		_, err := h.client.SendDirect(h.as(t, ctx, 1), &grpcapi.SendDirectRequest{SenderID: 1, ReceiverID: 99, Message: "hi"})
		require.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestServer_Subscribe_Receives_Direct_Messages(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Given Bob listens on a stream
	stream := h.subscribe(t, ctx, 2)
	req.Len(h.sessions.ConnectionsOf(2), 1)

	// When Alice sends him a message
	reply, err := h.client.SendDirect(h.as(t, ctx, 1), &grpcapi.SendDirectRequest{SenderID: 1, ReceiverID: 2, Message: "over grpc"})
	req.NoError(err)
	req.NotZero(reply.MessageID)

	// Then the stream carries it in the websocket JSON shape
	pushed, err := stream.Recv()
	req.NoError(err)
	req.Equal(event.NameReceiveMessage, pushed.Event)
	decoded, err := pushed.Decode()
	req.NoError(err)
	received, ok := decoded.(event.ReceiveMessage)
	req.True(ok)
	req.Equal(reply.MessageID, received.ID)
	req.Equal("alice", received.SenderName)
	req.Equal("over grpc", lo.FromPtr(received.Text))
}

func TestServer_Subscribe_Receives_Group_Messages(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	group, err := h.groups.Create(ctx, 1, "Team")
	req.NoError(err)
	req.NoError(h.groups.Invite(ctx, group.ID, 1, 2))

	stream := h.subscribe(t, ctx, 2, int64(group.ID))

	_, err = h.client.SendGroup(h.as(t, ctx, 1), &grpcapi.SendGroupRequest{GroupID: int64(group.ID), SenderID: 1, Message: "standup"})
	req.NoError(err)

	pushed, err := stream.Recv()
	req.NoError(err)
	req.Equal(event.NameReceiveGroupMessage, pushed.Event)
	var received event.ReceiveGroupMessage
	req.NoError(json.Unmarshal(pushed.Data, &received))
	req.Equal(int64(group.ID), received.GroupID)
	req.Equal("standup", lo.FromPtr(received.Text))

	// A non member cannot post
	_, err = h.client.SendGroup(h.as(t, ctx, 3), &grpcapi.SendGroupRequest{GroupID: int64(group.ID), SenderID: 3, Message: "let me in"})
	req.Equal(codes.PermissionDenied, status.Code(err))
}

func TestPushedEvent_Decode_Rejects_Unknown_Names(t *testing.T) {
	_, err := (&grpcapi.PushedEvent{Event: "typing", Data: json.RawMessage(`{}`)}).Decode()
	require.Error(t, err)
}

func TestServer_Subscribe_Cleans_Up_On_Cancel(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	h.subscribe(t, ctx, 2)
	req.Len(h.sessions.ConnectionsOf(2), 1)

	cancel()

	req.Eventually(func() bool { return len(h.sessions.ConnectionsOf(2)) == 0 }, 2*time.Second, 10*time.Millisecond)
}
