package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"messenger/auth"
	"messenger/domain"
	"messenger/errors"
	"messenger/infrastructure/blob"
	"messenger/infrastructure/httpapi"
	"messenger/infrastructure/storage"
	"messenger/mocks"
	"messenger/observability"
	"messenger/runtime"
	"messenger/runtime/workers"
	"messenger/services"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const maxUpload = 1 << 20

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type api struct {
	t      *testing.T
	url    string
	issuer *auth.TokenIssuer
}

// newAPI wires the real services on an in-memory store. override may swap
// dependencies before the router is built.
func newAPI(t *testing.T, override func(*httpapi.Deps)) *api {
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
	friendRepo, err := storage.NewFriendRepository(db, log)
	req.NoError(err)

	stats := observability.NewDeliveryStats()
	sessions := runtime.NewSessionRegistry()
	messages := services.NewMessageStore(log, directory, messageRepo, 0)
	dispatcher := runtime.NewDispatcher(log, workers.NewSupervisor(log, 0), sessions, groupRepo,
		directory, messages, stats, 2, 16, time.Second)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = dispatcher.Start(runCtx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	disk, err := blob.NewDiskStore(log, t.TempDir(), maxUpload)
	req.NoError(err)

	issuer := auth.NewTokenIssuer("test-secret")
	deps := httpapi.Deps{
		Log:            log,
		Issuer:         issuer,
		Directory:      directory,
		Friends:        services.NewFriendGraph(log, directory, friendRepo),
		Groups:         services.NewGroupRegistry(log, directory, groupRepo, dispatcher),
		Messages:       messages,
		Conversations:  services.NewConversationIndex(directory, messageRepo, groupRepo),
		Dispatcher:     dispatcher,
		Blobs:          disk,
		MaxUploadBytes: maxUpload,
		Uploads:        disk.Handler(),
		Stats: func() observability.StatsSnapshot {
			return stats.Snapshot(sessions.Count(), dispatcher.QueueSize(), dispatcher.QueueCapacity())
		},
	}
	if override != nil {
		override(&deps)
	}
	server := httptest.NewServer(httpapi.NewServer(deps).Router())
	t.Cleanup(server.Close)
	return &api{t: t, url: server.URL, issuer: issuer}
}

func (a *api) token(userID domain.UserID) string {
	token, err := a.issuer.GenerateToken(userID, []string{"user"}, time.Hour)
	require.NoError(a.t, err)
	return token
}

func (a *api) do(as domain.UserID, method, path, contentType string, body io.Reader) *http.Response {
	r, err := http.NewRequest(method, a.url+path, body)
	require.NoError(a.t, err)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if as != 0 {
		r.Header.Set("Authorization", "Bearer "+a.token(as))
	}
	resp, err := http.DefaultClient.Do(r)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (a *api) post(as domain.UserID, path string, payload any) *http.Response {
	raw, err := json.Marshal(payload)
	require.NoError(a.t, err)
	return a.do(as, http.MethodPost, path, "application/json", bytes.NewReader(raw))
}

func (a *api) get(as domain.UserID, path string) *http.Response {
	return a.do(as, http.MethodGet, path, "", nil)
}

func (a *api) upload(as domain.UserID, path string, fields map[string]string, name, mimeType string, content []byte) *http.Response {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, writer.WriteField(k, v))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(a.t, err)
	_, err = part.Write(content)
	require.NoError(a.t, err)
	require.NoError(a.t, writer.Close())
	return a.do(as, http.MethodPost, path, writer.FormDataContentType(), &buf)
}

func decodeAs[T any](t *testing.T, resp *http.Response) T {
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requireError(t *testing.T, resp *http.Response, status int, code string) {
	require.Equal(t, status, resp.StatusCode)
	require.Equal(t, code, decodeAs[errorBody](t, resp).Code)
}

func TestServer_Health_Is_Public(t *testing.T) {
	a := newAPI(t, nil)

	resp := a.get(0, "/healthz")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decodeAs[map[string]string](t, resp)["status"])
}

func TestServer_Api_Requires_Token(t *testing.T) {
	a := newAPI(t, nil)

	resp := a.post(0, "/api/chat/send", map[string]any{"senderId": 1, "receiverId": 2, "message": "hi"})

	requireError(t, resp, http.StatusUnauthorized, "UNAUTHENTICATED")
}

func TestServer_Direct_Message_Roundtrip(t *testing.T) {
	req := require.New(t)
	a := newAPI(t, nil)

	// Given Alice sends Bob a message
	resp := a.post(1, "/api/chat/send", map[string]any{"senderId": 1, "receiverId": 2, "message": "hi bob"})
	req.Equal(http.StatusOK, resp.StatusCode)
	sent := decodeAs[map[string]any](t, resp)
	req.NotZero(sent["messageId"])

	// When Bob reads the conversation
	resp = a.get(2, "/api/chat/conversation/1/2")
	req.Equal(http.StatusOK, resp.StatusCode)
	history := decodeAs[[]map[string]any](t, resp)

	// Then the message is there and Bob lists Alice as a peer
	req.Len(history, 1)
	req.Equal("hi bob", history[0]["text"])
	resp = a.get(2, "/api/chat/conversations/2")
	req.Equal(http.StatusOK, resp.StatusCode)
	peers := decodeAs[[]map[string]any](t, resp)
	req.Len(peers, 1)
	req.Equal("alice", peers[0]["peerName"])
}

func TestServer_Acting_User_Must_Be_Caller(t *testing.T) {
	a := newAPI(t, nil)

	t.Run("should refuse to send on behalf of someone else", func(t *testing.T) {
		resp := a.post(3, "/api/chat/send", map[string]any{"senderId": 1, "receiverId": 2, "message": "hi"})
		requireError(t, resp, http.StatusForbidden, "NOT_CALLER")
	})

	t.Run("should refuse to read a conversation of others", func(t *testing.T) {
		resp := a.get(3, "/api/chat/conversation/1/2")
		requireError(t, resp, http.StatusForbidden, "NOT_CALLER")
	})

	t.Run("should refuse to list the friends of someone else", func(t *testing.T) {
		resp := a.get(3, "/api/friend/1")
		requireError(t, resp, http.StatusForbidden, "NOT_CALLER")
	})
}

func TestServer_Rejects_Bad_Requests(t *testing.T) {
	a := newAPI(t, nil)

	t.Run("should reject a missing receiver", func(t *testing.T) {
		resp := a.post(1, "/api/chat/send", map[string]any{"senderId": 1, "message": "hi"})
		requireError(t, resp, http.StatusBadRequest, "INVALID_REQUEST")
	})

	t.Run("should reject an empty body", func(t *testing.T) {
		resp := a.post(1, "/api/chat/send", map[string]any{"senderId": 1, "receiverId": 2})
		requireError(t, resp, http.StatusBadRequest, "EMPTY_MESSAGE")
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		resp := a.do(1, http.MethodPost, "/api/chat/send", "application/json", strings.NewReader("{"))
		requireError(t, resp, http.StatusBadRequest, "INVALID_REQUEST")
	})

	t.Run("should report an unknown receiver", func(t *testing.T) {
		resp := a.post(1, "/api/chat/send", map[string]any{"senderId": 1, "receiverId": 99, "message": "hi"})
		requireError(t, resp, http.StatusNotFound, "USER_NOT_FOUND")
	})
}

func TestServer_Group_Lifecycle(t *testing.T) {
	req := require.New(t)
	a := newAPI(t, nil)

	// Given Alice creates a group and invites Bob
	resp := a.post(1, "/api/groupchat/create", map[string]any{"creatorId": 1, "name": "Team"})
	req.Equal(http.StatusCreated, resp.StatusCode)
	group := decodeAs[map[string]any](t, resp)
	groupID := int64(group["groupId"].(float64))
	req.Equal(float64(1), group["leaderId"])

	resp = a.post(1, "/api/groupchat/invite", map[string]any{"groupChatId": groupID, "inviterId": 1, "invitedUserId": 2})
	req.Equal(http.StatusOK, resp.StatusCode)

	// When Bob posts in the group
	resp = a.post(2, "/api/groupchat/send-message", map[string]any{"groupChatId": groupID, "senderId": 2, "message": "hello team"})
	req.Equal(http.StatusOK, resp.StatusCode)

	// Then members can read history and see both members
	resp = a.get(1, fmt.Sprintf("/api/groupchat/messages/%d", groupID))
	req.Equal(http.StatusOK, resp.StatusCode)
	history := decodeAs[[]map[string]any](t, resp)
	req.Len(history, 1)
	req.Equal("hello team", history[0]["text"])

	resp = a.get(3, fmt.Sprintf("/api/groupchat/members/%d", groupID))
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Len(decodeAs[[]map[string]any](t, resp), 2)

	// And Carol, not a member, cannot read history
	resp = a.get(3, fmt.Sprintf("/api/groupchat/messages/%d", groupID))
	requireError(t, resp, http.StatusForbidden, "NOT_A_MEMBER")

	// And Bob cannot kick anyone
	resp = a.post(2, "/api/groupchat/kick", map[string]any{"groupChatId": groupID, "adminId": 2, "memberId": 1})
	requireError(t, resp, http.StatusForbidden, "FORBIDDEN")

	// When leadership moves to Bob, Alice can leave
	resp = a.post(1, "/api/groupchat/transfer", map[string]any{"groupChatId": groupID, "leaderId": 1, "newLeaderId": 2})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(float64(2), decodeAs[map[string]any](t, resp)["leaderId"])

	resp = a.post(1, "/api/groupchat/leave", map[string]any{"groupChatId": groupID, "userId": 1})
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = a.get(1, "/api/groupchat/user-groups/1")
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Empty(decodeAs[[]map[string]any](t, resp))

	resp = a.get(2, "/api/groupchat/user-groups/2")
	groups := decodeAs[[]map[string]any](t, resp)
	req.Len(groups, 1)
	req.Equal(string(domain.RoleLeader), groups[0]["role"])
}

func TestServer_Unknown_Group_History(t *testing.T) {
	a := newAPI(t, nil)

	resp := a.get(1, "/api/groupchat/messages/42")

	requireError(t, resp, http.StatusNotFound, "GROUP_NOT_FOUND")
}

func TestServer_Friend_Flow(t *testing.T) {
	req := require.New(t)
	a := newAPI(t, nil)

	// Given Alice asks Bob by username
	resp := a.do(1, http.MethodPost, "/api/friend/request?username=alice&friendUsername=bob", "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.False(decodeAs[map[string]any](t, resp)["accepted"].(bool))

	// And Carol cannot ask in Alice's name
	resp = a.do(3, http.MethodPost, "/api/friend/request?username=alice&friendUsername=carol", "", nil)
	requireError(t, resp, http.StatusForbidden, "NOT_CALLER")

	// Then both sides see the pending request
	resp = a.get(1, "/api/friend/pending/1")
	outgoing := decodeAs[[]map[string]any](t, resp)
	req.Len(outgoing, 1)
	req.Equal("bob", outgoing[0]["name"])

	resp = a.get(2, "/api/friend/received/2")
	incoming := decodeAs[[]map[string]any](t, resp)
	req.Len(incoming, 1)
	req.Equal("alice", incoming[0]["name"])

	// When Bob accepts
	resp = a.do(2, http.MethodPost, "/api/friend/accept?userId=2&friendId=1", "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.True(decodeAs[map[string]any](t, resp)["accepted"].(bool))

	// Then they are friends and nothing is pending
	resp = a.get(1, "/api/friend/1")
	friends := decodeAs[[]map[string]any](t, resp)
	req.Len(friends, 1)
	req.Equal("bob", friends[0]["name"])

	resp = a.get(2, "/api/friend/received/2")
	req.Empty(decodeAs[[]map[string]any](t, resp))
}

func TestServer_Upload_Direct_File(t *testing.T) {
	req := require.New(t)
	a := newAPI(t, nil)
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)

	// When Alice uploads a picture for Bob
	resp := a.upload(1, "/api/chat/upload-file", map[string]string{"senderId": "1", "receiverId": "2"},
		"../cat.png", "image/png", content)
	req.Equal(http.StatusOK, resp.StatusCode)
	sent := decodeAs[map[string]any](t, resp)
	fileRef := sent["fileRef"].(map[string]any)

	// Then the reference points at the stored file
	url := fileRef["url"].(string)
	req.True(strings.HasPrefix(url, blob.URLPrefix+"messages/"))
	req.Equal("image", fileRef["kind"])
	req.Equal("cat.png", fileRef["originalName"])

	resp = a.get(0, url)
	req.Equal(http.StatusOK, resp.StatusCode)
	stored, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Equal(content, stored)

	// And the message is in the conversation
	resp = a.get(2, "/api/chat/conversation/1/2")
	history := decodeAs[[]map[string]any](t, resp)
	req.Len(history, 1)
	req.NotNil(history[0]["fileRef"])
}

func TestServer_Upload_Rejections(t *testing.T) {
	a := newAPI(t, nil)

	t.Run("should reject a disguised file", func(t *testing.T) {
		resp := a.upload(1, "/api/chat/upload-file", map[string]string{"senderId": "1", "receiverId": "2"},
			"notes.png", "image/png", []byte("just some text pretending"))
		requireError(t, resp, http.StatusBadRequest, "UNSUPPORTED_MEDIA")
	})

	t.Run("should reject documents", func(t *testing.T) {
		resp := a.upload(1, "/api/chat/upload-file", map[string]string{"senderId": "1", "receiverId": "2"},
			"report.pdf", "application/pdf", []byte("%PDF-1.4"))
		requireError(t, resp, http.StatusBadRequest, "UNSUPPORTED_MEDIA")
	})

	t.Run("should reject an oversized file", func(t *testing.T) {
		resp := a.upload(1, "/api/chat/upload-file", map[string]string{"senderId": "1", "receiverId": "2"},
			"big.png", "image/png", append(append([]byte{}, pngHeader...), make([]byte, maxUpload)...))
		requireError(t, resp, http.StatusBadRequest, "FILE_TOO_LARGE")
	})

	t.Run("should refuse a group upload from a non member", func(t *testing.T) {
		group := decodeAs[map[string]any](t, a.post(1, "/api/groupchat/create", map[string]any{"creatorId": 1, "name": "Team"}))
		resp := a.upload(3, "/api/groupchat/upload-file",
			map[string]string{"senderId": "3", "groupChatId": fmt.Sprint(int64(group["groupId"].(float64)))},
			"cat.png", "image/png", pngHeader)
		requireError(t, resp, http.StatusForbidden, "NOT_A_MEMBER")
	})
}

func TestServer_Upload_Does_Not_Send_When_Storage_Fails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockIStore(ctrl)
	dispatcher := mocks.NewMockIDispatcher(ctrl)
	a := newAPI(t, func(d *httpapi.Deps) {
		d.Blobs = store
		d.Dispatcher = dispatcher
	})

	// Given the blob backend is down
	store.EXPECT().Put(gomock.Any(), blob.ScopeDirect, "cat.png", "image/png", gomock.Any(), int64(len(pngHeader))).
		Return(domain.FileRef{}, errors.Unavailable(context.DeadlineExceeded))
	dispatcher.EXPECT().SendDirect(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// When Alice uploads
	resp := a.upload(1, "/api/chat/upload-file", map[string]string{"senderId": "1", "receiverId": "2"},
		"cat.png", "image/png", pngHeader)

	// Then nothing is sent and the caller sees the outage
	requireError(t, resp, http.StatusServiceUnavailable, "UNAVAILABLE")
}

func TestServer_Hides_Internal_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dispatcher := mocks.NewMockIDispatcher(ctrl)
	a := newAPI(t, func(d *httpapi.Deps) { d.Dispatcher = dispatcher })
	dispatcher.EXPECT().SendDirect(gomock.Any(), domain.UserID(1), domain.UserID(2), gomock.Any()).
		Return(domain.DeliveryResult{}, fmt.Errorf("disk on fire"))

	resp := a.post(1, "/api/chat/send", map[string]any{"senderId": 1, "receiverId": 2, "message": "hi"})

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeAs[errorBody](t, resp)
	require.Equal(t, "internal error", body.Message)
}

func TestServer_Debug_Stats(t *testing.T) {
	req := require.New(t)
	a := newAPI(t, nil)
	a.post(1, "/api/chat/send", map[string]any{"senderId": 1, "receiverId": 2, "message": "hi"})

	resp := a.get(0, "/debug/stats")

	req.Equal(http.StatusOK, resp.StatusCode)
	stats := decodeAs[map[string]any](t, resp)
	req.Equal(float64(16), stats["queue_capacity"])
	req.Equal(float64(1), stats["persisted"])
}
