package httpapi

import (
	"log/slog"
	"messenger/auth"
	"messenger/contract"
	"messenger/infrastructure/blob"
	"messenger/observability"
	"messenger/runtime"
	"messenger/services"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// StatsProvider reads the live delivery counters.
type StatsProvider func() observability.StatsSnapshot

type Deps struct {
	Log            *slog.Logger
	Issuer         *auth.TokenIssuer
	Directory      contract.IDirectory
	Friends        services.IFriendGraph
	Groups         services.IGroupRegistry
	Messages       services.IMessageStore
	Conversations  services.IConversationIndex
	Dispatcher     runtime.IDispatcher
	Blobs          blob.IStore
	MaxUploadBytes int64
	// Uploads serves disk stored files; nil when blobs live elsewhere.
	Uploads   http.Handler
	Websocket http.Handler
	Stats     StatsProvider
}

// Server is the REST surface of the messenger. Every /api route requires a
// bearer token and every acting user id in a request must be the caller.
type Server struct {
	Deps
}

func NewServer(deps Deps) *Server {
	return &Server{Deps: deps}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	authenticated := auth.Middleware(s.Issuer, WriteError)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if s.Stats != nil {
		r.HandleFunc("/debug/stats", s.debugStats).Methods(http.MethodGet)
	}
	if s.Uploads != nil {
		r.PathPrefix(blob.URLPrefix).Handler(s.Uploads).Methods(http.MethodGet)
	}
	if s.Websocket != nil {
		// Not wrapped by logRequests: the gateway needs the raw hijackable writer
		r.Handle("/ws", authenticated(s.Websocket)).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.logRequests, authenticated)

	chat := api.PathPrefix("/chat").Subrouter()
	chat.HandleFunc("/send", s.sendDirect).Methods(http.MethodPost)
	chat.HandleFunc("/upload-file", s.uploadDirect).Methods(http.MethodPost)
	chat.HandleFunc("/conversation/{a:[0-9]+}/{b:[0-9]+}", s.conversation).Methods(http.MethodGet)
	chat.HandleFunc("/conversations/{userId:[0-9]+}", s.conversations).Methods(http.MethodGet)

	group := api.PathPrefix("/groupchat").Subrouter()
	group.HandleFunc("/create", s.createGroup).Methods(http.MethodPost)
	group.HandleFunc("/invite", s.invite).Methods(http.MethodPost)
	group.HandleFunc("/leave", s.leave).Methods(http.MethodPost)
	group.HandleFunc("/kick", s.kick).Methods(http.MethodPost)
	group.HandleFunc("/transfer", s.transfer).Methods(http.MethodPost)
	group.HandleFunc("/send-message", s.sendGroup).Methods(http.MethodPost)
	group.HandleFunc("/upload-file", s.uploadGroup).Methods(http.MethodPost)
	group.HandleFunc("/members/{groupId:[0-9]+}", s.members).Methods(http.MethodGet)
	group.HandleFunc("/messages/{groupId:[0-9]+}", s.groupMessages).Methods(http.MethodGet)
	group.HandleFunc("/user-groups/{userId:[0-9]+}", s.userGroups).Methods(http.MethodGet)

	friend := api.PathPrefix("/friend").Subrouter()
	friend.HandleFunc("/request", s.requestFriend).Methods(http.MethodPost)
	friend.HandleFunc("/accept", s.acceptFriend).Methods(http.MethodPost)
	friend.HandleFunc("/pending/{userId:[0-9]+}", s.outgoingPending).Methods(http.MethodGet)
	friend.HandleFunc("/received/{userId:[0-9]+}", s.incomingPending).Methods(http.MethodGet)
	friend.HandleFunc("/{userId:[0-9]+}", s.friends).Methods(http.MethodGet)

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) debugStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.Log.Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
