package ws

import (
	"log/slog"
	"messenger/auth"
	"messenger/contract"
	"messenger/domain"
	"messenger/errors"
	"messenger/sink"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Gateway upgrades authenticated requests to websocket connections and
// registers one sink per connection in the session registry.
type Gateway struct {
	log        *slog.Logger
	sessions   contract.ISessionRegistry
	bufferSize int
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

func NewGateway(log *slog.Logger, sessions contract.ISessionRegistry, bufferSize int) *Gateway {
	return &Gateway{
		log:        log,
		sessions:   sessions,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Tokens, not cookies, authenticate the socket
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// ServeHTTP must sit behind auth.Middleware.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, errors.ErrUnauthenticated.Message, http.StatusUnauthorized)
		return
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request
		g.log.Warn("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	c := &client{
		id:      uuid.NewString(),
		userID:  userID,
		conn:    conn,
		sink:    sink.NewChannelSink(g.bufferSize),
		gateway: g,
		done:    make(chan struct{}),
	}
	g.register(c)

	go c.writePump()
	go c.readPump()
}

func (g *Gateway) register(c *client) {
	g.mu.Lock()
	g.clients[c.id] = c
	g.mu.Unlock()

	g.sessions.Connect(c.id, c.userID, c.sink)
	g.log.Info("Connection opened", "connection_id", c.id, "user_id", c.userID)
	c.reply(Connected{ConnectionID: c.id, UserID: int64(c.userID)})
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	delete(g.clients, c.id)
	g.mu.Unlock()

	g.sessions.Disconnect(c.id)
	g.log.Info("Connection closed", "connection_id", c.id, "user_id", c.userID)
}

func (g *Gateway) subscribe(c *client, groupID domain.GroupID) bool {
	return g.sessions.Subscribe(c.id, groupID)
}

func (g *Gateway) unsubscribe(c *client, groupID domain.GroupID) {
	g.sessions.Unsubscribe(c.id, groupID)
}

// Shutdown closes every open connection with a close frame.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	clients := make([]*client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	g.log.Info("Websocket gateway stopped", "closed", len(clients))
}

func (g *Gateway) Open() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}
