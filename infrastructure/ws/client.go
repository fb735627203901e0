package ws

import (
	"context"
	"encoding/json"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/errors"
	"messenger/sink"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 4096
)

type client struct {
	id      string
	userID  domain.UserID
	conn    *websocket.Conn
	sink    *sink.ChannelSink
	gateway *Gateway

	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump owns the connection's lifetime: the session is removed when it returns.
func (c *client) readPump() {
	defer func() {
		c.gateway.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.gateway.log.Warn("Websocket read failed", "connection_id", c.id, "error", err)
			}
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.reply(FrameError{Code: errors.ErrInvalidRequest.Code, Message: "frame is not valid JSON"})
			continue
		}
		c.handle(frame)
	}
}

func (c *client) handle(frame clientFrame) {
	switch frame.Event {
	case FrameJoinGroup:
		groupID, ok := c.groupOf(frame)
		if !ok {
			return
		}
		c.gateway.subscribe(c, groupID)
		c.reply(GroupJoined{GroupID: int64(groupID)})
	case FrameLeaveGroup:
		groupID, ok := c.groupOf(frame)
		if !ok {
			return
		}
		c.gateway.unsubscribe(c, groupID)
		c.reply(GroupLeft{GroupID: int64(groupID)})
	case FramePing:
		c.reply(Pong{At: time.Now().UTC()})
	default:
		c.reply(FrameError{Code: errors.ErrInvalidRequest.Code, Message: "unknown event " + frame.Event})
	}
}

func (c *client) groupOf(frame clientFrame) (domain.GroupID, bool) {
	var data groupFrame
	if err := json.Unmarshal(frame.Data, &data); err != nil || data.GroupID <= 0 {
		c.reply(FrameError{Code: errors.ErrInvalidRequest.Code, Message: "groupId is required"})
		return 0, false
	}
	return domain.GroupID(data.GroupID), true
}

func (c *client) reply(e event.DomainEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := c.sink.Consume(ctx, e); err != nil {
		c.gateway.log.Warn("Reply dropped", "connection_id", c.id, "event", e.Name(), "error", err)
	}
}

// writePump is the only goroutine writing to the socket.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case e := <-c.sink.Events():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(Envelope{Event: e.Name(), Data: e}); err != nil {
				c.gateway.log.Warn("Websocket write failed", "connection_id", c.id, "event", e.Name(), "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
