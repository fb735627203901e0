package ws

import (
	"encoding/json"
	"time"
)

// Client frame names.
const (
	FrameJoinGroup  = "join_group"
	FrameLeaveGroup = "leave_group"
	FramePing       = "ping"
)

// Envelope is the only shape written to the socket.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type groupFrame struct {
	GroupID int64 `json:"groupId"`
}

// Replies to client frames travel through the connection sink like any
// pushed event, so the write pump stays the only writer.

type Connected struct {
	ConnectionID string `json:"connectionId"`
	UserID       int64  `json:"userId"`
}

func (Connected) Name() string { return "connected" }

type GroupJoined struct {
	GroupID int64 `json:"groupId"`
}

func (GroupJoined) Name() string { return "joined_group" }

type GroupLeft struct {
	GroupID int64 `json:"groupId"`
}

func (GroupLeft) Name() string { return "left_group" }

type Pong struct {
	At time.Time `json:"at"`
}

func (Pong) Name() string { return "pong" }

type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (FrameError) Name() string { return "error" }
