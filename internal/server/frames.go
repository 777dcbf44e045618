package server

import (
	"encoding/json"

	"github.com/boardlyhq/boardly/backend/internal/board"
)

// Inbound event names accepted by the gateway dispatch table.
const (
	commandJoinRoom      = "join-room"
	commandLeaveRoom     = "leave-room"
	commandStroke        = "stroke"
	commandDraw          = "draw"
	commandClearCanvas   = "clear-canvas"
	commandUndo          = "undo"
	commandRedo          = "redo"
	commandRequestCanvas = "request-canvas"
	commandTyping        = "typing"
	commandStopTyping    = "stop-typing"
	commandSendMessage   = "send-message"
)

// Client-facing error strings; the frontend matches on these literals to
// decide whether to re-prompt for a password.
const (
	messagePasswordRequired  = "Password required"
	messageIncorrectPassword = "Incorrect password"
	messageJoinFieldsMissing = "Room ID and username are required"
	messageAlreadyJoined     = "Already joined this room"
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRoomPayload struct {
	RoomID    string `json:"roomId"`
	Username  string `json:"username"`
	IsPrivate bool   `json:"isPrivate"`
	Password  string `json:"password"`
}

// roomScopedPayload extracts the routing fields shared by every mid-session
// command; the rest of the payload is relayed verbatim.
type roomScopedPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type drawPayload struct {
	RoomID     string `json:"roomId"`
	Type       string `json:"type"`
	CanvasData string `json:"canvasData"`
}

type sendMessagePayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type joinErrorPayload struct {
	Message string `json:"message"`
}

type roomJoinedPayload struct {
	Room     roomSummary         `json:"room"`
	Users    []board.UserInfo    `json:"users"`
	Messages []board.ChatMessage `json:"messages"`
}

type roomSummary struct {
	RoomID    string `json:"roomId"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	Username  string `json:"username"`
}
