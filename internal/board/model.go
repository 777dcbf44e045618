package board

import (
	"errors"
	"time"
)

// ErrRoomIDRequired indicates a join or command arrived without a room id.
var ErrRoomIDRequired = errors.New("board: room id required")

// ErrUsernameRequired indicates a join arrived without a username.
var ErrUsernameRequired = errors.New("board: username required")

// ErrPasswordRequired indicates a private room was joined without a password.
var ErrPasswordRequired = errors.New("board: password required")

// ErrIncorrectPassword indicates the supplied room password did not match.
var ErrIncorrectPassword = errors.New("board: incorrect password")

// ErrRoomNotFound indicates no active room or stored record exists for an id.
var ErrRoomNotFound = errors.New("board: room not found")

// ErrRoomExists indicates a room record with the same id is already stored.
var ErrRoomExists = errors.New("board: room already exists")

// ErrEmptyMessage indicates a chat message was blank after trimming.
var ErrEmptyMessage = errors.New("board: empty message")

// ErrAlreadyJoined indicates the connection id is already present in the room.
var ErrAlreadyJoined = errors.New("board: connection already joined")

// Policy fixes a room's identity and access rules at creation time.
type Policy struct {
	Name         string
	IsPrivate    bool
	PasswordHash string
}

// UserInfo is the wire representation of one connected participant.
type UserInfo struct {
	Username string `json:"username"`
}

// ChatMessage is a server-stamped chat entry retained in the bounded room log.
type ChatMessage struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Details is the room-joined payload returned to the joining connection only.
type Details struct {
	RoomID    string
	Name      string
	IsPrivate bool
	Users     []UserInfo
	Messages  []ChatMessage
}

type participant struct {
	connectionID string
	username     string
	joinedAt     time.Time
	isTyping     bool
	typingTimer  *time.Timer
	sender       Sender
}
