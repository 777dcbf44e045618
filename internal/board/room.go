package board

import (
	"strings"
	"sync"
	"time"

	"github.com/boardlyhq/boardly/backend/internal/auth"
)

// Room is the authoritative aggregate for one drawing session: participants,
// the latest canvas snapshot, undo/redo history and the chat log. Every
// structural mutation runs under one mutex, so no two commands against the
// same room ever interleave; distinct rooms share no state.
type Room struct {
	id        string
	policy    Policy
	createdAt time.Time

	mu           sync.Mutex
	order        []string
	participants map[string]*participant
	snapshot     string
	history      *History
	chat         *ChatLog

	typingIdle time.Duration
	clock      func() time.Time
}

type roomConfig struct {
	historyDepth int
	chatLogLimit int
	typingIdle   time.Duration
	clock        func() time.Time
}

func newRoom(roomID string, policy Policy, cfg roomConfig) *Room {
	clock := cfg.clock
	if clock == nil {
		clock = time.Now
	}
	return &Room{
		id:           roomID,
		policy:       policy,
		createdAt:    clock(),
		participants: make(map[string]*participant),
		history:      NewHistory(cfg.historyDepth),
		chat:         NewChatLog(cfg.chatLogLimit),
		typingIdle:   cfg.typingIdle,
		clock:        clock,
	}
}

// ID returns the opaque room identifier.
func (r *Room) ID() string { return r.id }

// Name returns the display name fixed at creation.
func (r *Room) Name() string { return r.policy.Name }

// IsPrivate reports whether joins must present the room password.
func (r *Room) IsPrivate() bool { return r.policy.IsPrivate }

// JoinRequest carries everything needed to admit one connection to the room.
type JoinRequest struct {
	ConnectionID string
	Username     string
	Password     string
	Sender       Sender
}

// Join authorizes the connection against the room policy, registers the
// participant and broadcasts the refreshed user list to every participant,
// the joiner included. The returned Details go back to the joiner only.
// Room state is untouched when authorization fails, so the caller may retry.
func (r *Room) Join(request JoinRequest) (Details, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy.IsPrivate {
		if request.Password == "" {
			return Details{}, ErrPasswordRequired
		}
		if err := auth.VerifyPassword(r.policy.PasswordHash, request.Password); err != nil {
			return Details{}, ErrIncorrectPassword
		}
	}
	if _, exists := r.participants[request.ConnectionID]; exists {
		return Details{}, ErrAlreadyJoined
	}

	r.participants[request.ConnectionID] = &participant{
		connectionID: request.ConnectionID,
		username:     request.Username,
		joinedAt:     r.clock(),
		sender:       request.Sender,
	}
	r.order = append(r.order, request.ConnectionID)

	r.broadcastLocked("", Event{Name: EventUserList, Data: r.usersLocked()})

	return Details{
		RoomID:    r.id,
		Name:      r.policy.Name,
		IsPrivate: r.policy.IsPrivate,
		Users:     r.usersLocked(),
		Messages:  r.chat.Messages(),
	}, nil
}

// Leave removes the connection, cancels any pending typing state and
// broadcasts the shrunken user list to the remainder. It reports how many
// participants remain so the registry can schedule teardown.
func (r *Room) Leave(connectionID string) (remaining int, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.participants[connectionID]
	if !ok {
		return len(r.participants), false
	}
	if member.typingTimer != nil {
		member.typingTimer.Stop()
	}
	wasTyping := member.isTyping
	username := member.username

	delete(r.participants, connectionID)
	for index, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:index], r.order[index+1:]...)
			break
		}
	}

	if wasTyping {
		r.broadcastLocked(connectionID, Event{Name: EventUserStopTyping, Data: UserInfo{Username: username}})
	}
	r.broadcastLocked("", Event{Name: EventUserList, Data: r.usersLocked()})
	return len(r.participants), true
}

// RelayStroke forwards an in-progress stroke segment verbatim to every other
// participant. Segments are transient and never touch room state.
func (r *Room) RelayStroke(senderID string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(senderID, Event{Name: EventStroke, Data: payload})
}

// CommitStroke durably applies a finished stroke: the superseded snapshot
// becomes undoable, the redo branch is discarded and the new snapshot becomes
// authoritative. The completed stroke is relayed to every other participant.
// Concurrent commits resolve by arrival order under the room lock; the later
// snapshot silently supersedes the earlier one.
func (r *Room) CommitStroke(senderID string, canvasData string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history.RecordEdit(r.snapshot)
	r.snapshot = canvasData
	r.broadcastLocked(senderID, Event{Name: EventDraw, Data: payload})
}

// CanvasData is the payload carried by canvas-data events.
type CanvasData struct {
	CanvasData string `json:"canvasData"`
}

// Undo restores the most recent undoable snapshot and broadcasts it to every
// participant, the requester included. An empty undo stack is a silent no-op.
func (r *Room) Undo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	restored, ok := r.history.Undo(r.snapshot)
	if !ok {
		return false
	}
	r.snapshot = restored
	r.broadcastLocked("", Event{Name: EventCanvasData, Data: CanvasData{CanvasData: restored}})
	return true
}

// Redo is the mirror of Undo over the redo stack.
func (r *Room) Redo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	restored, ok := r.history.Redo(r.snapshot)
	if !ok {
		return false
	}
	r.snapshot = restored
	r.broadcastLocked("", Event{Name: EventCanvasData, Data: CanvasData{CanvasData: restored}})
	return true
}

// Clear parks the current snapshot on the undo stack, resets the canvas to
// the empty baseline, discards the redo branch and tells every participant to
// wipe their local canvas.
func (r *Room) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history.RecordEdit(r.snapshot)
	r.snapshot = ""
	r.broadcastLocked("", Event{Name: EventClearCanvas, Data: nil})
}

// Snapshot returns the current authoritative canvas, empty when nothing has
// been committed yet. Late joiners reconcile from this single value instead
// of replaying stroke history.
func (r *Room) Snapshot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// AppendMessage stamps the message with server time, retains it in the
// bounded log and broadcasts it to every participant including the sender,
// making the displayed order and timestamp server-authoritative.
func (r *Room) AppendMessage(username, text string) (ChatMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ChatMessage{}, ErrEmptyMessage
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	message := ChatMessage{
		Username:  username,
		Message:   trimmed,
		Timestamp: r.clock().UTC(),
	}
	r.chat.Append(message)
	r.broadcastLocked("", Event{Name: EventReceiveMessage, Data: message})
	return message, nil
}

// SetTyping relays a typing signal to the other participants and re-arms the
// participant's idle timer. The timer is the only server-side state; when it
// fires without another keystroke the stop signal is emitted on the
// participant's behalf.
func (r *Room) SetTyping(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.participants[connectionID]
	if !ok {
		return
	}
	member.isTyping = true
	if member.typingTimer != nil {
		member.typingTimer.Stop()
	}
	if r.typingIdle > 0 {
		member.typingTimer = time.AfterFunc(r.typingIdle, func() {
			r.expireTyping(connectionID)
		})
	}
	r.broadcastLocked(connectionID, Event{Name: EventUserTyping, Data: UserInfo{Username: member.username}})
}

// StopTyping cancels the typing state and relays the stop signal to the other
// participants. Calling it for a participant who is not typing is a no-op.
func (r *Room) StopTyping(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTypingLocked(connectionID)
}

func (r *Room) expireTyping(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTypingLocked(connectionID)
}

func (r *Room) stopTypingLocked(connectionID string) {
	member, ok := r.participants[connectionID]
	if !ok || !member.isTyping {
		return
	}
	member.isTyping = false
	if member.typingTimer != nil {
		member.typingTimer.Stop()
		member.typingTimer = nil
	}
	r.broadcastLocked(connectionID, Event{Name: EventUserStopTyping, Data: UserInfo{Username: member.username}})
}

// Users returns the connected participants in insertion order.
func (r *Room) Users() []UserInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usersLocked()
}

// ParticipantCount reports the number of connected participants.
func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

func (r *Room) usersLocked() []UserInfo {
	users := make([]UserInfo, 0, len(r.order))
	for _, connectionID := range r.order {
		if member, ok := r.participants[connectionID]; ok {
			users = append(users, UserInfo{Username: member.username})
		}
	}
	return users
}

// broadcastLocked fans the event out to every participant except the one
// identified by exceptID; pass the empty string to reach everyone. Senders
// must not block, so fanning out under the room lock is safe.
func (r *Room) broadcastLocked(exceptID string, event Event) {
	for _, connectionID := range r.order {
		if connectionID == exceptID {
			continue
		}
		member, ok := r.participants[connectionID]
		if !ok || member.sender == nil {
			continue
		}
		member.sender.Deliver(event)
	}
}
