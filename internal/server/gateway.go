package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/boardlyhq/boardly/backend/internal/auth"
	"github.com/boardlyhq/boardly/backend/internal/board"
)

var errMissingRegistry = errors.New("server: room registry dependency required")
var errMissingStore = errors.New("server: room store dependency required")

// GatewayConfig describes the dependencies for the session gateway.
type GatewayConfig struct {
	Registry    *board.Registry
	Store       *board.Store
	IDProvider  board.IDProvider
	Logger      *zap.Logger
	CheckOrigin func(r *http.Request) bool
}

// Gateway is the per-connection entry point: it upgrades the websocket,
// validates and routes each inbound frame to exactly one room operation, and
// treats a transport disconnect identically to an explicit leave. No state
// survives a connection beyond the room it joined.
type Gateway struct {
	registry *board.Registry
	store    *board.Store
	ids      board.IDProvider
	logger   *zap.Logger
	upgrader websocket.Upgrader

	dispatch map[string]func(*session, json.RawMessage)
}

// session tracks what the read loop knows about one connection. It is only
// touched from that connection's read goroutine.
type session struct {
	client       *Client
	connectionID string
	roomID       string
	username     string
}

// NewGateway constructs the gateway and its command dispatch table.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Registry == nil {
		return nil, errMissingRegistry
	}
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = board.NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	gateway := &Gateway{
		registry: cfg.Registry,
		store:    cfg.Store,
		ids:      ids,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
	gateway.dispatch = map[string]func(*session, json.RawMessage){
		commandJoinRoom:      gateway.handleJoinRoom,
		commandLeaveRoom:     gateway.handleLeaveRoom,
		commandStroke:        gateway.handleStroke,
		commandDraw:          gateway.handleDraw,
		commandClearCanvas:   gateway.handleClearCanvas,
		commandUndo:          gateway.handleUndo,
		commandRedo:          gateway.handleRedo,
		commandRequestCanvas: gateway.handleRequestCanvas,
		commandTyping:        gateway.handleTyping,
		commandStopTyping:    gateway.handleStopTyping,
		commandSendMessage:   gateway.handleSendMessage,
	}
	return gateway, nil
}

// ServeHTTP upgrades the connection and runs its read loop to completion.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connectionID, err := g.ids.NewID()
	if err != nil {
		g.logger.Error("connection id generation failed", zap.Error(err))
		_ = conn.Close()
		return
	}

	client := NewClient(conn)
	go client.WritePump()

	sess := &session{client: client, connectionID: connectionID}
	defer func() {
		g.leaveCurrentRoom(sess)
		client.Close()
	}()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		g.handleFrame(sess, frame)
	}
}

// handleFrame routes one inbound frame through the dispatch table. Unknown
// events are dropped; a mid-session event for a room that no longer exists is
// absorbed as a silent no-op because it can legitimately race a teardown.
func (g *Gateway) handleFrame(sess *session, frame inboundFrame) {
	handler, ok := g.dispatch[frame.Event]
	if !ok {
		g.logger.Debug("unknown event dropped", zap.String("event", frame.Event))
		return
	}
	handler(sess, frame.Data)
}

func (g *Gateway) handleJoinRoom(sess *session, data json.RawMessage) {
	var payload joinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		sess.client.Deliver(board.Event{Name: board.EventJoinError, Data: joinErrorPayload{Message: messageJoinFieldsMissing}})
		return
	}
	payload.RoomID = strings.TrimSpace(payload.RoomID)
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.RoomID == "" || payload.Username == "" {
		sess.client.Deliver(board.Event{Name: board.EventJoinError, Data: joinErrorPayload{Message: messageJoinFieldsMissing}})
		return
	}

	// A connection participates in at most one room; joining another implies
	// leaving the current one.
	if sess.roomID != "" && sess.roomID != payload.RoomID {
		g.leaveCurrentRoom(sess)
	}

	room, err := g.resolveRoom(payload)
	if err != nil {
		if !errors.Is(err, board.ErrPasswordRequired) {
			g.logger.Error("room resolution failed", zap.String("room_id", payload.RoomID), zap.Error(err))
		}
		sess.client.Deliver(board.Event{Name: board.EventJoinError, Data: joinErrorPayload{Message: joinErrorMessage(err)}})
		return
	}

	details, err := room.Join(board.JoinRequest{
		ConnectionID: sess.connectionID,
		Username:     payload.Username,
		Password:     payload.Password,
		Sender:       sess.client,
	})
	if err != nil {
		g.registry.Release(room.ID())
		sess.client.Deliver(board.Event{Name: board.EventJoinError, Data: joinErrorPayload{Message: joinErrorMessage(err)}})
		return
	}

	sess.roomID = room.ID()
	sess.username = payload.Username
	g.logger.Info("participant joined",
		zap.String("room_id", room.ID()),
		zap.String("connection_id", sess.connectionID),
		zap.String("username", payload.Username))

	sess.client.Deliver(board.Event{Name: board.EventRoomJoined, Data: roomJoinedPayload{
		Room: roomSummary{
			RoomID:    details.RoomID,
			Name:      details.Name,
			IsPrivate: details.IsPrivate,
			Username:  payload.Username,
		},
		Users:    details.Users,
		Messages: details.Messages,
	}})
}

// resolveRoom locates the active room for a join, falling back to the stored
// registration, and finally creating the room with the policy supplied by
// the join itself. An ad-hoc room is registered durably as well so its
// policy survives the grace-period teardown.
func (g *Gateway) resolveRoom(payload joinRoomPayload) (*board.Room, error) {
	if room, ok := g.registry.Get(payload.RoomID); ok {
		return room, nil
	}

	record, err := g.store.Find(payload.RoomID)
	if err == nil {
		return g.registry.GetOrCreate(payload.RoomID, record.Policy()), nil
	}
	if !errors.Is(err, board.ErrRoomNotFound) {
		return nil, err
	}

	// Refuse an unusable private policy before anything is created; a record
	// with an empty hash would make the room id permanently unjoinable.
	if payload.IsPrivate && payload.Password == "" {
		return nil, board.ErrPasswordRequired
	}

	policy := board.Policy{Name: payload.RoomID, IsPrivate: payload.IsPrivate}
	if payload.IsPrivate {
		hash, hashErr := auth.HashPassword(payload.Password)
		if hashErr != nil {
			return nil, hashErr
		}
		policy.PasswordHash = hash
	}

	if _, createErr := g.store.Create(board.RoomRecord{
		RoomID:       payload.RoomID,
		Name:         policy.Name,
		IsPrivate:    policy.IsPrivate,
		PasswordHash: policy.PasswordHash,
	}); createErr != nil && !errors.Is(createErr, board.ErrRoomExists) {
		return nil, createErr
	}

	return g.registry.GetOrCreate(payload.RoomID, policy), nil
}

func (g *Gateway) handleLeaveRoom(sess *session, data json.RawMessage) {
	g.leaveCurrentRoom(sess)
	sess.client.Deliver(board.Event{Name: board.EventLeaveAck, Data: nil})
}

func (g *Gateway) leaveCurrentRoom(sess *session) {
	if sess.roomID == "" {
		return
	}
	roomID := sess.roomID
	sess.roomID = ""
	room, ok := g.registry.Get(roomID)
	if !ok {
		return
	}
	if remaining, existed := room.Leave(sess.connectionID); existed {
		g.logger.Info("participant left",
			zap.String("room_id", roomID),
			zap.String("connection_id", sess.connectionID),
			zap.Int("remaining", remaining))
	}
	g.registry.Release(roomID)
}

func (g *Gateway) handleStroke(sess *session, data json.RawMessage) {
	room, ok := g.roomFor(sess, data)
	if !ok {
		return
	}
	room.RelayStroke(sess.connectionID, json.RawMessage(data))
}

func (g *Gateway) handleDraw(sess *session, data json.RawMessage) {
	var payload drawPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	room, ok := g.roomForID(sess, payload.RoomID)
	if !ok {
		return
	}
	if payload.Type == "end" {
		room.CommitStroke(sess.connectionID, payload.CanvasData, json.RawMessage(data))
		return
	}
	room.RelayStroke(sess.connectionID, json.RawMessage(data))
}

func (g *Gateway) handleClearCanvas(sess *session, data json.RawMessage) {
	if room, ok := g.roomFor(sess, data); ok {
		room.Clear()
	}
}

func (g *Gateway) handleUndo(sess *session, data json.RawMessage) {
	if room, ok := g.roomFor(sess, data); ok {
		room.Undo()
	}
}

func (g *Gateway) handleRedo(sess *session, data json.RawMessage) {
	if room, ok := g.roomFor(sess, data); ok {
		room.Redo()
	}
}

func (g *Gateway) handleRequestCanvas(sess *session, data json.RawMessage) {
	room, ok := g.roomFor(sess, data)
	if !ok {
		// Reply with an explicit empty canvas so a joiner of a fresh room
		// still initializes.
		sess.client.Deliver(board.Event{Name: board.EventCanvasData, Data: board.CanvasData{}})
		return
	}
	sess.client.Deliver(board.Event{Name: board.EventCanvasData, Data: board.CanvasData{CanvasData: room.Snapshot()}})
}

func (g *Gateway) handleTyping(sess *session, data json.RawMessage) {
	if room, ok := g.roomFor(sess, data); ok {
		room.SetTyping(sess.connectionID)
	}
}

func (g *Gateway) handleStopTyping(sess *session, data json.RawMessage) {
	if room, ok := g.roomFor(sess, data); ok {
		room.StopTyping(sess.connectionID)
	}
}

func (g *Gateway) handleSendMessage(sess *session, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	room, ok := g.roomForID(sess, payload.RoomID)
	if !ok {
		return
	}
	username := strings.TrimSpace(payload.Username)
	if username == "" {
		username = sess.username
	}
	if _, err := room.AppendMessage(username, payload.Message); err != nil {
		g.logger.Debug("chat message rejected", zap.String("room_id", room.ID()), zap.Error(err))
	}
}

// roomFor routes a room-scoped command to the room this session joined. A
// miss is a silent no-op.
func (g *Gateway) roomFor(sess *session, data json.RawMessage) (*board.Room, bool) {
	var scoped roomScopedPayload
	_ = json.Unmarshal(data, &scoped)
	return g.roomForID(sess, scoped.RoomID)
}

// roomForID ignores payloads naming a room other than the one this session
// joined, so a connection can never act on a room it did not authenticate to.
func (g *Gateway) roomForID(sess *session, roomID string) (*board.Room, bool) {
	if sess.roomID == "" {
		return nil, false
	}
	if roomID != "" && roomID != sess.roomID {
		return nil, false
	}
	room, ok := g.registry.Get(sess.roomID)
	return room, ok
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, board.ErrPasswordRequired):
		return messagePasswordRequired
	case errors.Is(err, board.ErrIncorrectPassword):
		return messageIncorrectPassword
	case errors.Is(err, board.ErrAlreadyJoined):
		return messageAlreadyJoined
	default:
		return "Failed to join room"
	}
}
