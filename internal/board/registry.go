package board

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultGracePeriod keeps an empty room alive briefly so a refresh or
// reconnect does not lose canvas and undo history.
const DefaultGracePeriod = 30 * time.Second

// DefaultTypingIdleTimeout bounds how long a typing indicator survives
// without a fresh keystroke event.
const DefaultTypingIdleTimeout = 3 * time.Second

// RegistryConfig describes the knobs shared by every room the registry owns.
type RegistryConfig struct {
	HistoryDepth      int
	ChatLogLimit      int
	GracePeriod       time.Duration
	TypingIdleTimeout time.Duration
	Clock             func() time.Time
	Logger            *zap.Logger
}

// Registry owns the table of active rooms. Access to the table itself is
// guarded by one read-write mutex, while mutations against any single room
// are serialized by that room's own lock, so rooms never contend with each
// other.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	removals map[string]*time.Timer

	historyDepth int
	chatLogLimit int
	gracePeriod  time.Duration
	typingIdle   time.Duration
	clock        func() time.Time
	logger       *zap.Logger
}

// NewRegistry constructs an empty registry, applying defaults for any zero
// configuration value.
func NewRegistry(cfg RegistryConfig) *Registry {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// Zero means default; negative disables the grace period or typing timer.
	gracePeriod := cfg.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = DefaultGracePeriod
	} else if gracePeriod < 0 {
		gracePeriod = 0
	}
	typingIdle := cfg.TypingIdleTimeout
	if typingIdle == 0 {
		typingIdle = DefaultTypingIdleTimeout
	} else if typingIdle < 0 {
		typingIdle = 0
	}
	return &Registry{
		rooms:        make(map[string]*Room),
		removals:     make(map[string]*time.Timer),
		historyDepth: cfg.HistoryDepth,
		chatLogLimit: cfg.ChatLogLimit,
		gracePeriod:  gracePeriod,
		typingIdle:   typingIdle,
		clock:        clock,
		logger:       logger,
	}
}

// GetOrCreate returns the active room for the id, creating it with the given
// policy when absent. A pending grace-period removal is cancelled, so a
// rejoin within the window lands in the original room with its history
// intact.
func (g *Registry) GetOrCreate(roomID string, policy Policy) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if timer, pending := g.removals[roomID]; pending {
		timer.Stop()
		delete(g.removals, roomID)
	}
	if room, ok := g.rooms[roomID]; ok {
		return room
	}

	room := newRoom(roomID, policy, roomConfig{
		historyDepth: g.historyDepth,
		chatLogLimit: g.chatLogLimit,
		typingIdle:   g.typingIdle,
		clock:        g.clock,
	})
	g.rooms[roomID] = room
	g.logger.Info("room created",
		zap.String("room_id", roomID),
		zap.Bool("private", policy.IsPrivate))
	return room
}

// Get returns the active room for the id, if any.
func (g *Registry) Get(roomID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[roomID]
	return room, ok
}

// Remove drops the room immediately, cancelling any pending removal.
func (g *Registry) Remove(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(roomID)
}

// Release signals that the room may have just become empty. An empty room is
// torn down after the grace period unless a participant joins in the
// meantime; a non-empty room is left untouched.
func (g *Registry) Release(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[roomID]
	if !ok || room.ParticipantCount() > 0 {
		return
	}
	if g.gracePeriod == 0 {
		g.removeLocked(roomID)
		return
	}
	if _, pending := g.removals[roomID]; pending {
		return
	}
	g.removals[roomID] = time.AfterFunc(g.gracePeriod, func() {
		g.expireRoom(roomID)
	})
}

// Len reports the number of active rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func (g *Registry) expireRoom(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.removals, roomID)
	room, ok := g.rooms[roomID]
	if !ok || room.ParticipantCount() > 0 {
		return
	}
	g.removeLocked(roomID)
}

func (g *Registry) removeLocked(roomID string) {
	if timer, pending := g.removals[roomID]; pending {
		timer.Stop()
		delete(g.removals, roomID)
	}
	if _, ok := g.rooms[roomID]; !ok {
		return
	}
	delete(g.rooms, roomID)
	g.logger.Info("room removed", zap.String("room_id", roomID))
}
