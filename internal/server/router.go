package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/boardlyhq/boardly/backend/internal/auth"
	"github.com/boardlyhq/boardly/backend/internal/board"
)

const roomIDAttempts = 5

// Dependencies wires the HTTP surface to the collaboration core.
type Dependencies struct {
	Registry *board.Registry
	Store    *board.Store
	Logger   *zap.Logger
}

// NewHTTPHandler assembles the gin router: the room pre-registration REST
// endpoints, the health probe and the websocket session gateway.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Registry == nil {
		return nil, errMissingRegistry
	}
	if deps.Store == nil {
		return nil, errMissingStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gateway, err := NewGateway(GatewayConfig{
		Registry: deps.Registry,
		Store:    deps.Store,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		registry: deps.Registry,
		store:    deps.Store,
		logger:   logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.POST("/api/rooms", handler.handleCreateRoom)
	router.GET("/api/rooms/:roomId", handler.handleRoomInfo)
	router.GET("/ws", gin.WrapH(gateway))

	return router, nil
}

type httpHandler struct {
	registry *board.Registry
	store    *board.Store
	logger   *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createRoomPayload struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	Password  string `json:"password"`
}

type roomResponsePayload struct {
	RoomID       string `json:"roomId"`
	Name         string `json:"name"`
	IsPrivate    bool   `json:"isPrivate"`
	Participants int    `json:"participants"`
}

// handleCreateRoom pre-registers a room's identity and access policy before
// anyone joins. The password is bcrypt-hashed; the plaintext is discarded.
func (h *httpHandler) handleCreateRoom(c *gin.Context) {
	var request createRoomPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	request.Name = strings.TrimSpace(request.Name)
	if request.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Room name is required"})
		return
	}
	if request.IsPrivate && strings.TrimSpace(request.Password) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password is required for private rooms"})
		return
	}

	passwordHash := ""
	if request.IsPrivate {
		hash, err := auth.HashPassword(request.Password)
		if err != nil {
			h.logger.Error("password hashing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create room"})
			return
		}
		passwordHash = hash
	}

	record, err := h.createWithFreshID(board.RoomRecord{
		Name:         request.Name,
		IsPrivate:    request.IsPrivate,
		PasswordHash: passwordHash,
	})
	if err != nil {
		h.logger.Error("room registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create room"})
		return
	}

	h.logger.Info("room registered",
		zap.String("room_id", record.RoomID),
		zap.Bool("private", record.IsPrivate))
	c.JSON(http.StatusCreated, roomResponsePayload{
		RoomID:    record.RoomID,
		Name:      record.Name,
		IsPrivate: record.IsPrivate,
	})
}

// createWithFreshID retries id generation on the rare short-code collision.
func (h *httpHandler) createWithFreshID(record board.RoomRecord) (board.RoomRecord, error) {
	var lastErr error
	for attempt := 0; attempt < roomIDAttempts; attempt++ {
		record.RoomID = board.NewRoomID()
		created, err := h.store.Create(record)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, board.ErrRoomExists) {
			return board.RoomRecord{}, err
		}
		lastErr = err
	}
	return board.RoomRecord{}, lastErr
}

// handleRoomInfo reports a room's name, privacy flag and live participant
// count so a client can decide whether to prompt for a password. The stored
// hash is never exposed.
func (h *httpHandler) handleRoomInfo(c *gin.Context) {
	roomID := c.Param("roomId")

	if room, ok := h.registry.Get(roomID); ok {
		c.JSON(http.StatusOK, roomResponsePayload{
			RoomID:       room.ID(),
			Name:         room.Name(),
			IsPrivate:    room.IsPrivate(),
			Participants: room.ParticipantCount(),
		})
		return
	}

	record, err := h.store.Find(roomID)
	if errors.Is(err, board.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
		return
	}
	if err != nil {
		h.logger.Error("room lookup failed", zap.String("room_id", roomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to look up room"})
		return
	}
	c.JSON(http.StatusOK, roomResponsePayload{
		RoomID:    record.RoomID,
		Name:      record.Name,
		IsPrivate: record.IsPrivate,
	})
}
