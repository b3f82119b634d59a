package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"echolink/internal/redis"
	"echolink/internal/repository"
	"echolink/internal/services"
	"echolink/internal/signaling"
	"echolink/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	registry *signaling.ConnectionRegistry
	router   *signaling.Router
	auth     *services.AuthService
	presence *redis.PresenceStore
	users    repository.UserRepository
	metrics  *metrics.Metrics
	logger   WebSocketLogger
}

func NewWebSocketHandler(
	registry *signaling.ConnectionRegistry,
	router *signaling.Router,
	auth *services.AuthService,
	presence *redis.PresenceStore,
	users repository.UserRepository,
	m *metrics.Metrics,
	logger WebSocketLogger,
) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		router:   router,
		auth:     auth,
		presence: presence,
		users:    users,
		metrics:  m,
		logger:   logger,
	}
}

// Handle upgrades the request and runs the connection until the peer goes
// away. Browsers cannot set headers on websocket dials, so the token is
// accepted from the query string as well as the Authorization header.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
	}

	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", userID, err)
		return
	}

	client := NewClient(conn, userID, h.router, h.logger)
	client.heartbeat = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.presence.Heartbeat(ctx, userID.String()); err != nil {
			h.logger.Error("presence heartbeat failed", userID, err)
		}
		h.touchLastSeen(userID)
	}
	h.registry.Register(userID, client)
	h.metrics.ConnectionOpened()
	h.markOnline(userID)
	h.logger.Info("websocket connected", userID)

	go client.writePump()
	client.readPump()

	if ownsDisconnect(h.registry, userID, client) {
		h.router.HandleDisconnect(userID)
		h.markOffline(userID)
	}
	h.metrics.ConnectionClosed()
	h.logger.Info("websocket disconnected", userID)
}

// ownsDisconnect reports whether this connection's exit should tear down the
// user's presence. An absent registry entry means this connection was already
// evicted after a failed send and its cleanup never ran, so the exit still
// owns it. An entry pointing at a different connection means a newer one
// replaced this socket and the user is still live.
func ownsDisconnect(registry *signaling.ConnectionRegistry, userID uuid.UUID, conn signaling.Connection) bool {
	current, ok := registry.Get(userID)
	return !ok || current == conn
}

func (h *WebSocketHandler) markOnline(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.presence.SetOnline(ctx, userID.String()); err != nil {
		h.logger.Error("presence set online failed", userID, err)
	}
	if err := h.users.UpdateOnlineStatus(ctx, userID, true); err != nil {
		h.logger.Error("online status update failed", userID, err)
	}
}

func (h *WebSocketHandler) markOffline(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.presence.SetOffline(ctx, userID.String()); err != nil {
		h.logger.Error("presence set offline failed", userID, err)
	}
	if err := h.users.UpdateOnlineStatus(ctx, userID, false); err != nil {
		h.logger.Error("online status update failed", userID, err)
	}
	h.touchLastSeen(userID)
}

// touchLastSeen stamps the user's last activity, from the pong heartbeat while
// connected and once more at disconnect.
func (h *WebSocketHandler) touchLastSeen(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.users.UpdateLastSeen(ctx, userID, time.Now()); err != nil {
		h.logger.Error("last seen update failed", userID, err)
	}
}
