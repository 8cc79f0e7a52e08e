package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/telega-lite/internal/database"
	"github.com/thereayou/telega-lite/internal/middleware"
	ws "github.com/thereayou/telega-lite/internal/websocket"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub          *ws.Hub
	db           *database.Database
	eventHandler *EventHandler
	upgrader     websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, db *database.Database, eventHandler *EventHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		db:           db,
		eventHandler: eventHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket апгрейдит соединение; аутентификация уже прошла
// в WSAuthMiddleware, без валидного токена сюда не попасть
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, userID.(uuid.UUID))

	h.hub.Register(client)

	go client.WritePump()
	go h.readLoop(client)
}

func (h *WebSocketHandler) readLoop(client *ws.Client) {
	client.ReadPump(h.eventHandler)
	// Соединение закрыто — освежаем last_seen
	h.db.UpdateLastSeen(client.UserID.String())
}
