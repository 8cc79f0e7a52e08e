package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/thereayou/telega-lite/internal/database"
	"github.com/thereayou/telega-lite/internal/websocket"
)

// EventHandler маршрутизирует события канала. Канал только разносит
// уведомления: сообщения сохраняются по HTTP, клиент после сохранения
// переотправляет их в сокет для доставки остальным участникам.
type EventHandler struct {
	db  *database.Database
	hub *websocket.Hub
}

func NewEventHandler(db *database.Database, hub *websocket.Hub) *EventHandler {
	return &EventHandler{db: db, hub: hub}
}

func (h *EventHandler) HandleEvent(client *websocket.Client, event *websocket.Event) error {
	switch event.Type {
	case websocket.TypeJoinChat:
		return h.handleJoinChat(client, event)

	case websocket.TypeLeaveChat:
		if event.ChatID != nil {
			h.hub.LeaveChat(client, *event.ChatID)
		}
		return nil

	case websocket.TypeSendMessage:
		return h.relay(client, event, websocket.TypeMessageReceived)

	case websocket.TypeTyping, websocket.TypeStopTyping:
		return h.relay(client, event, event.Type)

	default:
		// Канал best-effort: незнакомые события не роняют соединение
		log.Printf("Unknown event type: %s", event.Type)
		return nil
	}
}

// handleJoinChat пускает в комнату только участников чата
func (h *EventHandler) handleJoinChat(client *websocket.Client, event *websocket.Event) error {
	if event.ChatID == nil {
		return websocket.ErrChatRequired
	}

	if _, err := h.db.GetChatForUser(event.ChatID.String(), client.UserID); err != nil {
		return err
	}

	h.hub.JoinChat(client, *event.ChatID)
	return nil
}

// relay разносит событие по комнате, исключая отправителя
func (h *EventHandler) relay(client *websocket.Client, event *websocket.Event, outType websocket.EventType) error {
	if event.ChatID == nil {
		return websocket.ErrChatRequired
	}
	if !client.IsInChat(*event.ChatID) {
		return websocket.ErrNotJoined
	}

	out := websocket.Event{
		Type:      outType,
		ChatID:    event.ChatID,
		UserID:    client.UserID,
		Data:      event.Data,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}

	h.hub.SendToChatExcept(*event.ChatID, data, client.ID)
	return nil
}
