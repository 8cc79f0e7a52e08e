package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType определяет типы событий канала
type EventType string

const (
	// Системные типы
	TypePing EventType = "ping"
	TypePong EventType = "pong"

	// Клиент -> сервер
	TypeJoinChat    EventType = "join-chat"
	TypeLeaveChat   EventType = "leave-chat"
	TypeSendMessage EventType = "send-message"
	TypeTyping      EventType = "typing"
	TypeStopTyping  EventType = "stop-typing"

	// Сервер -> клиент
	TypeMessageReceived EventType = "message-received"
	TypeUserStatus      EventType = "user-status-changed"
	TypeChatUsers       EventType = "chat-users"
	TypeError           EventType = "error"
)

type Event struct {
	Type      EventType       `json:"type"`
	ChatID    *uuid.UUID      `json:"chat_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// UserStatus — полезная нагрузка события user-status-changed
type UserStatus struct {
	UserID   uuid.UUID `json:"user_id"`
	IsOnline bool      `json:"is_online"`
}

// Hub владеет таблицей присутствия и комнатами чатов. Все мутации идут
// через один цикл Run либо под mu, читатели — только под RLock.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Присутствие: соединения по UserID (у пользователя их может быть несколько)
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Клиенты, вошедшие в комнаты чатов
	chats map[uuid.UUID]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		chats:       make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run запускает цикл обработки подключений
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
	h.chats = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	first := false
	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
		first = true
	}
	h.userClients[client.UserID][client.ID] = client

	log.Printf("Client registered: %s (User: %s)", client.ID, client.UserID)

	// Статус меняется только на первом соединении пользователя
	if first {
		h.notifyUserStatus(client.UserID, true)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for chatID := range client.Chats {
		h.removeFromChatUnsafe(client, chatID)
	}

	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
			// Последнее соединение закрыто — пользователь оффлайн
			h.notifyUserStatus(client.UserID, false)
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)

	log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
}

// JoinChat добавляет клиента в комнату чата
func (h *Hub) JoinChat(client *Client, chatID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.chats[chatID]; !ok {
		h.chats[chatID] = make(map[uuid.UUID]*Client)
	}

	h.chats[chatID][client.ID] = client
	client.mu.Lock()
	client.Chats[chatID] = true
	client.mu.Unlock()

	h.sendChatUsers(client, chatID)
}

// LeaveChat удаляет клиента из комнаты чата
func (h *Hub) LeaveChat(client *Client, chatID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromChatUnsafe(client, chatID)
}

func (h *Hub) removeFromChatUnsafe(client *Client, chatID uuid.UUID) {
	chat, ok := h.chats[chatID]
	if !ok {
		return
	}
	if _, ok := chat[client.ID]; !ok {
		return
	}

	delete(chat, client.ID)
	client.mu.Lock()
	delete(client.Chats, chatID)
	client.mu.Unlock()

	if len(chat) == 0 {
		delete(h.chats, chatID)
	}
}

// SendToChat отправляет событие всем в комнате чата
func (h *Hub) SendToChat(chatID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.sendToChatUnsafe(chatID, data, uuid.Nil)
}

// SendToChatExcept отправляет событие всем в комнате, кроме одного клиента
func (h *Hub) SendToChatExcept(chatID uuid.UUID, data []byte, excludeID uuid.UUID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.sendToChatUnsafe(chatID, data, excludeID)
}

func (h *Hub) sendToChatUnsafe(chatID uuid.UUID, data []byte, excludeID uuid.UUID) {
	if chat, ok := h.chats[chatID]; ok {
		for _, client := range chat {
			if client.ID == excludeID {
				continue
			}
			select {
			case client.Send <- data:
			default:
				log.Printf("Client %s send channel full", client.ID)
			}
		}
	}
}

// SendToUser отправляет событие на все соединения пользователя
func (h *Hub) SendToUser(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.userClients[userID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				log.Printf("Client %s send channel full", client.ID)
			}
		}
	}
}

// notifyUserStatus рассылает смену статуса всем, кроме соединений самого
// пользователя. Вызывается только под mu.
func (h *Hub) notifyUserStatus(userID uuid.UUID, online bool) {
	payload, err := json.Marshal(UserStatus{UserID: userID, IsOnline: online})
	if err != nil {
		return
	}

	event := Event{
		Type:      TypeUserStatus,
		UserID:    userID,
		Data:      payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	for _, client := range h.clients {
		if client.UserID == userID {
			continue
		}
		select {
		case client.Send <- data:
		default:
		}
	}
}

func (h *Hub) sendChatUsers(client *Client, chatID uuid.UUID) {
	users := h.chatUsersUnsafe(chatID)

	event := Event{
		Type:      TypeChatUsers,
		ChatID:    &chatID,
		UserID:    client.UserID,
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(users); err == nil {
		event.Data = data
		if eventData, err := json.Marshal(event); err == nil {
			select {
			case client.Send <- eventData:
			default:
				log.Printf("Failed to send chat users to client %s", client.ID)
			}
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event := Event{
		Type:      TypePing,
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(event); err == nil {
		for _, client := range h.clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// IsOnline сообщает, есть ли у пользователя живые соединения
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.userClients[userID]
	return ok
}

// GetOnlineUsers возвращает список онлайн пользователей
func (h *Hub) GetOnlineUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// GetChatUsers возвращает пользователей, вошедших в комнату чата
func (h *Hub) GetChatUsers(chatID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.chatUsersUnsafe(chatID)
}

func (h *Hub) chatUsersUnsafe(chatID uuid.UUID) []uuid.UUID {
	userMap := make(map[uuid.UUID]bool)
	if chat, ok := h.chats[chatID]; ok {
		for _, client := range chat {
			userMap[client.UserID] = true
		}
	}

	users := make([]uuid.UUID, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}
