package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent забирает одно событие из очереди клиента без блокировки
func readEvent(t *testing.T, c *Client) *Event {
	t.Helper()

	select {
	case data := <-c.Send:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return &event
	default:
		return nil
	}
}

func TestRegisterTracksPresence(t *testing.T) {
	hub := NewHub()

	userA := uuid.New()
	userB := uuid.New()
	observer := NewClient(hub, nil, userB)
	hub.registerClient(observer)

	assert.False(t, hub.IsOnline(userA))

	first := NewClient(hub, nil, userA)
	hub.registerClient(first)
	assert.True(t, hub.IsOnline(userA))

	// Наблюдатель видит выход пользователя в онлайн
	event := readEvent(t, observer)
	require.NotNil(t, event)
	assert.Equal(t, TypeUserStatus, event.Type)

	var status UserStatus
	require.NoError(t, json.Unmarshal(event.Data, &status))
	assert.Equal(t, userA, status.UserID)
	assert.True(t, status.IsOnline)

	// Второе соединение того же пользователя статус не меняет
	second := NewClient(hub, nil, userA)
	hub.registerClient(second)
	assert.Nil(t, readEvent(t, observer))

	// Свои соединения уведомление не получают
	assert.Nil(t, readEvent(t, second))

	online := hub.GetOnlineUsers()
	assert.Len(t, online, 2)
	assert.Contains(t, online, userA)
	assert.Contains(t, online, userB)
}

func TestUnregisterNotifiesOnLastConnection(t *testing.T) {
	hub := NewHub()

	userA := uuid.New()
	observer := NewClient(hub, nil, uuid.New())
	hub.registerClient(observer)

	first := NewClient(hub, nil, userA)
	second := NewClient(hub, nil, userA)
	hub.registerClient(first)
	hub.registerClient(second)
	readEvent(t, observer) // online

	hub.unregisterClient(first)
	assert.True(t, hub.IsOnline(userA))
	assert.Nil(t, readEvent(t, observer))

	hub.unregisterClient(second)
	assert.False(t, hub.IsOnline(userA))

	event := readEvent(t, observer)
	require.NotNil(t, event)
	assert.Equal(t, TypeUserStatus, event.Type)

	var status UserStatus
	require.NoError(t, json.Unmarshal(event.Data, &status))
	assert.Equal(t, userA, status.UserID)
	assert.False(t, status.IsOnline)

	// Повторная отписка безопасна
	hub.unregisterClient(second)
}

func TestJoinAndLeaveChat(t *testing.T) {
	hub := NewHub()
	chatID := uuid.New()

	userA := uuid.New()
	clientA := NewClient(hub, nil, userA)
	clientA2 := NewClient(hub, nil, userA)
	clientB := NewClient(hub, nil, uuid.New())
	hub.registerClient(clientA)
	hub.registerClient(clientA2)
	hub.registerClient(clientB)

	hub.JoinChat(clientA, chatID)
	hub.JoinChat(clientA2, chatID)
	hub.JoinChat(clientB, chatID)

	assert.True(t, clientA.IsInChat(chatID))
	assert.Contains(t, clientA.GetChats(), chatID)

	// Два соединения одного пользователя считаются одним участником
	users := hub.GetChatUsers(chatID)
	assert.Len(t, users, 2)
	assert.Contains(t, users, userA)
	assert.Contains(t, users, clientB.UserID)

	hub.LeaveChat(clientA, chatID)
	assert.False(t, clientA.IsInChat(chatID))
	assert.Len(t, hub.GetChatUsers(chatID), 2)

	hub.LeaveChat(clientA2, chatID)
	assert.Len(t, hub.GetChatUsers(chatID), 1)

	// Последний ушедший освобождает комнату
	hub.LeaveChat(clientB, chatID)
	assert.Empty(t, hub.GetChatUsers(chatID))
	hub.mu.RLock()
	_, ok := hub.chats[chatID]
	hub.mu.RUnlock()
	assert.False(t, ok)
}

func TestJoinChatSendsRoster(t *testing.T) {
	hub := NewHub()
	chatID := uuid.New()

	client := NewClient(hub, nil, uuid.New())
	hub.registerClient(client)
	hub.JoinChat(client, chatID)

	event := readEvent(t, client)
	require.NotNil(t, event)
	assert.Equal(t, TypeChatUsers, event.Type)
	require.NotNil(t, event.ChatID)
	assert.Equal(t, chatID, *event.ChatID)

	var users []uuid.UUID
	require.NoError(t, json.Unmarshal(event.Data, &users))
	assert.Equal(t, []uuid.UUID{client.UserID}, users)
}

func TestSendToChatExcept(t *testing.T) {
	hub := NewHub()
	chatID := uuid.New()

	sender := NewClient(hub, nil, uuid.New())
	other := NewClient(hub, nil, uuid.New())
	outsider := NewClient(hub, nil, uuid.New())
	hub.registerClient(sender)
	hub.registerClient(other)
	hub.registerClient(outsider)

	hub.JoinChat(sender, chatID)
	hub.JoinChat(other, chatID)
	// Сбрасываем chat-users и статусные события
	for _, c := range []*Client{sender, other, outsider} {
		for readEvent(t, c) != nil {
		}
	}

	payload := []byte(`{"type":"typing"}`)
	hub.SendToChatExcept(chatID, payload, sender.ID)

	select {
	case data := <-other.Send:
		assert.JSONEq(t, string(payload), string(data))
	default:
		t.Fatal("expected event for chat member")
	}

	assert.Nil(t, readEvent(t, sender))
	assert.Nil(t, readEvent(t, outsider))
}

func TestSendToUser(t *testing.T) {
	hub := NewHub()

	userA := uuid.New()
	first := NewClient(hub, nil, userA)
	second := NewClient(hub, nil, userA)
	stranger := NewClient(hub, nil, uuid.New())
	hub.registerClient(first)
	hub.registerClient(second)
	hub.registerClient(stranger)
	for _, c := range []*Client{first, second, stranger} {
		for readEvent(t, c) != nil {
		}
	}

	hub.SendToUser(userA, []byte(`{"type":"ping"}`))

	// Доставка на все соединения пользователя
	assert.Len(t, first.Send, 1)
	assert.Len(t, second.Send, 1)
	assert.Len(t, stranger.Send, 0)
}

func TestUnregisterLeavesRooms(t *testing.T) {
	hub := NewHub()
	chatID := uuid.New()

	client := NewClient(hub, nil, uuid.New())
	peer := NewClient(hub, nil, uuid.New())
	hub.registerClient(client)
	hub.registerClient(peer)
	hub.JoinChat(client, chatID)
	hub.JoinChat(peer, chatID)

	hub.unregisterClient(client)

	users := hub.GetChatUsers(chatID)
	assert.Equal(t, []uuid.UUID{peer.UserID}, users)

	// Канал закрыт, очередь можно дочитать до конца
	for range client.Send {
	}
}
