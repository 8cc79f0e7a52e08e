package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/telega-lite/internal/database"
	"github.com/thereayou/telega-lite/internal/middleware"
	"github.com/thereayou/telega-lite/internal/models"
	"github.com/thereayou/telega-lite/internal/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testUserHeader = "X-Test-User"

// newTestRouter поднимает роутер на sqlite с заглушкой вместо JWT:
// пользователь берется из заголовка X-Test-User
func newTestRouter(t *testing.T) (*database.Database, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	d := database.NewDatabase(db)
	hub := websocket.NewHub()

	chatH := NewChatHandler(d, hub)
	messageH := NewMessageHandler(d)
	userH := NewUserHandler(d, hub)

	authStub := func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(testUserHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(middleware.UserIDKey, id)
	}

	r := gin.New()
	api := r.Group("/api", authStub)
	{
		api.GET("/users/me", userH.GetMe)
		api.GET("/users/search", userH.SearchUsers)
		api.GET("/users/:id", userH.GetUser)

		api.POST("/chats", chatH.CreateDirectChat)
		api.POST("/chats/group", chatH.CreateGroupChat)
		api.GET("/chats", chatH.GetMyChats)
		api.GET("/chats/:id", chatH.GetChat)
		api.PUT("/chats/:id/rename", chatH.RenameGroup)
		api.PUT("/chats/:id/members", chatH.AddMember)
		api.DELETE("/chats/:id/members/:userID", chatH.RemoveMember)
		api.PUT("/chats/:id/admin", chatH.TransferAdmin)

		api.POST("/messages", messageH.SendMessage)
		api.GET("/messages/:chatID", messageH.GetChatMessages)
		api.POST("/messages/:chatID/read", messageH.MarkRead)
	}

	return d, r
}

func seedUser(t *testing.T, d *database.Database, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, d.SaveUser(user))
	return user
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, as uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(testUserHeader, as.String())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateDirectChat_Idempotent(t *testing.T) {
	d, r := newTestRouter(t)
	alice := seedUser(t, d, "alice")
	bob := seedUser(t, d, "bob")

	w := doRequest(t, r, http.MethodPost, "/api/chats", alice.ID, gin.H{"user_id": bob.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	first := decodeBody(t, w)
	assert.Equal(t, false, first["is_group"])
	assert.Len(t, first["participants"], 2)

	// Повторный запрос с другой стороны возвращает тот же чат
	w = doRequest(t, r, http.MethodPost, "/api/chats", bob.ID, gin.H{"user_id": alice.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	second := decodeBody(t, w)
	assert.Equal(t, first["id"], second["id"])
}

func TestCreateDirectChat_Validation(t *testing.T) {
	d, r := newTestRouter(t)
	alice := seedUser(t, d, "alice")

	w := doRequest(t, r, http.MethodPost, "/api/chats", alice.ID, gin.H{"user_id": alice.ID.String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/chats", alice.ID, gin.H{"user_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/chats", alice.ID, gin.H{"user_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/chats", alice.ID, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateGroupChat_Validation(t *testing.T) {
	d, r := newTestRouter(t)
	alice := seedUser(t, d, "alice")

	// Без других участников группа не собирается
	w := doRequest(t, r, http.MethodPost, "/api/chats/group", alice.ID, gin.H{
		"name":     "Engineering",
		"user_ids": []string{alice.ID.String()},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/chats/group", alice.ID, gin.H{
		"user_ids": []string{uuid.NewString()},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupChatFlow(t *testing.T) {
	d, r := newTestRouter(t)
	alice := seedUser(t, d, "alice")
	bob := seedUser(t, d, "bob")
	carol := seedUser(t, d, "carol")

	// Алиса создает группу с Бобом и Кэрол
	w := doRequest(t, r, http.MethodPost, "/api/chats/group", alice.ID, gin.H{
		"name":     "Engineering",
		"user_ids": []string{bob.ID.String(), carol.ID.String()},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	chat := decodeBody(t, w)
	chatID := chat["id"].(string)

	assert.Equal(t, true, chat["is_group"])
	assert.Equal(t, "Engineering", chat["group_name"])
	admin := chat["group_admin"].(map[string]interface{})
	assert.Equal(t, alice.ID.String(), admin["id"])
	assert.Len(t, chat["participants"], 3)
	assert.Nil(t, chat["last_message"])

	// Кэрол пишет, у остальных растет непрочитанное
	w = doRequest(t, r, http.MethodPost, "/api/messages", carol.ID, gin.H{
		"chat_id": chatID,
		"content": "hi",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	msg := decodeBody(t, w)
	assert.Equal(t, "hi", msg["content"])
	assert.Empty(t, msg["read_by"])

	w = doRequest(t, r, http.MethodGet, "/api/chats/"+chatID, alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	chat = decodeBody(t, w)

	unread := chat["unread_count"].(map[string]interface{})
	assert.EqualValues(t, 1, unread[alice.ID.String()])
	assert.EqualValues(t, 1, unread[bob.ID.String()])
	assert.EqualValues(t, 0, unread[carol.ID.String()])

	last := chat["last_message"].(map[string]interface{})
	assert.Equal(t, "hi", last["content"])
	assert.Equal(t, carol.ID.String(), last["sender"].(map[string]interface{})["id"])

	// Алиса открывает историю, ее счетчик обнуляется
	w = doRequest(t, r, http.MethodGet, "/api/messages/"+chatID, alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeBody(t, w)
	messages := history["messages"].([]interface{})
	require.Len(t, messages, 1)
	readBy := messages[0].(map[string]interface{})["read_by"].([]interface{})
	require.Len(t, readBy, 1)
	assert.Equal(t, alice.ID.String(), readBy[0])

	w = doRequest(t, r, http.MethodGet, "/api/chats/"+chatID, alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	unread = decodeBody(t, w)["unread_count"].(map[string]interface{})
	assert.EqualValues(t, 0, unread[alice.ID.String()])
	assert.EqualValues(t, 1, unread[bob.ID.String()])

	// Боб не админ и не может выгнать Алису
	w = doRequest(t, r, http.MethodDelete, "/api/chats/"+chatID+"/members/"+alice.ID.String(), bob.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Но может выйти сам
	w = doRequest(t, r, http.MethodDelete, "/api/chats/"+chatID+"/members/"+bob.ID.String(), bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["participants"], 2)
}

func TestGroupAdminOperations(t *testing.T) {
	d, r := newTestRouter(t)
	alice := seedUser(t, d, "alice")
	bob := seedUser(t, d, "bob")
	carol := seedUser(t, d, "carol")
	dave := seedUser(t, d, "dave")

	w := doRequest(t, r, http.MethodPost, "/api/chats/group", alice.ID, gin.H{
		"name":     "Team",
		"user_ids": []string{bob.ID.String(), carol.ID.String()},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	chatID := decodeBody(t, w)["id"].(string)

	// Добавлять может только админ
	w = doRequest(t, r, http.MethodPut, "/api/chats/"+chatID+"/members", bob.ID, gin.H{"user_id": dave.ID.String()})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodPut, "/api/chats/"+chatID+"/members", alice.ID, gin.H{"user_id": dave.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["participants"], 4)

	w = doRequest(t, r, http.MethodPut, "/api/chats/"+chatID+"/members", alice.ID, gin.H{"user_id": dave.ID.String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Переименовать может любой участник
	w = doRequest(t, r, http.MethodPut, "/api/chats/"+chatID+"/rename", bob.ID, gin.H{"name": "Core Team"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Core Team", decodeBody(t, w)["group_name"])

	// Админ не уходит, не передав права
	w = doRequest(t, r, http.MethodDelete, "/api/chats/"+chatID+"/members/"+alice.ID.String(), alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPut, "/api/chats/"+chatID+"/admin", bob.ID, gin.H{"user_id": bob.ID.String()})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodPut, "/api/chats/"+chatID+"/admin", alice.ID, gin.H{"user_id": bob.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	newAdmin := decodeBody(t, w)["group_admin"].(map[string]interface{})
	assert.Equal(t, bob.ID.String(), newAdmin["id"])

	// Теперь бывший админ выходит свободно
	w = doRequest(t, r, http.MethodDelete, "/api/chats/"+chatID+"/members/"+alice.ID.String(), alice.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatAccess(t *testing.T) {
	d, r := newTestRouter(t)
	alice := seedUser(t, d, "alice")
	bob := seedUser(t, d, "bob")
	mallory := seedUser(t, d, "mallory")

	w := doRequest(t, r, http.MethodPost, "/api/chats", alice.ID, gin.H{"user_id": bob.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	chatID := decodeBody(t, w)["id"].(string)

	// Чужой чат закрыт
	w = doRequest(t, r, http.MethodGet, "/api/chats/"+chatID, mallory.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/messages", mallory.ID, gin.H{"chat_id": chatID, "content": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/messages/"+chatID, mallory.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/chats/"+uuid.NewString(), alice.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Личный чат не переименовывается
	w = doRequest(t, r, http.MethodPut, "/api/chats/"+chatID+"/rename", alice.ID, gin.H{"name": "Renamed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMyChats(t *testing.T) {
	d, r := newTestRouter(t)
	alice := seedUser(t, d, "alice")
	bob := seedUser(t, d, "bob")
	carol := seedUser(t, d, "carol")

	w := doRequest(t, r, http.MethodPost, "/api/chats", alice.ID, gin.H{"user_id": bob.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	directID := decodeBody(t, w)["id"].(string)

	w = doRequest(t, r, http.MethodPost, "/api/chats/group", alice.ID, gin.H{
		"name":     "Team",
		"user_ids": []string{carol.ID.String()},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Активность поднимает чат наверх
	w = doRequest(t, r, http.MethodPost, "/api/messages", bob.ID, gin.H{"chat_id": directID, "content": "ping"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/chats", alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	chats := decodeBody(t, w)["chats"].([]interface{})
	require.Len(t, chats, 2)
	assert.Equal(t, directID, chats[0].(map[string]interface{})["id"])

	// У Кэрол только группа
	w = doRequest(t, r, http.MethodGet, "/api/chats", carol.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["chats"], 1)
}

func TestMarkReadEndpoint(t *testing.T) {
	d, r := newTestRouter(t)
	alice := seedUser(t, d, "alice")
	bob := seedUser(t, d, "bob")

	w := doRequest(t, r, http.MethodPost, "/api/chats", alice.ID, gin.H{"user_id": bob.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	chatID := decodeBody(t, w)["id"].(string)

	w = doRequest(t, r, http.MethodPost, "/api/messages", bob.ID, gin.H{"chat_id": chatID, "content": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/messages/"+chatID+"/read", alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/chats/"+chatID, alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	unread := decodeBody(t, w)["unread_count"].(map[string]interface{})
	assert.EqualValues(t, 0, unread[alice.ID.String()])
}
