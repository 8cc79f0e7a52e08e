package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/telega-lite/internal/database"
	"github.com/thereayou/telega-lite/internal/handlers/dto"
	"github.com/thereayou/telega-lite/internal/middleware"
	"github.com/thereayou/telega-lite/internal/models"
	"github.com/thereayou/telega-lite/internal/websocket"
)

type ChatHandler struct {
	db  *database.Database
	hub *websocket.Hub
}

func NewChatHandler(db *database.Database, hub *websocket.Hub) *ChatHandler {
	return &ChatHandler{db: db, hub: hub}
}

// CreateDirectChat создает или возвращает личный чат с пользователем
func (h *ChatHandler) CreateDirectChat(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.CreateDirectChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	otherID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	chat, err := h.db.CreateOrGetDirectChat(userID, otherID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatChatResponse(chat))
}

// CreateGroupChat создает групповой чат, создатель становится админом
func (h *ChatHandler) CreateGroupChat(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.CreateGroupChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id: " + raw})
			return
		}
		memberIDs = append(memberIDs, id)
	}

	chat, err := h.db.CreateGroupChat(req.Name, userID, memberIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.formatChatResponse(chat))
}

// GetMyChats возвращает чаты пользователя, самые активные первыми
func (h *ChatHandler) GetMyChats(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chats, err := h.db.GetUserChats(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]gin.H, len(chats))
	for i := range chats {
		response[i] = h.formatChatResponse(&chats[i])
	}

	c.JSON(http.StatusOK, gin.H{"chats": response})
}

// GetChat возвращает один чат, только участникам
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chat, err := h.db.GetChatForUser(c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatChatResponse(chat))
}

// RenameGroup переименовывает группу
func (h *ChatHandler) RenameGroup(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.RenameGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.db.RenameChat(c.Param("id"), userID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatChatResponse(chat))
}

// AddMember добавляет участника в группу
func (h *ChatHandler) AddMember(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	chat, err := h.db.AddMember(c.Param("id"), userID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatChatResponse(chat))
}

// RemoveMember удаляет участника из группы либо оформляет выход
func (h *ChatHandler) RemoveMember(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	memberID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	chat, err := h.db.RemoveMember(c.Param("id"), userID, memberID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatChatResponse(chat))
}

// TransferAdmin передает права админа другому участнику
func (h *ChatHandler) TransferAdmin(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newAdminID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	chat, err := h.db.TransferAdmin(c.Param("id"), userID, newAdminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.formatChatResponse(chat))
}

// formatChatResponse форматирует ответ для чата
func (h *ChatHandler) formatChatResponse(chat *models.Chat) gin.H {
	participants := make([]gin.H, len(chat.Participants))
	for i, p := range chat.Participants {
		participants[i] = gin.H{
			"id":         p.ID,
			"username":   p.Username,
			"avatar_url": p.AvatarURL,
			"is_online":  h.hub != nil && h.hub.IsOnline(p.ID),
		}
	}

	// Записи вышедших участников игнорируем, отсутствующие читаем как 0
	unread := make(map[string]int, len(chat.Participants))
	for _, p := range chat.Participants {
		unread[p.ID.String()] = 0
	}
	for _, u := range chat.Unreads {
		if _, ok := unread[u.UserID.String()]; ok {
			unread[u.UserID.String()] = u.Count
		}
	}

	response := gin.H{
		"id":           chat.ID,
		"is_group":     chat.IsGroup,
		"participants": participants,
		"unread_count": unread,
		"created_at":   chat.CreatedAt,
		"updated_at":   chat.UpdatedAt,
	}

	if chat.IsGroup {
		response["group_name"] = chat.GroupName
		if chat.GroupAdmin != nil {
			response["group_admin"] = gin.H{
				"id":         chat.GroupAdmin.ID,
				"username":   chat.GroupAdmin.Username,
				"avatar_url": chat.GroupAdmin.AvatarURL,
			}
		}
	}

	if chat.LastMessage != nil {
		response["last_message"] = gin.H{
			"id":         chat.LastMessage.ID,
			"content":    chat.LastMessage.Content,
			"media_url":  chat.LastMessage.MediaURL,
			"created_at": chat.LastMessage.CreatedAt,
			"sender": gin.H{
				"id":         chat.LastMessage.Sender.ID,
				"username":   chat.LastMessage.Sender.Username,
				"avatar_url": chat.LastMessage.Sender.AvatarURL,
			},
		}
	}

	return response
}
