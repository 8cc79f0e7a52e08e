package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/telega-lite/internal/database"
	"github.com/thereayou/telega-lite/internal/handlers/dto"
	"github.com/thereayou/telega-lite/internal/middleware"
	"github.com/thereayou/telega-lite/internal/models"
)

type MessageHandler struct {
	db *database.Database
}

func NewMessageHandler(db *database.Database) *MessageHandler {
	return &MessageHandler{db: db}
}

// SendMessage сохраняет сообщение. Доставку по сокетам клиент инициирует
// сам, переотправив сохраненное сообщение в канал
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.db.SendMessage(req.ChatID, userID, req.Content, req.MediaURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatMessageResponse(message))
}

// GetChatMessages возвращает историю чата постранично, новые первыми.
// Побочный эффект: сообщения помечаются прочитанными, счетчик обнуляется
func (h *MessageHandler) GetChatMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	chatID := c.Param("chatID")

	page := 1
	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	messages, err := h.db.GetChatMessages(chatID, userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]gin.H, len(messages))
	for i := range messages {
		result[i] = formatMessageResponse(&messages[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": result,
		"page":     page,
		"has_more": len(messages) == limit,
	})
}

// MarkRead помечает сообщения чата прочитанными без загрузки истории
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	if err := h.db.MarkMessagesRead(c.Param("chatID"), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "messages marked as read"})
}

// formatMessageResponse форматирует ответ для сообщения
func formatMessageResponse(msg *models.Message) gin.H {
	readBy := make([]uuid.UUID, 0, len(msg.ReadBy))
	for _, r := range msg.ReadBy {
		readBy = append(readBy, r.UserID)
	}

	return gin.H{
		"id":         msg.ID,
		"chat_id":    msg.ChatID,
		"content":    msg.Content,
		"media_url":  msg.MediaURL,
		"read_by":    readBy,
		"created_at": msg.CreatedAt,
		"sender": gin.H{
			"id":         msg.Sender.ID,
			"username":   msg.Sender.Username,
			"avatar_url": msg.Sender.AvatarURL,
		},
	}
}
