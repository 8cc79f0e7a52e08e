package dto

// SendMessageRequest: хотя бы одно из content/media_url должно быть непустым
type SendMessageRequest struct {
	ChatID   string `json:"chat_id" binding:"required"`
	Content  string `json:"content"`
	MediaURL string `json:"media_url"`
}
