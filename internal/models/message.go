package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message неизменяемо после создания, растет только список ReadBy.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Content   string
	MediaURL  string
	CreatedAt time.Time `gorm:"index"`

	// Связи
	Sender User          `gorm:"foreignKey:SenderID"`
	Chat   Chat          `gorm:"foreignKey:ChatID"`
	ReadBy []MessageRead `gorm:"foreignKey:MessageID"`
}

// MessageRead — отметка "прочитано" для пары сообщение/пользователь.
// Отправитель собственных сообщений сюда не попадает.
type MessageRead struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
