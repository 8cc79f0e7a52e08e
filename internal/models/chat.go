package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat — один тип для личных и групповых чатов (тег IsGroup).
// GroupName и GroupAdminID обязательны только для групп.
type Chat struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	IsGroup       bool       `gorm:"not null;default:false"`
	GroupName     string
	GroupAdminID  *uuid.UUID `gorm:"type:uuid"`
	LastMessageID *uuid.UUID `gorm:"type:uuid"`

	// Ключ "minID:maxID" только у личных чатов. Уникальный индекс
	// гарантирует не больше одного чата на пару пользователей.
	DirectKey *string `gorm:"uniqueIndex"`

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`

	// Связи
	Participants []User       `gorm:"many2many:chat_participants"`
	GroupAdmin   *User        `gorm:"foreignKey:GroupAdminID"`
	LastMessage  *Message     `gorm:"foreignKey:LastMessageID"`
	Unreads      []ChatUnread `gorm:"foreignKey:ChatID"`
}

// ChatUnread — счетчик непрочитанных на участника чата.
// Обновляется атомарно на стороне БД, не в коде приложения.
type ChatUnread struct {
	ChatID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Count  int       `gorm:"not null;default:0"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasParticipant проверяет членство по загруженным Participants
func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// IsAdmin проверяет, является ли пользователь админом группы
func (c *Chat) IsAdmin(userID uuid.UUID) bool {
	return c.GroupAdminID != nil && *c.GroupAdminID == userID
}

// DirectChatKey строит ключ пары независимо от порядка аргументов
func DirectChatKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if as < bs {
		return as + ":" + bs
	}
	return bs + ":" + as
}
