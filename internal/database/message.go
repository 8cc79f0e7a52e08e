package database

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/telega-lite/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SendMessage сохраняет сообщение и в той же транзакции обновляет чат:
// указатель на последнее сообщение, updated_at и счетчики непрочитанных
// всех участников, кроме отправителя. Инкремент — на стороне БД, чтобы
// конкурирующие отправки не теряли обновления.
func (d *Database) SendMessage(chatID string, senderID uuid.UUID, content, mediaURL string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	mediaURL = strings.TrimSpace(mediaURL)
	if content == "" && mediaURL == "" {
		return nil, ErrEmptyMessage
	}

	var msgID uuid.UUID
	err := d.db.Transaction(func(tx *gorm.DB) error {
		chat, err := d.loadChat(tx, chatID)
		if err != nil {
			return err
		}
		if !chat.HasParticipant(senderID) {
			return ErrNotParticipant
		}

		message := models.Message{
			ChatID:    chat.ID,
			SenderID:  senderID,
			Content:   content,
			MediaURL:  mediaURL,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		msgID = message.ID

		err = tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Updates(map[string]interface{}{
			"last_message_id": message.ID,
			"updated_at":      time.Now(),
		}).Error
		if err != nil {
			return err
		}

		for _, p := range chat.Participants {
			if p.ID == senderID {
				continue
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "chat_id"}, {Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("chat_unreads.count + 1")}),
			}).Create(&models.ChatUnread{ChatID: chat.ID, UserID: p.ID, Count: 1}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.GetMessage(msgID.String())
}

func (d *Database) GetMessage(id string) (*models.Message, error) {
	var message models.Message
	err := d.db.Preload("Sender").Preload("ReadBy").First(&message, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// GetChatMessages возвращает историю чата, новые первыми, с пагинацией.
// Чтение истории и есть отметка о прочтении: обнуляет счетчик читающего
// и помечает чужие сообщения прочитанными.
func (d *Database) GetChatMessages(chatID string, userID uuid.UUID, page, limit int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	chat, err := d.GetChatForUser(chatID, userID)
	if err != nil {
		return nil, err
	}

	if err := d.markRead(chat, userID); err != nil {
		return nil, err
	}

	var messages []models.Message
	err = d.db.
		Where("chat_id = ?", chat.ID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Preload("Sender").
		Preload("ReadBy").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkMessagesRead — явная отметка без перечитывания истории.
// Делает ровно то же, что чтение истории.
func (d *Database) MarkMessagesRead(chatID string, userID uuid.UUID) error {
	chat, err := d.GetChatForUser(chatID, userID)
	if err != nil {
		return err
	}
	return d.markRead(chat, userID)
}

// markRead идемпотентен: повторный вызов ничего не меняет
func (d *Database) markRead(chat *models.Chat, userID uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var unreadIDs []uuid.UUID
		err := tx.Model(&models.Message{}).
			Where("chat_id = ? AND sender_id <> ?", chat.ID, userID).
			Where("id NOT IN (?)", tx.Model(&models.MessageRead{}).Select("message_id").Where("user_id = ?", userID)).
			Pluck("id", &unreadIDs).Error
		if err != nil {
			return err
		}

		if len(unreadIDs) > 0 {
			reads := make([]models.MessageRead, 0, len(unreadIDs))
			for _, id := range unreadIDs {
				reads = append(reads, models.MessageRead{MessageID: id, UserID: userID})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reads).Error; err != nil {
				return err
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": 0}),
		}).Create(&models.ChatUnread{ChatID: chat.ID, UserID: userID, Count: 0}).Error
	})
}
