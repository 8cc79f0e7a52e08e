package database

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/telega-lite/internal/models"
	"gorm.io/gorm"
)

func (d *Database) loadChat(tx *gorm.DB, id string) (*models.Chat, error) {
	var chat models.Chat
	err := tx.
		Preload("Participants").
		Preload("GroupAdmin").
		Preload("LastMessage.Sender").
		Preload("Unreads").
		First(&chat, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (d *Database) GetChat(id string) (*models.Chat, error) {
	return d.loadChat(d.db, id)
}

// GetChatForUser загружает чат и проверяет членство
func (d *Database) GetChatForUser(chatID string, userID uuid.UUID) (*models.Chat, error) {
	chat, err := d.loadChat(d.db, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return chat, nil
}

// CreateOrGetDirectChat находит или создает личный чат пары пользователей.
// Повторные вызовы с любой стороны возвращают тот же чат.
func (d *Database) CreateOrGetDirectChat(callerID, otherID uuid.UUID) (*models.Chat, error) {
	if callerID == otherID {
		return nil, ErrSelfChat
	}

	var caller, other models.User
	if err := d.db.First(&caller, "id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := d.db.First(&other, "id = ?", otherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key := models.DirectChatKey(callerID, otherID)

	var existing models.Chat
	err := d.db.Where("direct_key = ?", key).First(&existing).Error
	if err == nil {
		return d.GetChat(existing.ID.String())
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	chat := models.Chat{
		IsGroup:      false,
		DirectKey:    &key,
		Participants: []models.User{caller, other},
	}
	if err := d.db.Create(&chat).Error; err != nil {
		// Конкурирующий запрос мог вставить чат первым: уникальный индекс
		// по direct_key схлопывает гонку, перечитываем чужую запись
		if ferr := d.db.Where("direct_key = ?", key).First(&existing).Error; ferr == nil {
			return d.GetChat(existing.ID.String())
		}
		return nil, err
	}

	return d.GetChat(chat.ID.String())
}

// CreateGroupChat создает группу; админ всегда входит в участников
func (d *Database) CreateGroupChat(name string, adminID uuid.UUID, memberIDs []uuid.UUID) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}

	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(memberIDs)+1)
	for _, id := range append(memberIDs, adminID) {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil, ErrTooFewMembers
	}

	var users []models.User
	if err := d.db.Find(&users, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, ErrUserNotFound
	}

	chat := models.Chat{
		IsGroup:      true,
		GroupName:    name,
		GroupAdminID: &adminID,
		Participants: users,
	}
	if err := d.db.Create(&chat).Error; err != nil {
		return nil, err
	}

	return d.GetChat(chat.ID.String())
}

// RenameChat переименовывает группу; доступно любому участнику
func (d *Database) RenameChat(chatID string, callerID uuid.UUID, name string) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}

	chat, err := d.GetChatForUser(chatID, callerID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, ErrNotGroup
	}

	if err := d.db.Model(chat).Update("group_name", name).Error; err != nil {
		return nil, err
	}

	return d.GetChat(chatID)
}

// AddMember добавляет участника; только админ группы
func (d *Database) AddMember(chatID string, callerID, userID uuid.UUID) (*models.Chat, error) {
	chat, err := d.loadChat(d.db, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, ErrNotGroup
	}
	if !chat.IsAdmin(callerID) {
		return nil, ErrNotAdmin
	}
	if chat.HasParticipant(userID) {
		return nil, ErrAlreadyMember
	}

	var user models.User
	if err := d.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(chat).Association("Participants").Append(&user); err != nil {
			return err
		}
		return d.touchChat(tx, chat.ID)
	})
	if err != nil {
		return nil, err
	}

	return d.GetChat(chatID)
}

// RemoveMember удаляет участника. Разрешено админу или самому участнику
// (выход из группы). Админ не выходит, пока в группе есть другие: сначала
// передача прав, иначе группа останется без админа.
func (d *Database) RemoveMember(chatID string, callerID, userID uuid.UUID) (*models.Chat, error) {
	chat, err := d.loadChat(d.db, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, ErrNotGroup
	}

	isAdmin := chat.IsAdmin(callerID)
	isSelf := callerID == userID
	if !isAdmin && !isSelf {
		return nil, ErrNotAdmin
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotMember
	}
	if isSelf && chat.IsAdmin(userID) && len(chat.Participants) > 1 {
		return nil, ErrAdminLeave
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(chat).Association("Participants").Delete(&models.User{ID: userID}); err != nil {
			return err
		}
		// Счетчик вышедшего больше не нужен
		if err := tx.Delete(&models.ChatUnread{}, "chat_id = ? AND user_id = ?", chat.ID, userID).Error; err != nil {
			return err
		}
		return d.touchChat(tx, chat.ID)
	})
	if err != nil {
		return nil, err
	}

	return d.GetChat(chatID)
}

// TransferAdmin передает права админа другому участнику группы.
// Членство нового админа проверяется свежим чтением в той же транзакции.
func (d *Database) TransferAdmin(chatID string, callerID, newAdminID uuid.UUID) (*models.Chat, error) {
	err := d.db.Transaction(func(tx *gorm.DB) error {
		chat, err := d.loadChat(tx, chatID)
		if err != nil {
			return err
		}
		if !chat.IsGroup {
			return ErrNotGroup
		}
		if !chat.IsAdmin(callerID) {
			return ErrNotAdmin
		}
		if !chat.HasParticipant(newAdminID) {
			return ErrNotMember
		}
		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).
			Update("group_admin_id", newAdminID).Error
	})
	if err != nil {
		return nil, err
	}

	return d.GetChat(chatID)
}

// GetUserChats возвращает чаты пользователя, самые активные первыми
func (d *Database) GetUserChats(userID uuid.UUID) ([]models.Chat, error) {
	var chats []models.Chat
	err := d.db.
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", userID).
		Preload("Participants").
		Preload("GroupAdmin").
		Preload("LastMessage.Sender").
		Preload("Unreads").
		Order("chats.updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// touchChat двигает чат наверх списка при изменении состава
func (d *Database) touchChat(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.Chat{}).Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}
