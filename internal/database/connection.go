package database

import (
	"errors"
	"os"

	"github.com/thereayou/telega-lite/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func (d *Database) Connect() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	// Констрейнты внешних ключей не создаем: chats.last_message_id и
	// messages.chat_id ссылаются друг на друга, миграция бы не прошла
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return err
	}

	err = Migrate(db)
	if err != nil {
		return err
	}

	d.db = db

	return nil
}

// Migrate вынесен отдельно, чтобы тесты могли мигрировать sqlite
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
		&models.ChatUnread{},
		&models.MessageRead{},
	)
}
