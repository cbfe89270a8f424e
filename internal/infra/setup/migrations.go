package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	gormpersistence "lila-rooms/internal/infra/persistence/gorm"
)

// MigrateDB 迁移房间三张表、历史记录表和用户表
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := db.AutoMigrate(gormpersistence.Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	logrus.Info("Database migrated")
	return nil
}
