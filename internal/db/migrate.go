package db

import (
	"fmt"

	"github.com/calloway/dispatchline/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Case{},
		&models.CaseNote{},
		&models.OperatorProfile{},
		&models.NotificationQueueEntry{},
		&models.AlertContextRecord{},
		&models.SmsLog{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
