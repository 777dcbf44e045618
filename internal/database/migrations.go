package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationRepairPrivacyFlags = "2026-07-12_repair_room_privacy_flags"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRepairPrivacyFlags, apply: repairRoomPrivacyFlags},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		if err := db.Create(&migrationRecord{
			Name:             migration.name,
			AppliedAtSeconds: time.Now().Unix(),
		}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("migration applied", zap.String("name", migration.name))
		}
	}
	return nil
}

// repairRoomPrivacyFlags marks any room that carries a password hash but was
// stored as public before the privacy flag became authoritative.
func repairRoomPrivacyFlags(db *gorm.DB) error {
	return db.Exec("UPDATE rooms SET is_private = 1 WHERE password_hash <> '' AND is_private = 0;").Error
}
