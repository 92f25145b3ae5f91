package db

import (
	"fmt"

	"github.com/router-for-me/StudyGateway/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and constraints.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.DailyUsage{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_daily_usages_count_non_negative'
			) THEN
				ALTER TABLE daily_usages
				ADD CONSTRAINT chk_daily_usages_count_non_negative CHECK (count >= 0);
			END IF;
		END $$;
	`).Error; errCheck != nil {
		return fmt.Errorf("db: add daily usage count check: %w", errCheck)
	}
	if errTierCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_users_tier_non_negative'
			) THEN
				ALTER TABLE users
				ADD CONSTRAINT chk_users_tier_non_negative CHECK (tier >= 0);
			END IF;
		END $$;
	`).Error; errTierCheck != nil {
		return fmt.Errorf("db: add user tier check: %w", errTierCheck)
	}
	if errDateIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_daily_usages_usage_date ON daily_usages (usage_date)
	`).Error; errDateIdx != nil {
		return fmt.Errorf("db: add usage date index: %w", errDateIdx)
	}
	return nil
}

// migrateSQLite applies the SQLite schema.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.DailyUsage{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errDateIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_daily_usages_usage_date ON daily_usages (usage_date)
	`).Error; errDateIdx != nil {
		return fmt.Errorf("db: add usage date index: %w", errDateIdx)
	}
	return nil
}
