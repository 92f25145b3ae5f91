package models

import "time"

// DailyUsage counts admitted generation requests for one user on one calendar day.
type DailyUsage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    uint64 `gorm:"not null;uniqueIndex:idx_daily_usages_user_date,priority:1"`                  // Owning user ID.
	UsageDate string `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_usages_user_date,priority:2"` // Day in YYYY-MM-DD form.
	Count     int64  `gorm:"not null;default:0"`                                                          // Admitted requests that day.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
