// Package quota meters per-user daily generation requests against tier allowances.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/router-for-me/StudyGateway/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dateLayout is the calendar-day key format stored in daily_usages.usage_date.
const dateLayout = "2006-01-02"

// TierReader returns the current tier for a user.
type TierReader interface {
	GetTier(ctx context.Context, userID uint64) (int, error)
}

// Decision is the outcome of CheckAndRecord.
type Decision struct {
	Allowed bool
	Used    int64
	Limit   Limit
	// Day is the counter key the unit was charged to.
	Day string
}

// Usage is the read-only view returned by Peek.
type Usage struct {
	Used  int64 `json:"used"`
	Limit Limit `json:"limit"`
}

// Accountant tracks daily usage counters in the database.
type Accountant struct {
	db       *gorm.DB
	tiers    TierReader
	table    TierTable
	location *time.Location
	now      func() time.Time
}

// NewAccountant constructs an Accountant. Days are computed in loc.
func NewAccountant(db *gorm.DB, tiers TierReader, table TierTable, loc *time.Location) *Accountant {
	if loc == nil {
		loc = time.UTC
	}
	return &Accountant{
		db:       db,
		tiers:    tiers,
		table:    table,
		location: loc,
		now:      time.Now,
	}
}

// Today returns the counter key for the current day.
func (a *Accountant) Today() string {
	return a.now().In(a.location).Format(dateLayout)
}

// CheckAndRecord admits the request and consumes one unit if the user is under
// their limit. Unlimited tiers are admitted without touching the counter.
func (a *Accountant) CheckAndRecord(ctx context.Context, userID uint64) (Decision, error) {
	limit, errLimit := a.limitFor(ctx, userID)
	if errLimit != nil {
		return Decision{}, errLimit
	}
	day := a.Today()
	if limit.Unlimited {
		return Decision{Allowed: true, Limit: limit, Day: day}, nil
	}

	var decision Decision
	errTx := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := a.now().UTC()
		seed := models.DailyUsage{
			UserID:    userID,
			UsageDate: day,
			Count:     0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if errSeed := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "usage_date"}},
			DoNothing: true,
		}).Create(&seed).Error; errSeed != nil {
			return fmt.Errorf("seed usage row: %w", errSeed)
		}

		// The limit comparison and the increment are one statement, so concurrent
		// callers cannot both pass the check at count == limit-1.
		res := tx.Model(&models.DailyUsage{}).
			Where("user_id = ? AND usage_date = ? AND count < ?", userID, day, limit.Value).
			Updates(map[string]any{
				"count":      gorm.Expr("count + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("increment usage: %w", res.Error)
		}

		used, errRead := readCount(tx, userID, day)
		if errRead != nil {
			return errRead
		}
		decision = Decision{Allowed: res.RowsAffected == 1, Used: used, Limit: limit, Day: day}
		return nil
	})
	if errTx != nil {
		return Decision{}, errTx
	}
	return decision, nil
}

// Peek reports today's count without consuming a unit. The stored count is
// reported for unlimited tiers as well.
func (a *Accountant) Peek(ctx context.Context, userID uint64) (Usage, error) {
	limit, errLimit := a.limitFor(ctx, userID)
	if errLimit != nil {
		return Usage{}, errLimit
	}
	used, errRead := readCount(a.db.WithContext(ctx), userID, a.Today())
	if errRead != nil {
		return Usage{}, errRead
	}
	return Usage{Used: used, Limit: limit}, nil
}

// Refund gives back one unit charged to day, the Decision.Day of the admitted
// request. It never takes the count below zero.
func (a *Accountant) Refund(ctx context.Context, userID uint64, day string) error {
	if day == "" {
		return fmt.Errorf("refund usage: empty day")
	}
	res := a.db.WithContext(ctx).
		Model(&models.DailyUsage{}).
		Where("user_id = ? AND usage_date = ? AND count > 0", userID, day).
		Updates(map[string]any{
			"count":      gorm.Expr("count - 1"),
			"updated_at": a.now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("refund usage: %w", res.Error)
	}
	return nil
}

func (a *Accountant) limitFor(ctx context.Context, userID uint64) (Limit, error) {
	tier, errTier := a.tiers.GetTier(ctx, userID)
	if errTier != nil {
		return Limit{}, fmt.Errorf("read tier: %w", errTier)
	}
	return a.table.Resolve(tier), nil
}

func readCount(tx *gorm.DB, userID uint64, day string) (int64, error) {
	var row struct {
		Count int64
	}
	errFind := tx.Model(&models.DailyUsage{}).
		Select("count").
		Where("user_id = ? AND usage_date = ?", userID, day).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read usage: %w", errFind)
	}
	return row.Count, nil
}
