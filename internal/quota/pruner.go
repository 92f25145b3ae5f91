package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/StudyGateway/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultPruneInterval = 6 * time.Hour

// Pruner deletes daily usage counters older than the retention window.
type Pruner struct {
	db        *gorm.DB
	retention int
	interval  time.Duration
	location  *time.Location
	now       func() time.Time
}

// NewPruner constructs a pruner. It returns nil when retentionDays is not positive.
func NewPruner(db *gorm.DB, retentionDays int, loc *time.Location) *Pruner {
	if db == nil || retentionDays <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Pruner{
		db:        db,
		retention: retentionDays,
		interval:  defaultPruneInterval,
		location:  loc,
		now:       time.Now,
	}
}

// Start runs the prune loop in the background until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go p.run(ctx)
	log.Infof("usage pruner started (retention=%dd, interval=%s)", p.retention, p.interval)
}

func (p *Pruner) run(ctx context.Context) {
	interval := p.interval
	if interval <= 0 {
		interval = defaultPruneInterval
	}

	if _, err := p.PruneOnce(ctx); err != nil {
		log.WithError(err).Warn("usage pruner: initial prune failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PruneOnce(ctx); err != nil {
				log.WithError(err).Warn("usage pruner: prune failed")
			}
		}
	}
}

// PruneOnce deletes counters dated before the retention cutoff and returns the row count.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	if p == nil || p.db == nil {
		return 0, fmt.Errorf("usage pruner: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// usage_date is YYYY-MM-DD, so string order is date order.
	cutoff := p.now().In(p.location).AddDate(0, 0, -p.retention).Format(dateLayout)
	res := p.db.WithContext(ctx).Where("usage_date < ?", cutoff).Delete(&models.DailyUsage{})
	if res.Error != nil {
		return 0, fmt.Errorf("usage pruner: delete: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Debugf("usage pruner: removed %d counters before %s", res.RowsAffected, cutoff)
	}
	return res.RowsAffected, nil
}
