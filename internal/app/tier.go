package app

import (
	"context"
	"fmt"

	"github.com/router-for-me/StudyGateway/internal/config"
	"github.com/router-for-me/StudyGateway/internal/users"
	log "github.com/sirupsen/logrus"
)

// SetTier changes a user's service tier out of band.
func SetTier(ctx context.Context, cfg config.AppConfig, username string, tier int) error {
	conn, err := OpenDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, errDB := conn.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	}()

	if _, ok := cfg.Quota.Tiers[tier]; !ok {
		log.Warnf("tier %d has no entry in quota.tiers; the lowest tier limit applies", tier)
	}
	if errSet := users.NewStore(conn).SetTier(ctx, username, tier); errSet != nil {
		return fmt.Errorf("set tier for %q: %w", username, errSet)
	}
	log.Infof("user %s moved to tier %d", username, tier)
	return nil
}
