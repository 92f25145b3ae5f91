package ratelimit

import (
	"strings"

	"github.com/router-for-me/StudyGateway/internal/config"
)

// SettingsConfig captures the backend selection for the limiter.
type SettingsConfig struct {
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// SettingsFromConfig returns a provider serving a fixed snapshot of the config.
func SettingsFromConfig(cfg config.RateLimitConfig) SettingsProvider {
	snapshot := SettingsConfig{
		RedisEnabled:  cfg.RedisEnabled,
		RedisAddr:     strings.TrimSpace(cfg.RedisAddr),
		RedisPassword: strings.TrimSpace(cfg.RedisPassword),
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   strings.TrimSpace(cfg.RedisPrefix),
	}
	if snapshot.RedisDB < 0 {
		snapshot.RedisDB = 0
	}
	return func() SettingsConfig { return snapshot }
}
