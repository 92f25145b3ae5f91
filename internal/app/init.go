package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/router-for-me/StudyGateway/internal/config"
	"github.com/router-for-me/StudyGateway/internal/security"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by InitConfig when the file is already present and force is not set.
var ErrConfigExists = errors.New("config file already exists")

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// configFile maps YAML fields for the generated config file. Durations are
// written as strings so the file stays readable.
type configFile struct {
	Host        string      `yaml:"host"`
	Port        int         `yaml:"port"`
	DatabaseDSN string      `yaml:"database-dsn"`
	Debug       bool        `yaml:"debug"`
	JWT         jwtCfg      `yaml:"jwt"`
	RateLimit   rateCfg     `yaml:"rate-limit"`
	Quota       quotaCfg    `yaml:"quota"`
	Provider    providerCfg `yaml:"provider"`
	Logging     loggingCfg  `yaml:"logging"`
}

type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

type limitCfg struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

type rateCfg struct {
	IP           limitCfg `yaml:"ip"`
	User         limitCfg `yaml:"user"`
	Signup       limitCfg `yaml:"signup"`
	Login        limitCfg `yaml:"login"`
	RedisEnabled bool     `yaml:"redis-enabled"`
	RedisAddr    string   `yaml:"redis-addr"`
}

type quotaCfg struct {
	Tiers                 map[int]*int64 `yaml:"tiers"`
	Timezone              string         `yaml:"timezone"`
	RefundOnProviderError bool           `yaml:"refund-on-provider-error"`
	RetentionDays         int            `yaml:"retention-days"`
}

type backendCfg struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Model string `yaml:"model"`
}

type providerCfg struct {
	Backends []backendCfg `yaml:"backends"`
	Fallback bool         `yaml:"fallback"`
	Timeout  string       `yaml:"timeout"`
}

type loggingCfg struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// randomSecret is replaced in tests.
var randomSecret = security.GenerateRandomString

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() (string, error) {
	secret, err := randomSecret(32)
	if err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return secret, nil
}

func limitToFile(l config.LimitConfig) limitCfg {
	return limitCfg{Limit: l.Limit, Window: l.Window.String()}
}

// WriteConfigFile writes a config file built from the defaults with a fresh JWT secret.
// Provider API keys are left out and read from the environment.
func WriteConfigFile(configPath string, dsn string, port int) error {
	defaults := config.Default()
	if dsn == "" {
		dsn = defaults.DatabaseDSN
	}
	if port <= 0 {
		port = defaults.Port
	}
	secret, errSecret := generateJWTSecret()
	if errSecret != nil {
		return errSecret
	}
	backends := make([]backendCfg, 0, len(defaults.Provider.Backends))
	for _, backend := range defaults.Provider.Backends {
		backends = append(backends, backendCfg{Name: backend.Name, Type: backend.Type, Model: backend.Model})
	}

	cfg := configFile{
		Port:        port,
		DatabaseDSN: dsn,
		JWT: jwtCfg{
			Secret: secret,
			Expiry: defaults.JWT.Expiry.String(),
		},
		RateLimit: rateCfg{
			IP:     limitToFile(defaults.RateLimit.IP),
			User:   limitToFile(defaults.RateLimit.User),
			Signup: limitToFile(defaults.RateLimit.Signup),
			Login:  limitToFile(defaults.RateLimit.Login),
		},
		Quota: quotaCfg{
			Tiers:         defaults.Quota.Tiers,
			Timezone:      defaults.Quota.Timezone,
			RetentionDays: defaults.Quota.RetentionDays,
		},
		Provider: providerCfg{
			Backends: backends,
			Timeout:  defaults.Provider.Timeout.String(),
		},
		Logging: loggingCfg{Level: defaults.Logging.Level},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}

// InitConfig writes a starter config file unless one exists and force is false.
func InitConfig(configPath, dsn string, port int, force bool) error {
	if ConfigExists(configPath) && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, configPath)
	}
	if errWrite := WriteConfigFile(configPath, dsn, port); errWrite != nil {
		return errWrite
	}
	log.Infof("wrote config to %s", configPath)
	return nil
}
