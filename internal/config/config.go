package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvPort         = "PORT"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvRedisAddr    = "REDIS_ADDR"
)

// defaultDatabaseDSN is used when neither the config file nor the environment names a database.
const defaultDatabaseDSN = "file:users.sqlite3"

// defaultPort matches the port the popup client was deployed against.
const defaultPort = 10000

// defaultJWTExpiry is the session token validity window.
const defaultJWTExpiry = 7 * 24 * time.Hour

// ErrMissingJWTSecret indicates no signing secret was configured.
var ErrMissingJWTSecret = errors.New("missing jwt secret (set `jwt.secret` in config file or JWT_SECRET)")

// AppConfig holds resolved application configuration values.
// It is loaded once at startup and treated as read-only afterwards.
type AppConfig struct {
	ConfigPath  string `yaml:"-"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	DatabaseDSN string `yaml:"database-dsn"`
	Debug       bool   `yaml:"debug"`
	// TrustedProxies lists proxy addresses whose X-Forwarded-For is honored for client IPs.
	TrustedProxies []string        `yaml:"trusted-proxies"`
	JWT            JWTConfig       `yaml:"jwt"`
	RateLimit      RateLimitConfig `yaml:"rate-limit"`
	Quota          QuotaConfig     `yaml:"quota"`
	Provider       ProviderConfig  `yaml:"provider"`
	Logging        LoggingConfig   `yaml:"logging"`
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LimitConfig describes one rate limit policy.
type LimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// RateLimitConfig holds the limiter policies and the optional Redis backend.
type RateLimitConfig struct {
	IP     LimitConfig `yaml:"ip"`
	User   LimitConfig `yaml:"user"`
	Signup LimitConfig `yaml:"signup"`
	Login  LimitConfig `yaml:"login"`

	RedisEnabled  bool   `yaml:"redis-enabled"`
	RedisAddr     string `yaml:"redis-addr"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db"`
	RedisPrefix   string `yaml:"redis-prefix"`
}

// QuotaConfig holds the tier table and daily counter settings.
// A nil tier limit means the tier is unlimited.
type QuotaConfig struct {
	Tiers                 map[int]*int64 `yaml:"tiers"`
	Timezone              string         `yaml:"timezone"`
	RefundOnProviderError bool           `yaml:"refund-on-provider-error"`
	RetentionDays         int            `yaml:"retention-days"`
}

// ProviderBackend describes one generation backend.
type ProviderBackend struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	APIKey  string `yaml:"api-key"`
	BaseURL string `yaml:"base-url"`
	Model   string `yaml:"model"`
}

// ProviderConfig lists the generation backends in priority order.
type ProviderConfig struct {
	Backends []ProviderBackend `yaml:"backends"`
	Fallback bool              `yaml:"fallback"`
	Timeout  time.Duration     `yaml:"timeout"`
}

// LoggingConfig controls log level, format and optional file output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
}

// Default returns the configuration used when no file is present.
func Default() AppConfig {
	return AppConfig{
		Port:        defaultPort,
		DatabaseDSN: defaultDatabaseDSN,
		JWT:         JWTConfig{Expiry: defaultJWTExpiry},
		RateLimit: RateLimitConfig{
			IP:          LimitConfig{Limit: 20, Window: 10 * time.Minute},
			User:        LimitConfig{Limit: 30, Window: 10 * time.Minute},
			Signup:      LimitConfig{Limit: 5, Window: 10 * time.Minute},
			Login:       LimitConfig{Limit: 5, Window: 10 * time.Minute},
			RedisPrefix: "gw:rl",
		},
		Quota: QuotaConfig{
			Tiers: map[int]*int64{
				0: int64Ptr(20),
				1: int64Ptr(100),
				2: nil,
			},
			Timezone:      "UTC",
			RetentionDays: 30,
		},
		Provider: ProviderConfig{
			Backends: []ProviderBackend{{Name: "gemini", Type: "gemini", Model: "gemini-2.5-flash"}},
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 3},
	}
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file (when present) over the defaults and applies env overrides.
func Load(configPath string) (AppConfig, error) {
	cfg := Default()
	cfg.ConfigPath = configPath

	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		// yaml.v3 merges into existing maps; a file tier table replaces the defaults.
		cfg.Quota.Tiers = nil
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return AppConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return AppConfig{}, fmt.Errorf("read config file: %w", errRead)
	}

	applyEnv(&cfg)
	normalize(&cfg)

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return AppConfig{}, ErrMissingJWTSecret
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if portRaw := strings.TrimSpace(os.Getenv(EnvPort)); portRaw != "" {
		if port, errParse := strconv.Atoi(portRaw); errParse == nil {
			cfg.Port = port
		}
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		cfg.RateLimit.RedisAddr = addr
		cfg.RateLimit.RedisEnabled = true
	}
	for i := range cfg.Provider.Backends {
		backend := &cfg.Provider.Backends[i]
		if strings.TrimSpace(backend.APIKey) != "" {
			continue
		}
		switch strings.ToLower(backend.Type) {
		case "gemini":
			backend.APIKey = strings.TrimSpace(os.Getenv(EnvGeminiAPIKey))
		case "openai":
			backend.APIKey = strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey))
		}
	}
}

func normalize(cfg *AppConfig) {
	defaults := Default()
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		cfg.DatabaseDSN = defaults.DatabaseDSN
	}
	if cfg.Port <= 0 {
		cfg.Port = defaults.Port
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaults.JWT.Expiry
	}
	cfg.RateLimit.IP = normalizeLimit(cfg.RateLimit.IP, defaults.RateLimit.IP)
	cfg.RateLimit.User = normalizeLimit(cfg.RateLimit.User, defaults.RateLimit.User)
	cfg.RateLimit.Signup = normalizeLimit(cfg.RateLimit.Signup, defaults.RateLimit.Signup)
	cfg.RateLimit.Login = normalizeLimit(cfg.RateLimit.Login, defaults.RateLimit.Login)
	cfg.RateLimit.RedisAddr = strings.TrimSpace(cfg.RateLimit.RedisAddr)
	cfg.RateLimit.RedisPrefix = strings.TrimSpace(cfg.RateLimit.RedisPrefix)
	if cfg.RateLimit.RedisPrefix == "" {
		cfg.RateLimit.RedisPrefix = defaults.RateLimit.RedisPrefix
	}
	if cfg.RateLimit.RedisDB < 0 {
		cfg.RateLimit.RedisDB = 0
	}
	if len(cfg.Quota.Tiers) == 0 {
		cfg.Quota.Tiers = defaults.Quota.Tiers
	}
	if strings.TrimSpace(cfg.Quota.Timezone) == "" {
		cfg.Quota.Timezone = defaults.Quota.Timezone
	}
	if cfg.Quota.RetentionDays < 0 {
		cfg.Quota.RetentionDays = 0
	}
	if len(cfg.Provider.Backends) == 0 {
		cfg.Provider.Backends = defaults.Provider.Backends
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = defaults.Provider.Timeout
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
}

// normalizeLimit keeps an explicit zero limit (disabled) but fills a missing window.
func normalizeLimit(cfg, fallback LimitConfig) LimitConfig {
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	if cfg.Window <= 0 {
		cfg.Window = fallback.Window
	}
	return cfg
}

func int64Ptr(v int64) *int64 { return &v }
