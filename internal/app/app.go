package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/router-for-me/StudyGateway/internal/auth"
	"github.com/router-for-me/StudyGateway/internal/config"
	"github.com/router-for-me/StudyGateway/internal/db"
	"github.com/router-for-me/StudyGateway/internal/gateway"
	"github.com/router-for-me/StudyGateway/internal/http/api/front"
	"github.com/router-for-me/StudyGateway/internal/http/middleware"
	"github.com/router-for-me/StudyGateway/internal/logging"
	"github.com/router-for-me/StudyGateway/internal/provider"
	"github.com/router-for-me/StudyGateway/internal/quota"
	"github.com/router-for-me/StudyGateway/internal/ratelimit"
	"github.com/router-for-me/StudyGateway/internal/users"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// LoadEnvFile loads variables from a .env file when present. Existing
// environment variables win.
func LoadEnvFile(path string) {
	if !ConfigExists(path) {
		return
	}
	if errLoad := godotenv.Load(path); errLoad != nil {
		log.WithError(errLoad).Warnf("load %s failed", path)
	}
}

// Server holds the wired components behind the HTTP engine.
type Server struct {
	Engine  *gin.Engine
	DB      *gorm.DB
	Limiter *ratelimit.Manager
	Pruner  *quota.Pruner
}

// Close releases the limiter backend and the database handle.
func (s *Server) Close() error {
	var errs []error
	if s.Limiter != nil {
		errs = append(errs, s.Limiter.Close())
	}
	if s.DB != nil {
		if sqlDB, errDB := s.DB.DB(); errDB == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// NewServer wires every component onto conn and returns the HTTP engine.
func NewServer(cfg config.AppConfig, conn *gorm.DB, httpClient *http.Client) (*Server, error) {
	loc, errLoc := time.LoadLocation(cfg.Quota.Timezone)
	if errLoc != nil {
		return nil, fmt.Errorf("quota timezone %q: %w", cfg.Quota.Timezone, errLoc)
	}

	backends, errBackends := provider.FromConfig(cfg.Provider, httpClient)
	if errBackends != nil {
		return nil, errBackends
	}

	store := users.NewStore(conn)
	limiter := ratelimit.NewManager(ratelimit.SettingsFromConfig(cfg.RateLimit), nil, nil)
	pipeline := gateway.NewPipeline(gateway.Options{
		Auth:                  auth.NewService(store, cfg.JWT.Secret, cfg.JWT.Expiry),
		Limiter:               limiter,
		Policies:              ratelimit.ResolvePolicies(cfg.RateLimit),
		Quota:                 quota.NewAccountant(conn, store, quota.NewTierTable(cfg.Quota.Tiers), loc),
		Generator:             provider.NewGateway(backends, cfg.Provider.Timeout),
		RefundOnProviderError: cfg.Quota.RefundOnProviderError,
	})

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if errProxies := engine.SetTrustedProxies(cfg.TrustedProxies); errProxies != nil {
		return nil, fmt.Errorf("trusted proxies: %w", errProxies)
	}
	engine.Use(gin.Recovery(), middleware.RequestID(), middleware.Logging(), middleware.CORS())
	front.RegisterFrontRoutes(engine, conn, pipeline)

	log.WithFields(log.Fields{
		"provider": backends.Name(),
		"fallback": cfg.Provider.Fallback,
		"redis":    cfg.RateLimit.RedisEnabled,
		"timezone": loc.String(),
	}).Info("gateway components ready")

	return &Server{
		Engine:  engine,
		DB:      conn,
		Limiter: limiter,
		Pruner:  quota.NewPruner(conn, cfg.Quota.RetentionDays, loc),
	}, nil
}

// OpenDatabase connects and migrates the configured database.
func OpenDatabase(cfg config.AppConfig) (*gorm.DB, error) {
	if summary, errDescribe := describeDSN(cfg.DatabaseDSN); errDescribe == nil {
		log.Infof("database: %s", summary)
	}
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, fmt.Errorf("migrate database: %w", errMigrate)
	}
	return conn, nil
}

// RunServer boots the gateway and blocks until ctx is cancelled or the listener fails.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	closer, errLogging := logging.Setup(cfg.Logging, cfg.Debug)
	if errLogging != nil {
		return errLogging
	}
	defer func() {
		_ = closer.Close()
	}()

	conn, err := OpenDatabase(cfg)
	if err != nil {
		return err
	}
	server, err := NewServer(cfg, conn, &http.Client{})
	if err != nil {
		return err
	}
	defer func() {
		if errClose := server.Close(); errClose != nil {
			log.WithError(errClose).Warn("shutdown cleanup failed")
		}
	}()

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           server.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	server.Pruner.Start(gctx)
	g.Go(func() error {
		log.Infof("listening on %s (config=%s)", httpServer.Addr, cfg.ConfigPath)
		if errServe := httpServer.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
