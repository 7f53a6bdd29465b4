// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"storelinker-service/internal/config"
	"storelinker-service/internal/db"
	mongorepo "storelinker-service/internal/repository/mongo"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	logger *zap.Logger

	httpServer *http.Server
	mongo      *mongorepo.DB
	redis      *redis.Client
	container  *Container

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start connects the stores, wires the app and serves HTTP until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	// ----- MongoDB -----
	client, err := mongorepo.Connect(ctx, s.cfg.MongoURI)
	if err != nil {
		return err
	}
	s.mongo = mongorepo.NewDB(client, s.cfg.MongoDB)

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.mongo.EnsureIndexes(indexCtx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	s.logger.Info("connected to mongo", zap.String("db", s.cfg.MongoDB), zap.Bool("transactions", s.cfg.MongoTransactions))

	// ----- Redis -----
	s.redis, err = db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		return err
	}
	s.logger.Info("connected to redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- Wiring -----
	s.container, err = Build(s.cfg, Storage{
		Users:    s.mongo.Users(),
		Sessions: s.mongo.Sessions(),
		Products: s.mongo.Products(),
		Tx:       s.mongo,
	}, s.redis, s.logger)
	if err != nil {
		return err
	}

	if s.cfg.Legacy.AnyEnabled() {
		s.logger.Warn("AUDIT: legacy login compatibility enabled",
			zap.Bool("plaintext_fallback", s.cfg.Legacy.PlaintextPasswordFallback),
			zap.Bool("emergency_login", s.cfg.Legacy.EmergencyLogin),
		)
	}

	// ----- Bootstrap admin -----
	if s.cfg.AdminEmail != "" {
		adminCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := s.container.AuthService.EnsureAdminExists(adminCtx, s.cfg.AdminEmail, s.cfg.AdminPassword)
		cancel()
		if err != nil {
			// Don't fail startup, just log the error
			s.logger.Error("failed to ensure admin exists", zap.Error(err))
		}
	}

	// ----- Background workers -----
	bgCtx, bgCancel := context.WithCancel(context.Background())
	s.cancel = bgCancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.container.Hub.Run(bgCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.container.ReconcileJob.Run(bgCtx)
	}()

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.container.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr), zap.String("env", s.cfg.Env))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains HTTP, stops the workers, waits for pending session
// touches and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.container != nil {
		s.container.Ledger.Wait()
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if s.mongo != nil {
		if err := s.mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongo disconnect: %w", err))
		}
	}
	return errors.Join(errs...)
}
