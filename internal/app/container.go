// internal/app/container.go
package app

import (
	"fmt"
	"net/http"

	"storelinker-service/internal/config"
	authHandler "storelinker-service/internal/handlers/auth"
	productHandler "storelinker-service/internal/handlers/product"
	storeHandler "storelinker-service/internal/handlers/store"
	wsHandler "storelinker-service/internal/handlers/websocket"
	"storelinker-service/internal/middleware"
	"storelinker-service/internal/pkg/jwt"
	"storelinker-service/internal/pkg/password"
	"storelinker-service/internal/pkg/ratelimit"
	"storelinker-service/internal/pkg/session"
	authUsecase "storelinker-service/internal/service/auth"
	productUsecase "storelinker-service/internal/service/product"
	"storelinker-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// UserStore is everything the services need from the users collection.
type UserStore interface {
	authUsecase.UserRepository
	session.UserRepository
	productUsecase.VendorDirectory
}

// Storage groups the repositories backing the services. Tx may be nil.
type Storage struct {
	Users    UserStore
	Sessions session.SessionRepository
	Products productUsecase.ProductRepository
	Tx       session.TxRunner
}

// Container holds the wired services and the HTTP handler.
type Container struct {
	AuthService    *authUsecase.AuthService
	ProductService *productUsecase.ProductService
	Ledger         *session.Ledger
	Hub            *websocket.Hub
	ReconcileJob   *authUsecase.ReconcileJob
	Handler        http.Handler
}

// Build wires services, handlers and middleware on top of storage and Redis.
func Build(cfg config.AppConfig, st Storage, redisClient *redis.Client, logger *zap.Logger) (*Container, error) {
	// ----- JWT Manager -----
	jwtManager, err := jwt.NewManager(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("failed to build JWT manager: %w", err)
	}

	// ----- Session Ledger -----
	var tx session.TxRunner
	if cfg.MongoTransactions {
		tx = st.Tx
	}
	ledger := session.NewLedger(st.Users, st.Sessions, tx, logger.Named("ledger"))

	// ----- Credentials & Rate Limiter -----
	hasher := password.NewHasher(cfg.BcryptCost, cfg.Legacy.PlaintextPasswordFallback && !cfg.IsProduction(), logger.Named("password"))
	rateLimiter := ratelimit.NewRateLimiter(redisClient, logger.Named("ratelimit")).
		WithLimits(int64(cfg.LoginMaxAttempts), cfg.LoginWindow)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(cfg.CORSOrigins, logger.Named("ws"))

	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(
		st.Users,
		ledger,
		jwtManager,
		hasher,
		rateLimiter,
		hub,
		cfg.Legacy,
		logger.Named("auth"),
	)
	productService := productUsecase.NewProductService(st.Products, st.Users, logger.Named("product"))
	reconcileJob := authUsecase.NewReconcileJob(ledger, cfg.ReconcileInterval, logger.Named("reconcile"))

	// ----- Handlers -----
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)
	h := &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, logger),
		ProductHandler: productHandler.NewProductHandler(productService, logger),
		StoreHandler:   storeHandler.NewStoreHandler(productService, logger),
		WSHandler:      wsHandler.NewWebSocketHandler(hub, authService, logger),
		AuthMiddleware: authMiddleware,
	}

	// ----- Router -----
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.RequestLogger(logger),
	)
	SetupRouter(engine, h)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.HeaderRequestID}),
		handlers.ExposedHeaders([]string{middleware.HeaderRequestID}),
		handlers.AllowCredentials(),
	)

	return &Container{
		AuthService:    authService,
		ProductService: productService,
		Ledger:         ledger,
		Hub:            hub,
		ReconcileJob:   reconcileJob,
		Handler:        cors(engine),
	}, nil
}
