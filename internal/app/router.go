// internal/app/router.go
package app

import (
	"net/http"

	"storelinker-service/internal/domain/auth"
	authHandler "storelinker-service/internal/handlers/auth"
	productHandler "storelinker-service/internal/handlers/product"
	storeHandler "storelinker-service/internal/handlers/store"
	wsHandler "storelinker-service/internal/handlers/websocket"
	"storelinker-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	ProductHandler *productHandler.ProductHandler
	StoreHandler   *storeHandler.StoreHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
		authProtected.GET("/sessions", h.AuthHandler.Sessions)
		authProtected.GET("/all-sessions", h.AuthHandler.AllSessions)
		authProtected.GET("/active-sessions", h.AuthHandler.ActiveSessions)
		authProtected.GET("/session-stats", h.AuthHandler.SessionStats)
		authProtected.GET("/me", h.AuthHandler.Me)
		authProtected.PUT("/profile", h.AuthHandler.UpdateProfile)
		authProtected.PUT("/change-password", h.AuthHandler.ChangePassword)
	}

	// ==================== Session Recovery (admin) ====================
	recovery := api.Group("/auth")
	recovery.Use(h.AuthMiddleware.WithCapability(auth.CapRecoverSessions)...)
	{
		recovery.POST("/recover-user-sessions", h.AuthHandler.RecoverUserSessions)
		recovery.POST("/admin/recover-all-sessions", h.AuthHandler.RecoverAllSessions)
		recovery.GET("/admin/ws-stats", h.WSHandler.GetStats)
	}

	// ==================== Products ====================
	products := api.Group("/products")
	{
		products.GET("", h.ProductHandler.List)
		products.GET("/:id", h.ProductHandler.Get)

		manage := products.Group("")
		manage.Use(h.AuthMiddleware.WithCapability(auth.CapManageProducts)...)
		{
			manage.POST("", h.ProductHandler.Create)
			manage.PUT("/:id", h.ProductHandler.Update)
			manage.DELETE("/:id", h.ProductHandler.Delete)
		}
	}

	vendor := api.Group("/vendor")
	vendor.Use(h.AuthMiddleware.WithCapability(auth.CapManageProducts)...)
	{
		vendor.GET("/products", h.ProductHandler.VendorProducts)
	}

	// ==================== Stores ====================
	stores := api.Group("/stores")
	{
		stores.GET("", h.StoreHandler.List)
		stores.GET("/:vendorId/products", h.StoreHandler.Products)
	}
}
