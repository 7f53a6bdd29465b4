// internal/handlers/websocket/websocket.go
package handlers

import (
	"net/http"
	"strings"
	"time"

	"storelinker-service/internal/middleware"
	"storelinker-service/internal/pkg/response"
	ws "storelinker-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub    *ws.Hub
	auth   middleware.Authenticator
	logger *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, auth middleware.Authenticator, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		auth:   auth,
		logger: logger,
	}
}

// HandleConnection authenticates with the same chain as the HTTP middleware,
// then upgrades.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	ident, err := h.auth.Authenticate(c.Request.Context(), extractToken(c))
	if err != nil {
		h.logger.Info("websocket authentication failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		response.Fail(c, err)
		return
	}

	// Upgrade errors are already written to the client by the upgrader.
	if err := h.hub.Serve(c.Writer, c.Request, ident); err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("ip", c.ClientIP()),
			zap.String("user_id", ident.UserID.Hex()),
			zap.Error(err),
		)
		c.Abort()
	}
}

// GetStats returns connection counts (admin only). ?userId= adds the
// connections of that user.
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	stats := gin.H{
		"totalConnections": h.hub.TotalClients(),
		"timestamp":        time.Now().UTC(),
	}
	if userID := c.Query("userId"); userID != "" {
		stats["userId"] = userID
		stats["userConnections"] = h.hub.ConnectedClients(userID)
	}
	response.Success(c, http.StatusOK, "websocket stats", stats)
}

// extractToken reads the token from the query string, falling back to the
// Authorization header.
func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
