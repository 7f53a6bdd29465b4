// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"strings"

	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"
	"storelinker-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by Auth.
const (
	KeyUserID    = "user_id"
	KeyEmail     = "email"
	KeyUserType  = "user_type"
	KeyRole      = "role"
	KeySessionID = "session_id"
	KeyStoreName = "store_name"
	KeyIdentity  = "identity"
)

// Authenticator resolves a bearer token to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
}

type AuthMiddleware struct {
	authenticator Authenticator
	logger        *zap.Logger
}

func NewAuthMiddleware(authenticator Authenticator, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		authenticator: authenticator,
		logger:        logger,
	}
}

// Auth validates the bearer token and the session it is bound to.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := m.authenticator.Authenticate(c.Request.Context(), extractToken(c))
		if err != nil {
			if !errors.Is(err, xerrors.ErrMissingToken) {
				m.logger.Info("request rejected",
					zap.String("path", c.Request.URL.Path),
					zap.String("ip", c.ClientIP()),
					zap.Error(err),
				)
			}
			response.Fail(c, err)
			return
		}

		setIdentity(c, ident)
		c.Next()
	}
}

// RequireCapability rejects callers whose role lacks cap.
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireCapability(cap auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := GetIdentity(c)
		if !ok {
			response.Fail(c, xerrors.ErrMissingToken)
			return
		}

		if !ident.Role.Can(cap) {
			m.logger.Warn("capability denied",
				zap.String("user_id", ident.UserID.Hex()),
				zap.String("role", string(ident.Role)),
				zap.String("capability", string(cap)),
			)
			response.Fail(c, xerrors.ErrForbidden)
			return
		}

		c.Next()
	}
}

// WithCapability returns Auth followed by RequireCapability.
func (m *AuthMiddleware) WithCapability(cap auth.Capability) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireCapability(cap),
	}
}

func setIdentity(c *gin.Context, ident *auth.Identity) {
	c.Set(KeyUserID, ident.UserID.Hex())
	c.Set(KeyEmail, ident.Email)
	c.Set(KeyUserType, string(ident.UserType))
	c.Set(KeyRole, string(ident.Role))
	c.Set(KeySessionID, ident.SessionID)
	if ident.StoreName != "" {
		c.Set(KeyStoreName, ident.StoreName)
	}
	c.Set(KeyIdentity, ident)
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
