// internal/middleware/helpers.go
package middleware

import (
	"storelinker-service/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

// GetIdentity returns the identity set by Auth.
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, exists := c.Get(KeyIdentity)
	if !exists {
		return nil, false
	}
	ident, ok := v.(*auth.Identity)
	return ident, ok && ident != nil
}

// MustGetIdentity gets the identity from context or panics
func MustGetIdentity(c *gin.Context) *auth.Identity {
	ident, ok := GetIdentity(c)
	if !ok {
		panic("identity not found in context")
	}
	return ident
}

// GetSessionID gets the session id bound to the token
func GetSessionID(c *gin.Context) string {
	return c.GetString(KeySessionID)
}
