// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims
type Claims struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	UserType  string `json:"userType"`
	Role      string `json:"role"`
	SessionID string `json:"sessionId,omitempty"`
	StoreName string `json:"storeName,omitempty"`
	jwt.RegisteredClaims
}

// Subject is what a token is minted for.
type Subject struct {
	UserID    string
	Email     string
	UserType  string
	Role      string
	SessionID string
	StoreName string
}

// HasSession reports whether the token is bound to a ledger session.
func (c *Claims) HasSession() bool {
	return c.SessionID != ""
}

// IsAdmin checks the role claim.
func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}
